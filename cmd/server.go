// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"blockwatch.cc/packdb/pack"
	"blockwatch.cc/packdb/store"
	"github.com/echa/config"

	"github.com/Preciousbas/polichain-governance/gov"
	"github.com/Preciousbas/polichain-governance/gov/metadata"
	"github.com/Preciousbas/polichain-governance/ledger"
	"github.com/Preciousbas/polichain-governance/server"
	_ "github.com/Preciousbas/polichain-governance/server/explorer" // registers explorer routes
	"github.com/Preciousbas/polichain-governance/token"
)

var (
	noapi    bool
	unsafe   bool
	readonly bool
	network  string
	tokenurl string
	genfile  string
)

func init() {
	runCmd.Flags().StringVar(&network, "network", "", "governance network (Mainnet, Testnet, Sandbox)")
	runCmd.Flags().StringVar(&tokenurl, "token-url", "", "remote token oracle URL")
	runCmd.Flags().StringVar(&genfile, "genesis", "", "genesis `file`")
	runCmd.Flags().BoolVar(&noapi, "noapi", false, "disable API server")
	runCmd.Flags().BoolVar(&readonly, "readonly", false, "open databases read-only")
	runCmd.Flags().BoolVar(&unsafe, "unsafe", false, "disable fsync for fast bootstrap (DANGEROUS! data will be lost on crashes)")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run as service",
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServer(args); err != nil {
			log.Fatalf("Fatal: %v", err)
		}
	},
}

func runServer(args []string) error {
	// overwrite config from flags
	if network != "" {
		config.Set("network.name", network)
	}
	if tokenurl != "" {
		config.Set("token.url", tokenurl)
		config.Set("token.mode", "remote")
	}
	if genfile != "" {
		config.Set("genesis.path", genfile)
	}
	if config.GetBool("database.nosync") {
		unsafe = true
	}

	// set user agent in library client
	server.UserAgent = UserAgent
	server.ApiVersion = API_VERSION
	pack.QueryLogMinDuration = config.GetDuration("database.log_slow_queries")

	// load metadata extensions
	if err := metadata.LoadExtensions(); err != nil {
		return err
	}

	params := ledger.NewParams().ForNetwork(config.GetString("network.name"))
	if err := params.Check(); err != nil {
		return err
	}
	log.Infof("Running on %s network", params.Network)

	dbengine := config.GetString("database.engine")
	pathname := config.GetString("database.path")
	log.Infof("Using %s database %s", dbengine, pathname)
	if unsafe {
		log.Warnf("Enabled NOSYNC mode. Database will not be safe on crashes!")
	}

	// make sure paths exist
	if err := os.MkdirAll(pathname, 0700); err != nil {
		return err
	}

	// open shared state database
	var (
		statedb store.DB
		err     error
	)
	if readonly {
		statedb, err = store.Open(dbengine, filepath.Join(pathname, gov.StateDBName), DBOpts(dbengine, true, false))
	} else {
		statedb, err = store.Create(dbengine, filepath.Join(pathname, gov.StateDBName), DBOpts(dbengine, false, unsafe))
	}
	if err != nil {
		return fmt.Errorf("error opening %s database: %v", gov.StateDBName, err)
	}
	defer statedb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// select the token oracle
	var (
		bridge gov.TokenBridge
		tokdb  *token.Ledger
	)
	switch mode := config.GetString("token.mode"); mode {
	case "embedded":
		tokdb = token.NewLedger(token.LedgerConfig{
			Params: params,
			DBPath: pathname,
			DBOpts: DBOpts(dbengine, readonly, unsafe),
		})
		if err := tokdb.Init(); err != nil {
			return fmt.Errorf("error opening token database: %v", err)
		}
		defer tokdb.Close()
		bridge = tokdb
	case "remote":
		tokencli, err := newTokenClient()
		if err != nil {
			return err
		}
		log.Infof("Using remote token oracle %s", config.GetString("token.url"))
		bridge = tokencli
	default:
		return fmt.Errorf("invalid token.mode %q", mode)
	}

	// event feed is optional
	var pub gov.Publisher
	if config.GetBool("feed.enable") {
		pub, err = gov.NewZmqPublisher(ctx, config.GetString("feed.addr"), config.GetInt("feed.queue"))
		if err != nil {
			return fmt.Errorf("error opening event feed: %v", err)
		}
		defer pub.Close()
		log.Infof("Publishing events on %s", config.GetString("feed.addr"))
	}

	genesis, err := loadGenesis()
	if err != nil {
		return err
	}

	engine := gov.NewEngine(gov.EngineConfig{
		Params:    params,
		DBPath:    pathname,
		DBOpts:    DBOpts(dbengine, readonly, unsafe),
		StateDB:   statedb,
		Token:     bridge,
		Publisher: pub,
	})
	// the embedded ledger stamps balance changes with the engine tip
	if tokdb != nil {
		tokdb.Bind(engine)
	}
	if err := engine.Init(ctx, genesis); err != nil {
		return fmt.Errorf("error initializing governance engine: %v", err)
	}
	defer engine.Close()

	// setup HTTP server
	if !noapi {
		srv, err := server.New(&server.Config{
			Engine: engine,
			Token:  bridge,
			Http: server.HttpConfig{
				Addr:                config.GetString("server.addr"),
				Port:                config.GetInt("server.port"),
				Scheme:              config.GetString("server.scheme"),
				Host:                config.GetString("server.host"),
				MaxWorkers:          config.GetInt("server.workers"),
				MaxQueue:            config.GetInt("server.queue"),
				ReadTimeout:         config.GetDuration("server.read_timeout"),
				HeaderTimeout:       config.GetDuration("server.header_timeout"),
				WriteTimeout:        config.GetDuration("server.write_timeout"),
				KeepAlive:           config.GetDuration("server.keepalive"),
				ShutdownTimeout:     config.GetDuration("server.shutdown_timeout"),
				DefaultListCount:    uint(config.GetInt("server.default_list_count")),
				MaxListCount:        uint(config.GetInt("server.max_list_count")),
				DefaultExploreCount: uint(config.GetInt("server.default_explore_count")),
				MaxExploreCount:     uint(config.GetInt("server.max_explore_count")),
				CorsEnable:          config.GetBool("server.cors_enable"),
				CorsOrigin:          config.GetString("server.cors_origin"),
				CorsAllowHeaders:    config.GetString("server.cors_allow_headers"),
				CorsExposeHeaders:   config.GetString("server.cors_expose_headers"),
				CorsMethods:         config.GetString("server.cors_methods"),
				CorsMaxAge:          config.GetString("server.cors_maxage"),
				CorsCredentials:     config.GetString("server.cors_credentials"),
				CacheEnable:         config.GetBool("server.cache_enable"),
				CacheControl:        config.GetString("server.cache_control"),
				CacheExpires:        config.GetDuration("server.cache_expires"),
				CacheMaxExpires:     config.GetDuration("server.cache_max"),
				ReadOnly:            readonly || config.GetBool("server.read_only"),
			},
		})
		if err != nil {
			return err
		}
		srv.Start()
		defer srv.Stop()
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	<-c
	return nil
}
