// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package cmd

import (
	"os"

	"blockwatch.cc/packdb/pack"
	"blockwatch.cc/packdb/store"
	"github.com/echa/config"
	logpkg "github.com/echa/log"

	"github.com/Preciousbas/polichain-governance/gov"
	"github.com/Preciousbas/polichain-governance/gov/metadata"
	"github.com/Preciousbas/polichain-governance/rpc"
	"github.com/Preciousbas/polichain-governance/server"
	"github.com/Preciousbas/polichain-governance/server/system"
	"github.com/Preciousbas/polichain-governance/server/tables"
	"github.com/Preciousbas/polichain-governance/token"
)

var (
	log     = logpkg.NewLogger("MAIN") // main program
	govLog  = logpkg.NewLogger("GOV ") // governance engine
	dataLog = logpkg.NewLogger("DATA") // database
	rpcLog  = logpkg.NewLogger("RPC ") // http client
	srvrLog = logpkg.NewLogger("API ") // api server
)

// Initialize package-global logger variables.
func init() {
	// assign default loggers
	gov.UseLogger(govLog)
	metadata.UseLogger(govLog)
	store.UseLogger(dataLog)
	pack.UseLogger(dataLog)
	token.UseLogger(dataLog)
	rpc.UseLogger(rpcLog)
	server.UseLogger(srvrLog)
	tables.UseLogger(srvrLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]logpkg.Logger{
	"MAIN": log,
	"GOV ": govLog,
	"DATA": dataLog,
	"RPC ": rpcLog,
	"API ": srvrLog,
}

func initLogging() {
	cfg := logpkg.NewConfig()
	cfg.Level = logpkg.ParseLevel(config.GetString("logging.level"))
	cfg.Flags = logpkg.ParseFlags(config.GetString("logging.flags"))
	cfg.Backend = config.GetString("logging.backend")
	cfg.Filename = config.GetString("logging.filename")
	cfg.Addr = config.GetString("logging.syslog.address")
	cfg.Facility = config.GetString("logging.syslog.facility")
	cfg.Ident = config.GetString("logging.syslog.ident")
	cfg.FileMode = os.FileMode(config.GetInt("logging.filemode"))
	logpkg.Init(cfg)

	log = logpkg.NewLogger("MAIN") // command level

	// create loggers with configured backend
	govLog = logpkg.NewLogger("GOV ") // governance engine
	govLog.SetLevel(logpkg.ParseLevel(config.GetString("logging.governance")))
	dataLog = logpkg.NewLogger("DATA") // database
	dataLog.SetLevel(logpkg.ParseLevel(config.GetString("logging.database")))
	rpcLog = logpkg.NewLogger("RPC ") // http client
	rpcLog.SetLevel(logpkg.ParseLevel(config.GetString("logging.rpc")))
	srvrLog = logpkg.NewLogger("API ") // api server
	srvrLog.SetLevel(logpkg.ParseLevel(config.GetString("logging.server")))

	// assign default loggers
	gov.UseLogger(govLog)
	metadata.UseLogger(govLog)
	store.UseLogger(dataLog)
	pack.UseLogger(dataLog)
	token.UseLogger(dataLog)
	rpc.UseLogger(rpcLog)
	server.UseLogger(srvrLog)
	tables.UseLogger(srvrLog)

	// store loggers in map
	subsystemLoggers = map[string]logpkg.Logger{
		"MAIN": log,
		"GOV ": govLog,
		"DATA": dataLog,
		"RPC ": rpcLog,
		"API ": srvrLog,
	}

	// export to server for http control
	system.LoggerMap = subsystemLoggers
}

// setLogLevel sets the logging level for provided subsystem.  Invalid
// subsystems are ignored.
func setLogLevel(subsystemID string, level logpkg.Level) {
	// Ignore invalid subsystems.
	logger, ok := subsystemLoggers[subsystemID]
	if !ok {
		return
	}

	logger.SetLevel(level)
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.
func setLogLevels(level logpkg.Level) {
	for subsystemID := range subsystemLoggers {
		setLogLevel(subsystemID, level)
	}
}
