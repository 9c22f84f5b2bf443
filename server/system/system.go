// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package system

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Preciousbas/polichain-governance/server"
	"github.com/Preciousbas/polichain-governance/server/explorer"

	"github.com/echa/config"
	logpkg "github.com/echa/log"
)

// flusher is implemented by the embedded token ledger which maintains
// its own database. A remote token oracle has nothing to flush.
type flusher interface {
	Flush(context.Context) error
	FlushJournals(context.Context) error
	GC(context.Context, float64) error
}

// LoggerMap is set by the cmd package at startup. It maps subsystem
// tags to their loggers so log levels can be changed at runtime.
var LoggerMap map[string]logpkg.Logger

func init() {
	server.Register(SystemRequest{})
}

var _ server.RESTful = (*SystemRequest)(nil)
var _ server.Resource = (*SystemRequest)(nil)

type SystemRequest struct{}

func (t SystemRequest) LastModified() time.Time {
	return time.Now().UTC()
}

func (t SystemRequest) Expires() time.Time {
	return time.Time{}
}

func (t SystemRequest) RESTPrefix() string {
	return "/system"
}

func (t SystemRequest) RESTPath(r *mux.Router) string {
	return ""
}

func (t SystemRequest) RegisterDirectRoutes(r *mux.Router) error {
	return nil
}

func (t SystemRequest) RegisterRoutes(r *mux.Router) error {
	// stats & info
	r.HandleFunc("/config", server.C(GetConfig)).Methods("GET")
	r.HandleFunc("/tables", server.C(GetTableStats)).Methods("GET")
	r.HandleFunc("/mem", server.C(GetMemStats)).Methods("GET")
	r.HandleFunc("/caches", server.C(GetCacheStats)).Methods("GET")
	r.HandleFunc("/sysstat", server.C(GetSysStats)).Methods("GET")

	// actions
	r.HandleFunc("/tables/flush", server.C(FlushDatabases)).Methods("PUT")
	r.HandleFunc("/tables/flush_journal", server.C(FlushJournals)).Methods("PUT")
	r.HandleFunc("/tables/gc", server.C(GcDatabases)).Methods("PUT")
	r.HandleFunc("/caches/purge", server.C(PurgeCaches)).Methods("PUT")
	r.HandleFunc("/log/{subsystem}/{level}", server.C(UpdateLog)).Methods("PUT")
	return nil
}

func GetConfig(ctx *server.Context) (interface{}, int) {
	return config.AllSettings(), http.StatusOK
}

func GetTableStats(ctx *server.Context) (interface{}, int) {
	return ctx.Engine.Store().TableStats(), http.StatusOK
}

func GetMemStats(ctx *server.Context) (interface{}, int) {
	return ctx.Engine.Store().MemStats(), http.StatusOK
}

func GetCacheStats(ctx *server.Context) (interface{}, int) {
	return ctx.Engine.CacheStats(), http.StatusOK
}

func GetSysStats(ctx *server.Context) (interface{}, int) {
	s, err := GetSysStat(ctx.Context)
	if err != nil {
		panic(server.EInternal(server.EC_SERVER, "sysstat failed", err))
	}
	return s, http.StatusOK
}

func PurgeCaches(ctx *server.Context) (interface{}, int) {
	explorer.PurgeCaches()
	if err := ctx.Engine.PurgeCaches(ctx.Context); err != nil {
		panic(server.EInternal(server.EC_DATABASE, "cache purge failed", err))
	}
	return nil, http.StatusNoContent
}

func FlushDatabases(ctx *server.Context) (interface{}, int) {
	if err := ctx.Engine.Store().Flush(ctx.Context); err != nil {
		panic(server.EInternal(server.EC_DATABASE, "flush failed", err))
	}
	if f, ok := ctx.Token.(flusher); ok {
		if err := f.Flush(ctx.Context); err != nil {
			panic(server.EInternal(server.EC_DATABASE, "token flush failed", err))
		}
	}
	return nil, http.StatusNoContent
}

func FlushJournals(ctx *server.Context) (interface{}, int) {
	if err := ctx.Engine.Store().FlushJournals(ctx.Context); err != nil {
		panic(server.EInternal(server.EC_DATABASE, "journal flush failed", err))
	}
	if f, ok := ctx.Token.(flusher); ok {
		if err := f.FlushJournals(ctx.Context); err != nil {
			panic(server.EInternal(server.EC_DATABASE, "token journal flush failed", err))
		}
	}
	return nil, http.StatusNoContent
}

func GcDatabases(ctx *server.Context) (interface{}, int) {
	ratio := config.GetFloat64("database.gc_ratio")
	if err := ctx.Engine.Store().GC(ctx.Context, ratio); err != nil {
		panic(server.EInternal(server.EC_DATABASE, "gc failed", err))
	}
	if f, ok := ctx.Token.(flusher); ok {
		if err := f.GC(ctx.Context, ratio); err != nil {
			panic(server.EInternal(server.EC_DATABASE, "token gc failed", err))
		}
	}
	return nil, http.StatusNoContent
}

func UpdateLog(ctx *server.Context) (interface{}, int) {
	sub, _ := mux.Vars(ctx.Request)["subsystem"]
	level, _ := mux.Vars(ctx.Request)["level"]
	lvl := logpkg.ParseLevel(level)
	if lvl == logpkg.LevelInvalid {
		panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("undefined log level '%s'", level), nil))
	}
	var key string
	switch sub {
	case "main":
		key = "MAIN"
	case "governance":
		key = "GOV "
	case "database":
		key = "DATA"
	case "server":
		key = "API "
	case "rpc":
		key = "RPC "
	default:
		panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("undefined subsystem '%s'", sub), nil))
	}
	logger, ok := LoggerMap[key]
	if ok {
		logger.SetLevel(lvl)
	}
	return nil, http.StatusNoContent
}
