// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"errors"

	"blockwatch.cc/packdb/pack"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
	"github.com/Preciousbas/polichain-governance/server"
)

// ListRequest carries paging arguments shared by all list endpoints.
type ListRequest struct {
	Limit  uint           `schema:"limit"`
	Offset uint           `schema:"offset"`
	Cursor uint64         `schema:"cursor"`
	Order  pack.OrderType `schema:"order"`
}

// checkWritable guards state-changing endpoints on read-only deployments.
func checkWritable(ctx *server.Context) {
	if ctx.Cfg.Http.ReadOnly {
		panic(server.EForbidden(server.EC_ACCESS_READONLY, "this API is read-only", nil))
	}
}

// requireAddress decodes a mandatory address argument.
func requireAddress(s, field string) ledger.Address {
	if s == "" {
		panic(server.EBadRequest(server.EC_PARAM_REQUIRED, "missing "+field, nil))
	}
	addr, err := ledger.ParseAddress(s)
	if err != nil {
		panic(server.EBadRequest(server.EC_PARAM_INVALID, "invalid "+field, err))
	}
	return addr
}

// fail maps governance engine errors onto API errors.
func fail(err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		panic(server.ENotFound(server.EC_RESOURCE_NOTFOUND, err.Error(), nil))
	case errors.Is(err, model.ErrInvalidArgument):
		panic(server.EBadRequest(server.EC_PARAM_INVALID, err.Error(), nil))
	case errors.Is(err, model.ErrUnauthorized):
		panic(server.EForbidden(server.EC_ACCESS_DENIED, err.Error(), nil))
	case errors.Is(err, model.ErrInvalidState):
		panic(server.EConflict(server.EC_RESOURCE_STATE_UNEXPECTED, err.Error(), nil))
	case errors.Is(err, model.ErrActionFailed):
		panic(server.EConflict(server.EC_RESOURCE_CONFLICT, err.Error(), nil))
	default:
		panic(server.EInternal(server.EC_DATABASE, err.Error(), err))
	}
}

// withCursor narrows a query to rows after (or before, on descending order)
// the row id passed as cursor.
func withCursor(q pack.Query, cursor uint64, order pack.OrderType) pack.Query {
	if cursor == 0 {
		return q
	}
	mode := pack.FilterModeGt
	if order == pack.OrderDesc {
		mode = pack.FilterModeLt
	}
	return q.And("I", mode, cursor)
}
