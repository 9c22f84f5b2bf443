// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package explorer

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
	"github.com/Preciousbas/polichain-governance/server"
)

func init() {
	server.Register(RoleGrant{})
}

var _ server.RESTful = (*RoleGrant)(nil)

// RoleGrant is the API representation of a role membership.
type RoleGrant struct {
	Id        uint64         `json:"row_id"`
	Role      ledger.Role    `json:"role"`
	Grantee   ledger.Address `json:"grantee"`
	GrantedBy ledger.Address `json:"granted_by"`
	Wildcard  bool           `json:"wildcard,omitempty"`
	Height    int64          `json:"height"`
	Time      time.Time      `json:"time"`
}

func NewRoleGrant(g *model.RoleGrant) *RoleGrant {
	return &RoleGrant{
		Id:        uint64(g.RowId),
		Role:      g.Role,
		Grantee:   g.Grantee,
		GrantedBy: g.GrantedBy,
		Wildcard:  g.Role == ledger.RoleExecutor && g.Grantee.IsZero(),
		Height:    g.Height,
		Time:      g.Time,
	}
}

func (r RoleGrant) RESTPrefix() string {
	return "/explorer/role"
}

func (r RoleGrant) RESTPath(m *mux.Router) string {
	return r.RESTPrefix() + "/" + r.Role.String()
}

func (r RoleGrant) RegisterDirectRoutes(m *mux.Router) error {
	m.HandleFunc(r.RESTPrefix(), server.C(ListRoles)).Methods("GET")
	return nil
}

func (r RoleGrant) RegisterRoutes(m *mux.Router) error {
	m.HandleFunc("/grant", server.C(GrantRole)).Methods("POST")
	m.HandleFunc("/revoke", server.C(RevokeRole)).Methods("POST")
	m.HandleFunc("/renounce", server.C(RenounceRole)).Methods("POST")
	m.HandleFunc("/executor", server.C(BindExecutor)).Methods("POST")
	m.HandleFunc("/{role}", server.C(ListRoles)).Methods("GET").Name("role")
	m.HandleFunc("/{role}/{address}", server.C(ReadRoleStatus)).Methods("GET")
	return nil
}

func parseRole(s string) ledger.Role {
	if s == "" {
		panic(server.EBadRequest(server.EC_PARAM_REQUIRED, "missing role", nil))
	}
	role := ledger.ParseRole(s)
	if !role.IsValid() {
		panic(server.EBadRequest(server.EC_PARAM_INVALID, "invalid role", nil))
	}
	return role
}

type RoleListRequest struct {
	Role string `schema:"role"`
}

func ListRoles(ctx *server.Context) (interface{}, int) {
	args := &RoleListRequest{}
	ctx.ParseRequestArgs(args)
	if v, ok := mux.Vars(ctx.Request)["role"]; ok && v != "" {
		args.Role = v
	}
	role := ledger.RoleInvalid // lists all roles
	if args.Role != "" {
		role = parseRole(args.Role)
	}
	grants, err := ctx.Engine.Roles(ctx.Context, role)
	if err != nil {
		fail(err)
	}
	resp := make([]*RoleGrant, 0, len(grants))
	for _, v := range grants {
		resp = append(resp, NewRoleGrant(v))
	}
	return resp, http.StatusOK
}

// RoleStatus answers membership checks for a single address.
type RoleStatus struct {
	Role         ledger.Role    `json:"role"`
	Address      ledger.Address `json:"address"`
	Granted      bool           `json:"granted"`
	AllowExecute bool           `json:"allow_execute"`
}

func ReadRoleStatus(ctx *server.Context) (interface{}, int) {
	vars := mux.Vars(ctx.Request)
	role := parseRole(vars["role"])
	addr, err := ledger.ParseAddress(vars["address"])
	if err != nil {
		panic(server.EBadRequest(server.EC_RESOURCE_ID_MALFORMED, "invalid address", err))
	}
	auth := ctx.Engine.Authority()
	return RoleStatus{
		Role:         role,
		Address:      addr,
		Granted:      auth.HasRole(role, addr),
		AllowExecute: auth.AllowExecutor(addr),
	}, http.StatusOK
}

type RoleEditRequest struct {
	Sender  string `json:"sender"`
	Role    string `json:"role"`
	Grantee string `json:"grantee"`
}

func (r RoleEditRequest) Decode() (ledger.Address, ledger.Role, ledger.Address) {
	sender := requireAddress(r.Sender, "sender")
	role := parseRole(r.Role)
	// the zero grantee binds the open-executor wildcard
	var grantee ledger.Address
	if r.Grantee != "" {
		grantee = requireAddress(r.Grantee, "grantee")
	}
	return sender, role, grantee
}

func GrantRole(ctx *server.Context) (interface{}, int) {
	checkWritable(ctx)
	args := &RoleEditRequest{}
	ctx.ParseRequestArgs(args)
	sender, role, grantee := args.Decode()
	if err := ctx.Engine.GrantRole(ctx.Context, sender, role, grantee); err != nil {
		fail(err)
	}
	table, err := ctx.Engine.Store().Table(model.RoleTableKey)
	if err != nil {
		fail(err)
	}
	grant, err := model.GetRoleGrant(ctx.Context, table, role, grantee)
	if err != nil {
		fail(err)
	}
	return NewRoleGrant(grant), http.StatusCreated
}

func RevokeRole(ctx *server.Context) (interface{}, int) {
	checkWritable(ctx)
	args := &RoleEditRequest{}
	ctx.ParseRequestArgs(args)
	sender, role, grantee := args.Decode()
	if err := ctx.Engine.RevokeRole(ctx.Context, sender, role, grantee); err != nil {
		fail(err)
	}
	return nil, http.StatusNoContent
}

func RenounceRole(ctx *server.Context) (interface{}, int) {
	checkWritable(ctx)
	args := &RoleEditRequest{}
	ctx.ParseRequestArgs(args)
	sender := requireAddress(args.Sender, "sender")
	role := parseRole(args.Role)
	if err := ctx.Engine.RenounceRole(ctx.Context, sender, role); err != nil {
		fail(err)
	}
	return nil, http.StatusNoContent
}

type BindExecutorRequest struct {
	Sender   string `json:"sender"`
	Executor string `json:"executor"`
}

// ExecutorInfo reports the executor binding after a successful bind.
type ExecutorInfo struct {
	Executor string `json:"executor"`
}

func BindExecutor(ctx *server.Context) (interface{}, int) {
	checkWritable(ctx)
	args := &BindExecutorRequest{}
	ctx.ParseRequestArgs(args)
	sender := requireAddress(args.Sender, "sender")
	executor := requireAddress(args.Executor, "executor")
	if err := ctx.Engine.BindExecutor(ctx.Context, sender, executor); err != nil {
		fail(err)
	}
	return ExecutorInfo{Executor: executor.String()}, http.StatusOK
}
