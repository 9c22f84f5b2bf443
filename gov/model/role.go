// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package model

import (
	"context"
	"time"

	"blockwatch.cc/packdb/pack"

	"github.com/Preciousbas/polichain-governance/ledger"
)

const RoleTableKey = "role"

type RoleGrantID uint64

func (id RoleGrantID) U64() uint64 {
	return uint64(id)
}

// RoleGrant is a (role, grantee) membership row. The zero grantee under
// the executor role opens execution to everyone. Revocation deletes the
// row; history stays visible through the event table.
type RoleGrant struct {
	RowId     RoleGrantID    `pack:"I,pk"      json:"row_id"`
	Role      ledger.Role    `pack:"r,bloom"   json:"role"`
	Grantee   ledger.Address `pack:"A,bloom=3" json:"grantee"`
	GrantedBy ledger.Address `pack:"g"         json:"granted_by"`
	Height    int64          `pack:"h,i32"     json:"height"`
	Time      time.Time      `pack:"t"         json:"time"`
}

// Ensure RoleGrant implements the pack.Item interface.
var _ pack.Item = (*RoleGrant)(nil)

func (r *RoleGrant) ID() uint64 {
	return uint64(r.RowId)
}

func (r *RoleGrant) SetID(id uint64) {
	r.RowId = RoleGrantID(id)
}

func (r *RoleGrant) Reset() {
	*r = RoleGrant{}
}

func (_ RoleGrant) TableKey() string {
	return RoleTableKey
}

func (_ RoleGrant) TableOpts() pack.Options {
	return pack.NoOptions
}

func (_ RoleGrant) IndexOpts(_ string) pack.Options {
	return pack.NoOptions
}

func (r *RoleGrant) Store(ctx context.Context, t *pack.Table) error {
	if r.RowId > 0 {
		return t.Update(ctx, r)
	}
	return t.Insert(ctx, r)
}

func GetRoleGrant(ctx context.Context, t *pack.Table, role ledger.Role, addr ledger.Address) (*RoleGrant, error) {
	r := &RoleGrant{}
	err := pack.NewQuery("find.role_grant").
		WithTable(t).
		AndEqual("role", role).
		AndEqual("grantee", addr).
		Execute(ctx, r)
	if err != nil {
		return nil, err
	}
	if r.RowId == 0 {
		return nil, ErrNoRoleGrant
	}
	return r, nil
}

func ListRoleGrants(ctx context.Context, t *pack.Table, role ledger.Role) ([]*RoleGrant, error) {
	list := make([]*RoleGrant, 0)
	q := pack.NewQuery("list.role_grants").WithTable(t)
	if role.IsValid() {
		q = q.AndEqual("role", role)
	}
	err := q.Execute(ctx, &list)
	if err != nil {
		list = list[:0]
		return nil, err
	}
	return list, nil
}
