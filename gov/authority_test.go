// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package gov

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
)

func TestGrantRevokeRole(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()
	auth := eng.Authority()

	require.NoError(t, eng.GrantRole(ctx, addrAdmin, ledger.RoleProposer, addrAlice))
	assert.True(t, auth.HasRole(ledger.RoleProposer, addrAlice))

	grants, err := eng.Roles(ctx, ledger.RoleProposer)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	var seen bool
	for _, g := range grants {
		if g.Grantee == addrAlice {
			seen = true
			assert.Equal(t, addrAdmin, g.GrantedBy)
		}
	}
	assert.True(t, seen)

	// the grant is live immediately
	_, err = eng.Schedule(ctx, addrAlice, ScheduleRequest{
		Target: addrEve, Value: 10, Salt: salted(1), Delay: time.Minute,
	})
	require.NoError(t, err)

	require.NoError(t, eng.RevokeRole(ctx, addrAdmin, ledger.RoleProposer, addrAlice))
	assert.False(t, auth.HasRole(ledger.RoleProposer, addrAlice))
	_, err = eng.Schedule(ctx, addrAlice, ScheduleRequest{
		Target: addrEve, Value: 10, Salt: salted(2), Delay: time.Minute,
	})
	assert.ErrorIs(t, err, model.ErrMissingRole)
}

func TestGrantRoleChecks(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	err := eng.GrantRole(ctx, addrAdmin, ledger.RoleInvalid, addrAlice)
	assert.ErrorIs(t, err, model.ErrInvalidRole)

	err = eng.GrantRole(ctx, addrAdmin, ledger.RoleProposer, ledger.ZeroAddress)
	assert.ErrorIs(t, err, model.ErrZeroAddress)

	err = eng.GrantRole(ctx, addrAlice, ledger.RoleProposer, addrBob)
	assert.ErrorIs(t, err, model.ErrNotAdmin)

	// re-granting an existing membership changes nothing
	h, nev := eng.Height(), eng.Tip().NumEvents
	require.NoError(t, eng.GrantRole(ctx, addrAdmin, ledger.RoleProposer, addrAdmin))
	assert.Equal(t, h, eng.Height())
	assert.Equal(t, nev, eng.Tip().NumEvents)
}

func TestRevokeRoleChecks(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()

	err := eng.RevokeRole(ctx, addrAlice, ledger.RoleProposer, addrAdmin)
	assert.ErrorIs(t, err, model.ErrNotAdmin)

	err = eng.RevokeRole(ctx, addrAdmin, ledger.RoleInvalid, addrAlice)
	assert.ErrorIs(t, err, model.ErrInvalidRole)

	// revoking a membership that does not exist changes nothing
	h := eng.Height()
	require.NoError(t, eng.RevokeRole(ctx, addrAdmin, ledger.RoleCanceller, addrBob))
	assert.Equal(t, h, eng.Height())
}

func TestRenounceRole(t *testing.T) {
	env := newTestEnv(t, scenarioGenesis())
	eng, ctx := env.engine, env.ctx()
	auth := eng.Authority()

	require.NoError(t, eng.GrantRole(ctx, addrAdmin, ledger.RoleCanceller, addrAlice))
	require.NoError(t, eng.RenounceRole(ctx, addrAlice, ledger.RoleCanceller))
	assert.False(t, auth.HasRole(ledger.RoleCanceller, addrAlice))

	// renouncing admin is final: nobody is left to manage grants
	require.NoError(t, eng.RenounceRole(ctx, addrAdmin, ledger.RoleAdmin))
	assert.False(t, auth.HasRole(ledger.RoleAdmin, addrAdmin))
	err := eng.GrantRole(ctx, addrAdmin, ledger.RoleProposer, addrBob)
	assert.ErrorIs(t, err, model.ErrNotAdmin)
}

func TestExecutorWildcardToggle(t *testing.T) {
	g := scenarioGenesis()
	g.Roles = []*GenesisRole{
		{Role: ledger.RoleAdmin, Addr: addrAdmin},
		{Role: ledger.RoleProposer, Addr: addrAdmin},
		{Role: ledger.RoleExecutor, Addr: addrBob},
	}
	env := newTestEnv(t, g)
	eng, ctx := env.engine, env.ctx()
	auth := eng.Authority()

	assert.True(t, auth.AllowExecutor(addrBob))
	assert.False(t, auth.AllowExecutor(addrCarol))

	// the zero grantee opens execution to everyone
	require.NoError(t, eng.GrantRole(ctx, addrAdmin, ledger.RoleExecutor, ledger.ZeroAddress))
	assert.True(t, auth.AllowExecutor(addrCarol))
	assert.True(t, auth.AllowExecutor(addrEve))

	require.NoError(t, eng.RevokeRole(ctx, addrAdmin, ledger.RoleExecutor, ledger.ZeroAddress))
	assert.False(t, auth.AllowExecutor(addrCarol))
	assert.True(t, auth.AllowExecutor(addrBob), "direct grants survive the wildcard")
}
