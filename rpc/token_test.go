// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Preciousbas/polichain-governance/ledger"
)

var (
	rpcAlice = ledger.NamedAddress("alice")
	rpcBob   = ledger.NamedAddress("bob")
)

// fakeTokenService emulates the remote token ledger wire protocol.
func fakeTokenService(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/balance/", func(w http.ResponseWriter, r *http.Request) {
		addr := strings.TrimPrefix(r.URL.Path, "/balance/")
		_, err := ledger.ParseAddress(addr)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"address":%q,"balance":1000,"height":7}`, addr)
	})
	mux.HandleFunc("/power/", func(w http.ResponseWriter, r *http.Request) {
		addr := strings.TrimPrefix(r.URL.Path, "/power/")
		power := int64(2000)
		if r.URL.Query().Get("height") != "" {
			power = 1500
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"address":%q,"power":%d,"height":7}`, addr, power)
	})
	mux.HandleFunc("/supply", func(w http.ResponseWriter, r *http.Request) {
		total := int64(100000)
		if r.URL.Query().Get("height") != "" {
			total = 90000
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"total":%d,"height":7}`, total)
	})
	mux.HandleFunc("/mint", func(w http.ResponseWriter, r *http.Request) {
		var req MintRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.False(t, req.To.IsZero())
		require.Equal(t, int64(500), req.Amount)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/transfer", func(w http.ResponseWriter, r *http.Request) {
		var req TransferRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Amount > 1000 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			fmt.Fprint(w, `{"errors":[{"code":1304,"status":409,"message":"resource state conflict","scope":"Transfer","detail":"insufficient balance"}]}`)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestTokenBridgeReads(t *testing.T) {
	srv := fakeTokenService(t)
	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)
	ctx := context.Background()

	bal, err := c.BalanceOf(ctx, rpcAlice)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), bal)

	power, err := c.VotingPower(ctx, rpcAlice)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), power)

	// checkpoint queries carry the height and return historical values
	power, err = c.VotingPowerAt(ctx, rpcAlice, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(1500), power)

	supply, err := c.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100000), supply)

	supply, err = c.TotalSupplyAt(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(90000), supply)
}

func TestTokenBridgeWrites(t *testing.T) {
	srv := fakeTokenService(t)
	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Mint(ctx, rpcAlice, 500))
	require.NoError(t, c.Transfer(ctx, rpcAlice, rpcBob, 800))
}

func TestTokenBridgeErrors(t *testing.T) {
	srv := fakeTokenService(t)
	c, err := NewClient(srv.URL, nil)
	require.NoError(t, err)
	ctx := context.Background()

	// the service rejects the oversized transfer with an error envelope
	err = c.Transfer(ctx, rpcAlice, rpcBob, 5000)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, ErrorStatus(err))
	errs, ok := IsApiError(err)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, 1304, errs[0].Code)
	assert.Contains(t, errs[0].Detail, "insufficient balance")

	// unknown routes return plain text errors that keep their status
	err = c.Get(ctx, "does-not-exist", nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, ErrorStatus(err))
	_, ok = IsApiError(err)
	assert.False(t, ok)
}

func TestClientBaseURL(t *testing.T) {
	c, err := NewClient("localhost:8000", nil)
	require.NoError(t, err)
	assert.Equal(t, "http", c.BaseURL.Scheme)

	c, err = NewClient("https://gov.example.com?X-Api-Key=secret", nil)
	require.NoError(t, err)
	assert.Equal(t, "secret", c.ApiKey)
}
