// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package ledger

import (
	"crypto/sha256"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	var a Address
	for i := range a {
		a[i] = byte(i + 1)
	}
	s := a.String()
	require.NotEmpty(t, s)
	b, err := ParseAddress(s)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, a.IsEqual(b))

	// text marshalling
	buf, err := a.MarshalText()
	require.NoError(t, err)
	var c Address
	require.NoError(t, c.UnmarshalText(buf))
	assert.Equal(t, a, c)

	// hex fallback
	d, err := ParseAddress("0102030405060708090a0b0c0d0e0f1011121314")
	require.NoError(t, err)
	assert.Equal(t, a, d)
}

func TestAddressInvalid(t *testing.T) {
	_, err := ParseAddress("")
	assert.Error(t, err)
	_, err = ParseAddress("not-an-address")
	assert.Error(t, err)

	var z Address
	assert.True(t, z.IsZero())
	assert.False(t, z.IsValid())

	// flipping a character breaks the checksum
	var a Address
	a[0] = 0x7f
	s := []byte(a.String())
	if s[len(s)-1] == 'x' {
		s[len(s)-1] = 'y'
	} else {
		s[len(s)-1] = 'x'
	}
	_, err = ParseAddress(string(s))
	assert.Error(t, err)
}

func TestHashOperationLayout(t *testing.T) {
	var target Address
	target[19] = 0x42
	var pred OpHash
	pred[0] = 0x01
	var salt [32]byte
	salt[31] = 0xff
	payload := []byte("set_min_delay(3600)")

	id := HashOperation(target, 1500, payload, pred, salt)

	// the documented preimage layout must reproduce the id
	buf := make([]byte, 0, 128)
	buf = append(buf, target[:]...)
	buf = binary.BigEndian.AppendUint64(buf, 1500)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, pred[:]...)
	buf = append(buf, salt[:]...)
	want := OpHash(sha256.Sum256(buf))
	assert.Equal(t, want, id)

	// every input moves the id
	assert.NotEqual(t, id, HashOperation(target, 1501, payload, pred, salt))
	assert.NotEqual(t, id, HashOperation(target, 1500, []byte("other"), pred, salt))
	assert.NotEqual(t, id, HashOperation(target, 1500, payload, ZeroOpHash, salt))
	var salt2 [32]byte
	assert.NotEqual(t, id, HashOperation(target, 1500, payload, pred, salt2))

	// same content, same id
	assert.Equal(t, id, HashOperation(target, 1500, payload, pred, salt))
}

func TestOpHashRoundTrip(t *testing.T) {
	id := HashOperation(Address{}, 0, nil, ZeroOpHash, [32]byte{})
	s := id.String()
	require.Len(t, s, 64)
	h, err := ParseOpHash(s)
	require.NoError(t, err)
	assert.Equal(t, id, h)
	_, err = ParseOpHash("abc")
	assert.Error(t, err)
	_, err = ParseOpHash(s[:63] + "z")
	assert.Error(t, err)
}

func TestEnumRoundTrips(t *testing.T) {
	for _, s := range ProposalStatuses {
		assert.Equal(t, s, ParseProposalStatus(s.String()), s.String())
	}
	for _, r := range Roles {
		assert.Equal(t, r, ParseRole(r.String()), r.String())
	}
	for _, k := range ActionKinds {
		assert.Equal(t, k, ParseActionKind(k.String()), k.String())
	}
	assert.False(t, ParseRole("owner").IsValid())
	assert.False(t, ParseProposalStatus("queued").IsValid())
	assert.False(t, ParseActionKind("upgrade").IsValid())
	assert.True(t, ProposalStatusFailed.IsFinal())
	assert.True(t, ProposalStatusExecuted.IsFinal())
	assert.False(t, ProposalStatusActive.IsFinal())
	assert.False(t, ProposalStatusPassed.IsFinal())
}

func TestParams(t *testing.T) {
	p := NewParams()
	require.NoError(t, p.Check())
	assert.True(t, p.ForNetwork("mainnet").IsMainnet())

	// testnet floor is relaxed against the production floor
	test := p.ForNetwork("testnet")
	require.NoError(t, test.Check())
	assert.Less(t, test.MinDelay, p.ForNetwork("mainnet").MinDelay)

	bad := NewParams()
	bad.QuorumPct = 101
	assert.Error(t, bad.Check())
	bad = NewParams()
	bad.MaxDelay = bad.MinDelay - time.Second
	assert.Error(t, bad.Check())
	bad = NewParams()
	bad.VotingPeriod = 0
	assert.Error(t, bad.Check())
}
