// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	list := ListSchemas()
	assert.Contains(t, list, "proposal")
	assert.Contains(t, list, "grant")
	assert.Contains(t, list, "op")

	s, ok := GetSchema("proposal")
	require.True(t, ok)
	assert.Equal(t, "proposal", s.Namespace())
	d := s.NewDescriptor()
	require.NotNil(t, d)
	_, isInfo := d.(*ProposalInfo)
	assert.True(t, isInfo)

	_, ok = GetSchema("missing")
	assert.False(t, ok)
}

func TestProposalSchema(t *testing.T) {
	s, ok := GetSchema("proposal")
	require.True(t, ok)

	assert.NoError(t, s.ValidateBytes([]byte(`{
		"title": "Fund the audit",
		"summary": "Pay for a third party review.",
		"tags": ["audit", "security"]
	}`)))

	// title is required and must be non-empty
	assert.Error(t, s.ValidateBytes([]byte(`{"summary":"no title"}`)))
	assert.Error(t, s.ValidateBytes([]byte(`{"title":""}`)))
	assert.Error(t, s.ValidateBytes([]byte(`{"title":1}`)))
	assert.Error(t, s.ValidateBytes([]byte(`{"title":"x","tags":"not-a-list"}`)))
}

func TestGrantSchema(t *testing.T) {
	s, ok := GetSchema("grant")
	require.True(t, ok)

	assert.NoError(t, s.ValidateBytes([]byte(`{"name":"Research Guild","country":"DE"}`)))
	assert.Error(t, s.ValidateBytes([]byte(`{"country":"DE"}`)))
	assert.Error(t, s.ValidateBytes([]byte(`{"name":"X","country":"Germany"}`)))
}

func TestOpSchema(t *testing.T) {
	s, ok := GetSchema("op")
	require.True(t, ok)

	assert.NoError(t, s.ValidateBytes([]byte(`{"category":"treasury","note":"grant payout","proposal_id":4}`)))
	assert.Error(t, s.ValidateBytes([]byte(`{"category":"unknown"}`)))
	assert.Error(t, s.ValidateBytes([]byte(`{"note":"missing category"}`)))

	assert.True(t, IsCategory("treasury"))
	assert.False(t, IsCategory("misc"))
}

func TestProbe(t *testing.T) {
	assert.False(t, IsStructured("plain text description"))
	assert.False(t, IsStructured("{broken"))
	assert.True(t, IsStructured(`{"title":"x"}`))
	assert.True(t, IsStructured("  {\"title\":\"x\"}"))

	info := ParseProposal(`{"title":"Fund the audit","url":"https://forum.example/p/1","tags":["a","b"]}`)
	assert.Equal(t, "Fund the audit", info.Title)
	assert.Equal(t, "https://forum.example/p/1", info.Url)
	assert.Equal(t, []string{"a", "b"}, info.Tags)
	assert.Empty(t, info.Summary)
}
