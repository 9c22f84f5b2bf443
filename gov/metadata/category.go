// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package metadata

import (
	"strings"
)

func init() {
	var b strings.Builder
	for i, v := range Categories {
		if i > 0 {
			b.WriteRune(',')
		}
		b.WriteRune('"')
		b.WriteString(v)
		b.WriteRune('"')
	}
	str := strings.Replace(opSchema, `{{CATEGORIES}}`, b.String(), -1)
	LoadSchema(opNs, []byte(str), &OpInfo{})
}

// Categories are the accepted queue operation classes. The list feeds
// the op schema enum and the submit endpoint filter.
var Categories = []string{
	"treasury",
	"parameter",
	"protocol",
	"emergency",
	"routine",
	"other",
}

func IsCategory(s string) bool {
	for _, v := range Categories {
		if v == s {
			return true
		}
	}
	return false
}

const (
	opNs     = "op"
	opSchema = `{
	"$schema": "http://json-schema.org/draft/2019-09/schema#",
	"$id": "https://api.polichain.dev/metadata/schemas/op.json",
	"title": "Operation Info",
    "description": "Classification for a queued timelock operation.",
	"type": "object",
	"required": [ "category" ],
	"properties": {
		"category": {
		  "type": "string",
		  "enum": [{{CATEGORIES}}],
		  "description": "Operation class used for filtering."
		},
		"note": {
		  "type": "string",
		  "description": "Operator note shown next to the queue entry."
		},
		"proposal_id": {
		  "type": "integer",
		  "minimum": 1,
		  "description": "Registry proposal this operation enacts, if any."
		}
	}
}`
)

type OpInfo struct {
	Category   string `json:"category"`
	Note       string `json:"note,omitempty"`
	ProposalId uint64 `json:"proposal_id,omitempty"`
}

func (d OpInfo) Namespace() string {
	return opNs
}

func (d OpInfo) Validate() error {
	s, ok := GetSchema(opNs)
	if ok {
		return s.Validate(d)
	}
	return nil
}
