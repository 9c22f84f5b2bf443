// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package metadata

import (
	"strings"

	"github.com/tidwall/gjson"
)

func init() {
	LoadSchema(proposalNs, []byte(proposalSchema), &ProposalInfo{})
}

const (
	proposalNs     = "proposal"
	proposalSchema = `{
	"$schema": "http://json-schema.org/draft/2019-09/schema#",
	"$id": "https://api.polichain.dev/metadata/schemas/proposal.json",
	"title": "Proposal Info",
	"description": "A structured proposal description.",
	"type": "object",
	"required": [ "title" ],
	"properties": {
	   	"title": {
	   		"type": "string",
			"minLength": 1,
    		"description": "Short display title for this proposal."
    	},
	    "summary": {
	      "description": "A brief summary of the proposed change.",
	      "type": "string"
	    },
	    "url": {
	      "description": "Link to the full proposal text.",
	      "type": "string",
	      "format": "uri"
	    },
	    "discussion": {
	      "description": "Link to the discussion forum thread.",
	      "type": "string",
	      "format": "uri"
	    },
	    "tags": {
	      "description": "Free-form labels used for filtering.",
	      "type": "array",
	      "items": { "type": "string" }
	    }
	}
}`
)

type ProposalInfo struct {
	Title      string   `json:"title"`
	Summary    string   `json:"summary,omitempty"`
	Url        string   `json:"url,omitempty"`
	Discussion string   `json:"discussion,omitempty"`
	Tags       []string `json:"tags,omitempty"`
}

func (d ProposalInfo) Namespace() string {
	return proposalNs
}

func (d ProposalInfo) Validate() error {
	s, ok := GetSchema(proposalNs)
	if ok {
		return s.Validate(d)
	}
	return nil
}

// IsStructured detects whether a description carries a JSON document
// instead of plain text.
func IsStructured(desc string) bool {
	desc = strings.TrimSpace(desc)
	return strings.HasPrefix(desc, "{") && gjson.Valid(desc)
}

// ParseProposal extracts the known fields of a structured description.
// Unknown fields are ignored, nothing is validated; use the schema when
// acceptance matters.
func ParseProposal(desc string) *ProposalInfo {
	doc := gjson.Parse(desc)
	info := &ProposalInfo{
		Title:      doc.Get("title").String(),
		Summary:    doc.Get("summary").String(),
		Url:        doc.Get("url").String(),
		Discussion: doc.Get("discussion").String(),
	}
	for _, t := range doc.Get("tags").Array() {
		info.Tags = append(info.Tags, t.String())
	}
	return info
}
