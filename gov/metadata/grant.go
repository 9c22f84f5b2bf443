// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package metadata

import (
	"strings"

	"github.com/echa/code/iso"
)

func init() {
	var b strings.Builder
	for i, v := range iso.ISO_3166_1_COUNTRY_CODES {
		if i > 0 {
			b.WriteRune(',')
		}
		b.WriteRune('"')
		b.WriteString(v)
		b.WriteRune('"')
	}
	str := strings.Replace(grantSchema, `{{COUNTRY_CODES}}`, b.String(), -1)
	LoadSchema(grantNs, []byte(str), &GrantInfo{})
}

const (
	grantNs     = "grant"
	grantSchema = `{
	"$schema": "http://json-schema.org/draft/2019-09/schema#",
	"$id": "https://api.polichain.dev/metadata/schemas/grant.json",
	"title": "Grant Info",
    "description": "Beneficiary details for a treasury grant proposal.",
	"type": "object",
	"required": [ "name" ],
	"properties": {
		"name": {
		  "type": "string",
		  "minLength": 1,
		  "description": "Legal or community name of the beneficiary."
		},
		"country": {
		  "type": "string",
		  "description": "ISO 3166-1 Alpha-2 Country Code",
		  "enum": [{{COUNTRY_CODES}}]
		},
		"url": {
		  "type": "string",
		  "format": "uri",
		  "description": "Beneficiary website or application link."
		},
		"contact": {
		  "type": "string",
		  "description": "Contact handle or email."
		}
	}
}`
)

type GrantInfo struct {
	Name    string      `json:"name"`
	Country iso.Country `json:"country,omitempty"`
	Url     string      `json:"url,omitempty"`
	Contact string      `json:"contact,omitempty"`
}

func (d GrantInfo) Namespace() string {
	return grantNs
}

func (d GrantInfo) Validate() error {
	s, ok := GetSchema(grantNs)
	if ok {
		return s.Validate(d)
	}
	return nil
}
