// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type kvpairs map[string]string

func parseArgs(args []string) (kvpairs, error) {
	kvp := make(kvpairs, 0)
	for _, arg := range args {
		ok, k, v := parseKeyValue(arg)
		if !ok {
			return nil, fmt.Errorf("bad key/value: %s", arg)
		}
		kvp[k] = v
	}
	return kvp, nil
}

func unescape(s string) string {
	u := make([]rune, 0, len(s))
	var escape bool
	for _, c := range s {
		if escape {
			u = append(u, c)
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		u = append(u, c)
	}

	return string(u)
}

func parseKeyValue(keyvalue string) (bool, string, string) {
	k := make([]rune, 0, len(keyvalue))
	var escape bool
	for i, c := range keyvalue {
		if escape {
			k = append(k, c)
			escape = false
			continue
		}
		if c == '\\' {
			escape = true
			continue
		}
		if c == '=' {
			return true, string(k), unescape(keyvalue[i+1:])
		}
		k = append(k, c)
	}

	return false, "", ""
}

// fillRequest sets request struct fields addressed by their json tag.
func fillRequest(kvp kvpairs, dst interface{}) error {
	for k, v := range kvp {
		if err := setField(dst, k, v); err != nil {
			return fmt.Errorf("setting %s=%s: %v", k, v, err)
		}
	}
	return nil
}

var (
	rawMessageType  = reflect.TypeOf(json.RawMessage(nil))
	stringSliceType = reflect.TypeOf([]string(nil))
)

func setField(dst interface{}, name, value string) error {
	structValue := reflect.ValueOf(dst).Elem()
	typ := structValue.Type()
	index := -1
	for i := 0; i < typ.NumField(); i++ {
		tag := strings.Split(typ.Field(i).Tag.Get("json"), ",")[0]
		if tag == "-" {
			continue
		}
		if tag == name {
			index = i
			break
		}
	}
	if index < 0 {
		return fmt.Errorf("no such field %s", name)
	}

	field := structValue.FieldByIndex([]int{index})
	if !field.IsValid() || !field.CanSet() {
		return fmt.Errorf("cannot set field %s", name)
	}

	// raw JSON passes through unparsed
	if field.Type() == rawMessageType {
		if !json.Valid([]byte(value)) {
			return fmt.Errorf("invalid JSON value")
		}
		field.Set(reflect.ValueOf(json.RawMessage(value)))
		return nil
	}

	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(i)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		i, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetUint(i)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)
	case reflect.String:
		field.SetString(value)
	case reflect.Slice:
		if field.Type() == stringSliceType {
			field.Set(reflect.ValueOf(strings.Split(value, ",")))
		} else {
			return fmt.Errorf("unsupported slice type %s", field.Type())
		}
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}
