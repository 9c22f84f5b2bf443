// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package tables

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"blockwatch.cc/packdb/encoding/csv"
	"blockwatch.cc/packdb/pack"
	"blockwatch.cc/packdb/util"

	"github.com/Preciousbas/polichain-governance/gov/model"
	"github.com/Preciousbas/polichain-governance/ledger"
	"github.com/Preciousbas/polichain-governance/server"
)

var (
	// long -> short form
	roleSourceNames map[string]string
	// all aliases as list
	roleAllAliases []string
)

func init() {
	fields, err := pack.Fields(&model.RoleGrant{})
	if err != nil {
		log.Fatalf("role grant field type error: %v\n", err)
	}
	roleSourceNames = fields.NameMapReverse()
	roleAllAliases = fields.Aliases()
}

// configurable marshalling helper
type RoleGrant struct {
	model.RoleGrant
	verbose bool            // cond. marshal
	columns util.StringList // cond. cols & order when brief
}

func (g *RoleGrant) MarshalJSON() ([]byte, error) {
	if g.verbose {
		return g.MarshalJSONVerbose()
	}
	return g.MarshalJSONBrief()
}

func (g *RoleGrant) MarshalJSONVerbose() ([]byte, error) {
	grant := struct {
		RowId     uint64 `json:"row_id"`
		Role      string `json:"role"`
		Grantee   string `json:"grantee"`
		GrantedBy string `json:"granted_by"`
		Height    int64  `json:"height"`
		Time      int64  `json:"time"`
	}{
		RowId:     uint64(g.RowId),
		Role:      g.Role.String(),
		Grantee:   g.Grantee.String(),
		GrantedBy: g.GrantedBy.String(),
		Height:    g.Height,
		Time:      util.UnixMilliNonZero(g.Time),
	}
	return json.Marshal(grant)
}

func (g *RoleGrant) MarshalJSONBrief() ([]byte, error) {
	buf := make([]byte, 0, 2048)
	buf = append(buf, '[')
	for i, v := range g.columns {
		switch v {
		case "row_id":
			buf = strconv.AppendUint(buf, uint64(g.RowId), 10)
		case "role":
			buf = strconv.AppendQuote(buf, g.Role.String())
		case "grantee":
			buf = strconv.AppendQuote(buf, g.Grantee.String())
		case "granted_by":
			buf = strconv.AppendQuote(buf, g.GrantedBy.String())
		case "height":
			buf = strconv.AppendInt(buf, g.Height, 10)
		case "time":
			buf = strconv.AppendInt(buf, util.UnixMilliNonZero(g.Time), 10)
		default:
			continue
		}
		if i < len(g.columns)-1 {
			buf = append(buf, ',')
		}
	}
	buf = append(buf, ']')
	return buf, nil
}

func (g *RoleGrant) MarshalCSV() ([]string, error) {
	res := make([]string, len(g.columns))
	for i, v := range g.columns {
		switch v {
		case "row_id":
			res[i] = strconv.FormatUint(uint64(g.RowId), 10)
		case "role":
			res[i] = strconv.Quote(g.Role.String())
		case "grantee":
			res[i] = strconv.Quote(g.Grantee.String())
		case "granted_by":
			res[i] = strconv.Quote(g.GrantedBy.String())
		case "height":
			res[i] = strconv.FormatInt(g.Height, 10)
		case "time":
			res[i] = strconv.Quote(g.Time.Format(time.RFC3339))
		default:
			continue
		}
	}
	return res, nil
}

func StreamRoleTable(ctx *server.Context, args *TableRequest) (interface{}, int) {
	// access table
	table, err := ctx.Engine.Store().Table(args.Table)
	if err != nil {
		panic(server.ENotFound(server.EC_RESOURCE_NOTFOUND, fmt.Sprintf("cannot access table '%s'", args.Table), err))
	}

	// translate long column names to short names used in pack tables
	var srcNames []string
	if len(args.Columns) > 0 {
		// resolve short column names
		srcNames = make([]string, 0, len(args.Columns))
		for _, v := range args.Columns {
			n, ok := roleSourceNames[v]
			if !ok {
				panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("unknown column '%s'", v), nil))
			}
			if n != "-" {
				srcNames = append(srcNames, n)
			}
		}
	} else {
		// use all table columns in order and reverse lookup their long names
		srcNames = table.Fields().Names()
		args.Columns = roleAllAliases
	}

	// build table query
	q := pack.NewQuery(ctx.RequestID).
		WithTable(table).
		WithFields(srcNames...).
		WithLimit(int(args.Limit)).
		WithOrder(args.Order)

	// build dynamic filter conditions from query (will panic on error)
	for key, val := range ctx.Request.URL.Query() {
		keys := strings.Split(key, ".")
		prefix := keys[0]
		mode := pack.FilterModeEqual
		if len(keys) > 1 {
			mode = pack.ParseFilterMode(keys[1])
			if !mode.IsValid() {
				panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid filter mode '%s'", keys[1]), nil))
			}
		}
		switch prefix {
		case "columns", "limit", "order", "verbose", "filename":
			// skip these fields
		case "cursor":
			// add row id condition: id > cursor (new cursor == last row id)
			id, err := strconv.ParseUint(val[0], 10, 64)
			if err != nil {
				panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid cursor value '%s'", val), err))
			}
			cursorMode := pack.FilterModeGt
			if args.Order == pack.OrderDesc {
				cursorMode = pack.FilterModeLt
			}
			q = q.And("I", cursorMode, id)
		case "role":
			switch mode {
			case pack.FilterModeEqual, pack.FilterModeNotEqual:
				role := ledger.ParseRole(val[0])
				if !role.IsValid() {
					panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid role '%s'", val[0]), nil))
				}
				q = q.And("role", mode, role)
			case pack.FilterModeIn, pack.FilterModeNotIn:
				roles := make([]int64, 0)
				for _, t := range strings.Split(val[0], ",") {
					role := ledger.ParseRole(t)
					if !role.IsValid() {
						panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid role '%s'", t), nil))
					}
					roles = append(roles, int64(role))
				}
				q = q.And("role", mode, roles)
			default:
				panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid filter mode '%s' for column '%s'", mode, prefix), nil))
			}
		case "grantee", "granted_by":
			// parse addresses into their stored byte form
			switch mode {
			case pack.FilterModeEqual, pack.FilterModeNotEqual:
				addr, err := ledger.ParseAddress(val[0])
				if err != nil {
					panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid address '%s'", val[0]), err))
				}
				q = q.And(prefix, mode, addr.Bytes())
			case pack.FilterModeIn, pack.FilterModeNotIn:
				addrs := make([][]byte, 0)
				for _, v := range strings.Split(val[0], ",") {
					addr, err := ledger.ParseAddress(v)
					if err != nil {
						panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid address '%s'", v), err))
					}
					addrs = append(addrs, addr.Bytes())
				}
				q = q.And(prefix, mode, addrs)
			default:
				panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid filter mode '%s' for column '%s'", mode, prefix), nil))
			}
		default:
			// translate long column name used in query to short column name used in packs
			if short, ok := roleSourceNames[prefix]; !ok {
				panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("unknown column '%s'", prefix), nil))
			} else {
				key = strings.Replace(key, prefix, short, 1)
			}

			// the same field name may appear multiple times, in which case conditions
			// are combined like any other condition with logical AND
			for _, v := range val {
				if cond, err := pack.ParseCondition(key, v, table.Fields()); err != nil {
					panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid %s filter value '%s'", key, v), err))
				} else {
					q.Conditions.AddAndCondition(&cond)
				}
			}
		}
	}

	var (
		count  int
		lastId uint64
	)

	// prepare return type marshalling
	val := &RoleGrant{
		verbose: args.Verbose,
		columns: args.Columns,
	}

	// prepare response stream
	ctx.StreamResponseHeaders(http.StatusOK, mimetypes[args.Format])

	switch args.Format {
	case "json":
		enc := json.NewEncoder(ctx.ResponseWriter)
		enc.SetIndent("", "")
		enc.SetEscapeHTML(false)

		// open JSON array
		_, _ = io.WriteString(ctx.ResponseWriter, "[")
		// close JSON array on panic
		defer func() {
			if e := recover(); e != nil {
				_, _ = io.WriteString(ctx.ResponseWriter, "]")
				panic(e)
			}
		}()

		// run query and stream results
		var needComma bool
		err = table.Stream(ctx, q, func(r pack.Row) error {
			if needComma {
				_, _ = io.WriteString(ctx.ResponseWriter, ",")
			} else {
				needComma = true
			}
			if err := r.Decode(val); err != nil {
				return err
			}
			if err := enc.Encode(val); err != nil {
				return err
			}
			count++
			lastId = uint64(val.RowId)
			if args.Limit > 0 && count == int(args.Limit) {
				return io.EOF
			}
			return nil
		})
		// close JSON bracket
		_, _ = io.WriteString(ctx.ResponseWriter, "]")

	case "csv":
		enc := csv.NewEncoder(ctx.ResponseWriter)
		// use custom header columns and order
		if len(args.Columns) > 0 {
			err = enc.EncodeHeader(args.Columns, nil)
		}
		if err == nil {
			// run query and stream results
			err = table.Stream(ctx, q, func(r pack.Row) error {
				if err := r.Decode(val); err != nil {
					return err
				}
				if err := enc.EncodeRecord(val); err != nil {
					return err
				}
				count++
				lastId = uint64(val.RowId)
				if args.Limit > 0 && count == int(args.Limit) {
					return io.EOF
				}
				return nil
			})
		}
	}

	// without new records, cursor remains the same as input (may be empty)
	cursor := args.Cursor
	if lastId > 0 {
		cursor = strconv.FormatUint(lastId, 10)
	}

	// write error (except EOF), cursor and count as http trailer
	ctx.StreamTrailer(cursor, count, err)

	// streaming return
	return nil, -1
}
