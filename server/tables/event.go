// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package tables

import (
	"encoding/hex"
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
	eventSourceNames map[string]string
	// all aliases as list
	eventAllAliases []string
)

func init() {
	fields, err := pack.Fields(&model.Event{})
	if err != nil {
		log.Fatalf("event field type error: %v\n", err)
	}
	eventSourceNames = fields.NameMapReverse()
	eventAllAliases = fields.Aliases()
}

// configurable marshalling helper
type Event struct {
	model.Event
	verbose bool            // cond. marshal
	columns util.StringList // cond. cols & order when brief
}

func (e *Event) MarshalJSON() ([]byte, error) {
	if e.verbose {
		return e.MarshalJSONVerbose()
	}
	return e.MarshalJSONBrief()
}

func (e *Event) MarshalJSONVerbose() ([]byte, error) {
	ev := struct {
		RowId      uint64 `json:"row_id"`
		Height     int64  `json:"height"`
		Time       int64  `json:"time"`
		Type       string `json:"type"`
		Sender     string `json:"sender"`
		ProposalId uint64 `json:"proposal_id"`
		OpHash     string `json:"op_hash"`
		Payload    string `json:"payload"`
	}{
		RowId:      uint64(e.RowId),
		Height:     e.Height,
		Time:       util.UnixMilliNonZero(e.Time),
		Type:       e.Type.String(),
		Sender:     e.Sender.String(),
		ProposalId: uint64(e.ProposalId),
		Payload:    hex.EncodeToString(e.Payload),
	}
	if !e.OpHash.IsZero() {
		ev.OpHash = e.OpHash.String()
	}
	return json.Marshal(ev)
}

func (e *Event) MarshalJSONBrief() ([]byte, error) {
	buf := make([]byte, 0, 2048)
	buf = append(buf, '[')
	for i, v := range e.columns {
		switch v {
		case "row_id":
			buf = strconv.AppendUint(buf, uint64(e.RowId), 10)
		case "height":
			buf = strconv.AppendInt(buf, e.Height, 10)
		case "time":
			buf = strconv.AppendInt(buf, util.UnixMilliNonZero(e.Time), 10)
		case "type":
			buf = strconv.AppendQuote(buf, e.Type.String())
		case "sender":
			buf = strconv.AppendQuote(buf, e.Sender.String())
		case "proposal_id":
			buf = strconv.AppendUint(buf, uint64(e.ProposalId), 10)
		case "op_hash":
			if !e.OpHash.IsZero() {
				buf = strconv.AppendQuote(buf, e.OpHash.String())
			} else {
				buf = append(buf, null...)
			}
		case "payload":
			if e.Payload != nil {
				buf = strconv.AppendQuote(buf, hex.EncodeToString(e.Payload))
			} else {
				buf = append(buf, null...)
			}
		default:
			continue
		}
		if i < len(e.columns)-1 {
			buf = append(buf, ',')
		}
	}
	buf = append(buf, ']')
	return buf, nil
}

func (e *Event) MarshalCSV() ([]string, error) {
	res := make([]string, len(e.columns))
	for i, v := range e.columns {
		switch v {
		case "row_id":
			res[i] = strconv.FormatUint(uint64(e.RowId), 10)
		case "height":
			res[i] = strconv.FormatInt(e.Height, 10)
		case "time":
			res[i] = strconv.Quote(e.Time.Format(time.RFC3339))
		case "type":
			res[i] = strconv.Quote(e.Type.String())
		case "sender":
			res[i] = strconv.Quote(e.Sender.String())
		case "proposal_id":
			res[i] = strconv.FormatUint(uint64(e.ProposalId), 10)
		case "op_hash":
			if !e.OpHash.IsZero() {
				res[i] = strconv.Quote(e.OpHash.String())
			} else {
				res[i] = `""`
			}
		case "payload":
			res[i] = strconv.Quote(hex.EncodeToString(e.Payload))
		default:
			continue
		}
	}
	return res, nil
}

func StreamEventTable(ctx *server.Context, args *TableRequest) (interface{}, int) {
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
			n, ok := eventSourceNames[v]
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
		args.Columns = eventAllAliases
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
		case "type":
			switch mode {
			case pack.FilterModeEqual, pack.FilterModeNotEqual:
				typ := model.ParseEventType(val[0])
				if !typ.IsValid() {
					panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid event type '%s'", val[0]), nil))
				}
				q = q.And("type", mode, typ)
			case pack.FilterModeIn, pack.FilterModeNotIn:
				typs := make([]int64, 0)
				for _, t := range strings.Split(val[0], ",") {
					typ := model.ParseEventType(t)
					if !typ.IsValid() {
						panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid event type '%s'", t), nil))
					}
					typs = append(typs, int64(typ))
				}
				q = q.And("type", mode, typs)
			default:
				panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid filter mode '%s' for column '%s'", mode, prefix), nil))
			}
		case "sender":
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
		case "op_hash":
			// special hash type to []byte conversion
			switch mode {
			case pack.FilterModeEqual, pack.FilterModeNotEqual:
				h, err := ledger.ParseOpHash(val[0])
				if err != nil {
					panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid operation hash '%s'", val[0]), err))
				}
				q = q.And(prefix, mode, h.Bytes())
			case pack.FilterModeIn, pack.FilterModeNotIn:
				hashes := make([][]byte, 0)
				for _, v := range strings.Split(val[0], ",") {
					h, err := ledger.ParseOpHash(v)
					if err != nil {
						panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid operation hash '%s'", v), err))
					}
					hashes = append(hashes, h.Bytes())
				}
				q = q.And(prefix, mode, hashes)
			default:
				panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid filter mode '%s' for column '%s'", mode, prefix), nil))
			}
		default:
			// translate long column name used in query to short column name used in packs
			if short, ok := eventSourceNames[prefix]; !ok {
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
	val := &Event{
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
