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
	opSourceNames map[string]string
	// all aliases as list
	opAllAliases []string
)

func init() {
	fields, err := pack.Fields(&model.TimelockOp{})
	if err != nil {
		log.Fatalf("timelock op field type error: %v\n", err)
	}
	opSourceNames = fields.NameMapReverse()
	opAllAliases = fields.Aliases()
}

// configurable marshalling helper
type TimelockOp struct {
	model.TimelockOp
	verbose bool            // cond. marshal
	columns util.StringList // cond. cols & order when brief
}

func (o *TimelockOp) MarshalJSON() ([]byte, error) {
	if o.verbose {
		return o.MarshalJSONVerbose()
	}
	return o.MarshalJSONBrief()
}

func (o *TimelockOp) MarshalJSONVerbose() ([]byte, error) {
	op := struct {
		RowId       uint64 `json:"row_id"`
		Hash        string `json:"hash"`
		Target      string `json:"target"`
		Value       int64  `json:"value"`
		Payload     string `json:"payload"`
		Predecessor string `json:"predecessor"`
		Salt        string `json:"salt"`
		Proposer    string `json:"proposer"`
		Delay       int64  `json:"delay"`
		Height      int64  `json:"height"`
		QueuedTime  int64  `json:"queued_time"`
		ReadyTime   int64  `json:"ready_time"`
		IsDone      bool   `json:"is_done"`
		DoneTime    int64  `json:"done_time"`
		Description string `json:"description"`
		Category    string `json:"category"`
	}{
		RowId:       uint64(o.RowId),
		Hash:        o.Hash.String(),
		Target:      o.Target.String(),
		Value:       o.Value,
		Payload:     hex.EncodeToString(o.Payload),
		Salt:        hex.EncodeToString(o.Salt),
		Proposer:    o.Proposer.String(),
		Delay:       int64(o.Delay / time.Second),
		Height:      o.Height,
		QueuedTime:  util.UnixMilliNonZero(o.QueuedTime),
		ReadyTime:   util.UnixMilliNonZero(o.ReadyTime),
		IsDone:      o.IsDone,
		DoneTime:    util.UnixMilliNonZero(o.DoneTime),
		Description: o.Description,
		Category:    o.Category,
	}
	if !o.Predecessor.IsZero() {
		op.Predecessor = o.Predecessor.String()
	}
	return json.Marshal(op)
}

func (o *TimelockOp) MarshalJSONBrief() ([]byte, error) {
	buf := make([]byte, 0, 2048)
	buf = append(buf, '[')
	for i, v := range o.columns {
		switch v {
		case "row_id":
			buf = strconv.AppendUint(buf, uint64(o.RowId), 10)
		case "hash":
			buf = strconv.AppendQuote(buf, o.Hash.String())
		case "target":
			buf = strconv.AppendQuote(buf, o.Target.String())
		case "value":
			buf = strconv.AppendInt(buf, o.Value, 10)
		case "payload":
			if o.Payload != nil {
				buf = strconv.AppendQuote(buf, hex.EncodeToString(o.Payload))
			} else {
				buf = append(buf, null...)
			}
		case "predecessor":
			if !o.Predecessor.IsZero() {
				buf = strconv.AppendQuote(buf, o.Predecessor.String())
			} else {
				buf = append(buf, null...)
			}
		case "salt":
			if o.Salt != nil {
				buf = strconv.AppendQuote(buf, hex.EncodeToString(o.Salt))
			} else {
				buf = append(buf, null...)
			}
		case "proposer":
			buf = strconv.AppendQuote(buf, o.Proposer.String())
		case "delay":
			buf = strconv.AppendInt(buf, int64(o.Delay/time.Second), 10)
		case "height":
			buf = strconv.AppendInt(buf, o.Height, 10)
		case "queued_time":
			buf = strconv.AppendInt(buf, util.UnixMilliNonZero(o.QueuedTime), 10)
		case "ready_time":
			buf = strconv.AppendInt(buf, util.UnixMilliNonZero(o.ReadyTime), 10)
		case "is_done":
			buf = strconv.AppendBool(buf, o.IsDone)
		case "done_time":
			buf = strconv.AppendInt(buf, util.UnixMilliNonZero(o.DoneTime), 10)
		case "description":
			buf = strconv.AppendQuote(buf, o.Description)
		case "category":
			buf = strconv.AppendQuote(buf, o.Category)
		default:
			continue
		}
		if i < len(o.columns)-1 {
			buf = append(buf, ',')
		}
	}
	buf = append(buf, ']')
	return buf, nil
}

func (o *TimelockOp) MarshalCSV() ([]string, error) {
	res := make([]string, len(o.columns))
	for i, v := range o.columns {
		switch v {
		case "row_id":
			res[i] = strconv.FormatUint(uint64(o.RowId), 10)
		case "hash":
			res[i] = strconv.Quote(o.Hash.String())
		case "target":
			res[i] = strconv.Quote(o.Target.String())
		case "value":
			res[i] = strconv.FormatInt(o.Value, 10)
		case "payload":
			res[i] = strconv.Quote(hex.EncodeToString(o.Payload))
		case "predecessor":
			if !o.Predecessor.IsZero() {
				res[i] = strconv.Quote(o.Predecessor.String())
			} else {
				res[i] = `""`
			}
		case "salt":
			res[i] = strconv.Quote(hex.EncodeToString(o.Salt))
		case "proposer":
			res[i] = strconv.Quote(o.Proposer.String())
		case "delay":
			res[i] = strconv.FormatInt(int64(o.Delay/time.Second), 10)
		case "height":
			res[i] = strconv.FormatInt(o.Height, 10)
		case "queued_time":
			res[i] = strconv.Quote(o.QueuedTime.Format(time.RFC3339))
		case "ready_time":
			res[i] = strconv.Quote(o.ReadyTime.Format(time.RFC3339))
		case "is_done":
			res[i] = strconv.FormatBool(o.IsDone)
		case "done_time":
			res[i] = strconv.Quote(o.DoneTime.Format(time.RFC3339))
		case "description":
			res[i] = strconv.Quote(o.Description)
		case "category":
			res[i] = strconv.Quote(o.Category)
		default:
			continue
		}
	}
	return res, nil
}

func StreamOpTable(ctx *server.Context, args *TableRequest) (interface{}, int) {
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
			n, ok := opSourceNames[v]
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
		args.Columns = opAllAliases
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
		case "hash", "predecessor":
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
		case "target", "proposer":
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
			if short, ok := opSourceNames[prefix]; !ok {
				panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("unknown column '%s'", prefix), nil))
			} else {
				key = strings.Replace(key, prefix, short, 1)
			}

			// the same field name may appear multiple times, in which case conditions
			// are combined like any other condition with logical AND
			for _, v := range val {
				if prefix == "delay" {
					// delay is stored as nanoseconds, filters use seconds
					fvals := make([]string, 0)
					for _, vv := range strings.Split(v, ",") {
						sec, err := strconv.ParseInt(vv, 10, 64)
						if err != nil {
							panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid %s filter value '%s'", key, vv), err))
						}
						fvals = append(fvals, strconv.FormatInt(int64(time.Duration(sec)*time.Second), 10))
					}
					v = strings.Join(fvals, ",")
				}
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
	val := &TimelockOp{
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
