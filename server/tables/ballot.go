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
	ballotSourceNames map[string]string
	// all aliases as list
	ballotAllAliases []string
)

func init() {
	fields, err := pack.Fields(&model.Ballot{})
	if err != nil {
		log.Fatalf("ballot field type error: %v\n", err)
	}
	ballotSourceNames = fields.NameMapReverse()
	ballotAllAliases = fields.Aliases()
}

// configurable marshalling helper
type Ballot struct {
	model.Ballot
	verbose bool            // cond. marshal
	columns util.StringList // cond. cols & order when brief
}

func (b *Ballot) MarshalJSON() ([]byte, error) {
	if b.verbose {
		return b.MarshalJSONVerbose()
	}
	return b.MarshalJSONBrief()
}

func (b *Ballot) MarshalJSONVerbose() ([]byte, error) {
	ballot := struct {
		RowId      uint64 `json:"row_id"`
		ProposalId uint64 `json:"proposal_id"`
		Voter      string `json:"voter"`
		Support    bool   `json:"support"`
		Weight     int64  `json:"weight"`
		Height     int64  `json:"height"`
		Time       int64  `json:"time"`
	}{
		RowId:      uint64(b.RowId),
		ProposalId: uint64(b.ProposalId),
		Voter:      b.Voter.String(),
		Support:    b.Support,
		Weight:     b.Weight,
		Height:     b.Height,
		Time:       util.UnixMilliNonZero(b.Time),
	}
	return json.Marshal(ballot)
}

func (b *Ballot) MarshalJSONBrief() ([]byte, error) {
	buf := make([]byte, 0, 2048)
	buf = append(buf, '[')
	for i, v := range b.columns {
		switch v {
		case "row_id":
			buf = strconv.AppendUint(buf, uint64(b.RowId), 10)
		case "proposal_id":
			buf = strconv.AppendUint(buf, uint64(b.ProposalId), 10)
		case "voter":
			buf = strconv.AppendQuote(buf, b.Voter.String())
		case "support":
			buf = strconv.AppendBool(buf, b.Support)
		case "weight":
			buf = strconv.AppendInt(buf, b.Weight, 10)
		case "height":
			buf = strconv.AppendInt(buf, b.Height, 10)
		case "time":
			buf = strconv.AppendInt(buf, util.UnixMilliNonZero(b.Time), 10)
		default:
			continue
		}
		if i < len(b.columns)-1 {
			buf = append(buf, ',')
		}
	}
	buf = append(buf, ']')
	return buf, nil
}

func (b *Ballot) MarshalCSV() ([]string, error) {
	res := make([]string, len(b.columns))
	for i, v := range b.columns {
		switch v {
		case "row_id":
			res[i] = strconv.FormatUint(uint64(b.RowId), 10)
		case "proposal_id":
			res[i] = strconv.FormatUint(uint64(b.ProposalId), 10)
		case "voter":
			res[i] = strconv.Quote(b.Voter.String())
		case "support":
			res[i] = strconv.FormatBool(b.Support)
		case "weight":
			res[i] = strconv.FormatInt(b.Weight, 10)
		case "height":
			res[i] = strconv.FormatInt(b.Height, 10)
		case "time":
			res[i] = strconv.Quote(b.Time.Format(time.RFC3339))
		default:
			continue
		}
	}
	return res, nil
}

func StreamBallotTable(ctx *server.Context, args *TableRequest) (interface{}, int) {
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
			n, ok := ballotSourceNames[v]
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
		args.Columns = ballotAllAliases
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
		case "voter":
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
			if short, ok := ballotSourceNames[prefix]; !ok {
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
	val := &Ballot{
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
