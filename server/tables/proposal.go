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
	proposalSourceNames map[string]string
	// all aliases as list
	proposalAllAliases []string
)

func init() {
	fields, err := pack.Fields(&model.Proposal{})
	if err != nil {
		log.Fatalf("proposal field type error: %v\n", err)
	}
	proposalSourceNames = fields.NameMapReverse()
	proposalAllAliases = fields.Aliases()
}

// configurable marshalling helper
type Proposal struct {
	model.Proposal
	verbose bool            // cond. marshal
	columns util.StringList // cond. cols & order when brief
}

func (p *Proposal) MarshalJSON() ([]byte, error) {
	if p.verbose {
		return p.MarshalJSONVerbose()
	}
	return p.MarshalJSONBrief()
}

func (p *Proposal) MarshalJSONVerbose() ([]byte, error) {
	prop := struct {
		RowId         uint64 `json:"row_id"`
		Proposer      string `json:"proposer"`
		Description   string `json:"description"`
		Kind          string `json:"kind"`
		Target        string `json:"target"`
		Amount        int64  `json:"amount"`
		NewQuorumPct  int64  `json:"new_quorum_pct"`
		ForWeight     int64  `json:"for_weight"`
		AgainstWeight int64  `json:"against_weight"`
		NumVoters     int64  `json:"num_voters"`
		Snapshot      int64  `json:"snapshot"`
		Height        int64  `json:"height"`
		StartTime     int64  `json:"start_time"`
		EndTime       int64  `json:"end_time"`
		Status        string `json:"status"`
		IsExecuted    bool   `json:"is_executed"`
		QuorumPct     int64  `json:"quorum_pct"`
		QuorumWeight  int64  `json:"quorum_weight"`
		NoQuorum      bool   `json:"no_quorum"`
		NoMajority    bool   `json:"no_majority"`
		FinalizedTime int64  `json:"finalized_time"`
	}{
		RowId:         uint64(p.RowId),
		Proposer:      p.Proposer.String(),
		Description:   p.Description,
		Kind:          p.Kind.String(),
		Amount:        p.Amount,
		NewQuorumPct:  p.NewQuorumPct,
		ForWeight:     p.ForWeight,
		AgainstWeight: p.AgainstWeight,
		NumVoters:     p.NumVoters,
		Snapshot:      p.Snapshot,
		Height:        p.Height,
		StartTime:     util.UnixMilliNonZero(p.StartTime),
		EndTime:       util.UnixMilliNonZero(p.EndTime),
		Status:        p.Status.String(),
		IsExecuted:    p.IsExecuted,
		QuorumPct:     p.QuorumPct,
		QuorumWeight:  p.QuorumWeight,
		NoQuorum:      p.NoQuorum,
		NoMajority:    p.NoMajority,
		FinalizedTime: util.UnixMilliNonZero(p.FinalizedTime),
	}
	if !p.Target.IsZero() {
		prop.Target = p.Target.String()
	}
	return json.Marshal(prop)
}

func (p *Proposal) MarshalJSONBrief() ([]byte, error) {
	buf := make([]byte, 0, 2048)
	buf = append(buf, '[')
	for i, v := range p.columns {
		switch v {
		case "row_id":
			buf = strconv.AppendUint(buf, uint64(p.RowId), 10)
		case "proposer":
			buf = strconv.AppendQuote(buf, p.Proposer.String())
		case "description":
			buf = strconv.AppendQuote(buf, p.Description)
		case "kind":
			buf = strconv.AppendQuote(buf, p.Kind.String())
		case "target":
			if !p.Target.IsZero() {
				buf = strconv.AppendQuote(buf, p.Target.String())
			} else {
				buf = append(buf, null...)
			}
		case "amount":
			buf = strconv.AppendInt(buf, p.Amount, 10)
		case "new_quorum_pct":
			buf = strconv.AppendInt(buf, p.NewQuorumPct, 10)
		case "for_weight":
			buf = strconv.AppendInt(buf, p.ForWeight, 10)
		case "against_weight":
			buf = strconv.AppendInt(buf, p.AgainstWeight, 10)
		case "num_voters":
			buf = strconv.AppendInt(buf, p.NumVoters, 10)
		case "snapshot":
			buf = strconv.AppendInt(buf, p.Snapshot, 10)
		case "height":
			buf = strconv.AppendInt(buf, p.Height, 10)
		case "start_time":
			buf = strconv.AppendInt(buf, util.UnixMilliNonZero(p.StartTime), 10)
		case "end_time":
			buf = strconv.AppendInt(buf, util.UnixMilliNonZero(p.EndTime), 10)
		case "status":
			buf = strconv.AppendQuote(buf, p.Status.String())
		case "is_executed":
			buf = strconv.AppendBool(buf, p.IsExecuted)
		case "quorum_pct":
			buf = strconv.AppendInt(buf, p.QuorumPct, 10)
		case "quorum_weight":
			buf = strconv.AppendInt(buf, p.QuorumWeight, 10)
		case "no_quorum":
			buf = strconv.AppendBool(buf, p.NoQuorum)
		case "no_majority":
			buf = strconv.AppendBool(buf, p.NoMajority)
		case "finalized_time":
			buf = strconv.AppendInt(buf, util.UnixMilliNonZero(p.FinalizedTime), 10)
		default:
			continue
		}
		if i < len(p.columns)-1 {
			buf = append(buf, ',')
		}
	}
	buf = append(buf, ']')
	return buf, nil
}

func (p *Proposal) MarshalCSV() ([]string, error) {
	res := make([]string, len(p.columns))
	for i, v := range p.columns {
		switch v {
		case "row_id":
			res[i] = strconv.FormatUint(uint64(p.RowId), 10)
		case "proposer":
			res[i] = strconv.Quote(p.Proposer.String())
		case "description":
			res[i] = strconv.Quote(p.Description)
		case "kind":
			res[i] = strconv.Quote(p.Kind.String())
		case "target":
			if !p.Target.IsZero() {
				res[i] = strconv.Quote(p.Target.String())
			} else {
				res[i] = `""`
			}
		case "amount":
			res[i] = strconv.FormatInt(p.Amount, 10)
		case "new_quorum_pct":
			res[i] = strconv.FormatInt(p.NewQuorumPct, 10)
		case "for_weight":
			res[i] = strconv.FormatInt(p.ForWeight, 10)
		case "against_weight":
			res[i] = strconv.FormatInt(p.AgainstWeight, 10)
		case "num_voters":
			res[i] = strconv.FormatInt(p.NumVoters, 10)
		case "snapshot":
			res[i] = strconv.FormatInt(p.Snapshot, 10)
		case "height":
			res[i] = strconv.FormatInt(p.Height, 10)
		case "start_time":
			res[i] = strconv.Quote(p.StartTime.Format(time.RFC3339))
		case "end_time":
			res[i] = strconv.Quote(p.EndTime.Format(time.RFC3339))
		case "status":
			res[i] = strconv.Quote(p.Status.String())
		case "is_executed":
			res[i] = strconv.FormatBool(p.IsExecuted)
		case "quorum_pct":
			res[i] = strconv.FormatInt(p.QuorumPct, 10)
		case "quorum_weight":
			res[i] = strconv.FormatInt(p.QuorumWeight, 10)
		case "no_quorum":
			res[i] = strconv.FormatBool(p.NoQuorum)
		case "no_majority":
			res[i] = strconv.FormatBool(p.NoMajority)
		case "finalized_time":
			res[i] = strconv.Quote(p.FinalizedTime.Format(time.RFC3339))
		default:
			continue
		}
	}
	return res, nil
}

func StreamProposalTable(ctx *server.Context, args *TableRequest) (interface{}, int) {
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
			n, ok := proposalSourceNames[v]
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
		args.Columns = proposalAllAliases
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
		case "proposer", "target":
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
		case "status":
			switch mode {
			case pack.FilterModeEqual, pack.FilterModeNotEqual:
				status := ledger.ParseProposalStatus(val[0])
				if !status.IsValid() {
					panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid proposal status '%s'", val[0]), nil))
				}
				q = q.And("status", mode, status)
			case pack.FilterModeIn, pack.FilterModeNotIn:
				stats := make([]int64, 0)
				for _, t := range strings.Split(val[0], ",") {
					status := ledger.ParseProposalStatus(t)
					if !status.IsValid() {
						panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid proposal status '%s'", t), nil))
					}
					stats = append(stats, int64(status))
				}
				q = q.And("status", mode, stats)
			default:
				panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid filter mode '%s' for column '%s'", mode, prefix), nil))
			}
		case "kind":
			switch mode {
			case pack.FilterModeEqual, pack.FilterModeNotEqual:
				kind := ledger.ParseActionKind(val[0])
				if !kind.IsValid() {
					panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid action kind '%s'", val[0]), nil))
				}
				q = q.And("kind", mode, kind)
			case pack.FilterModeIn, pack.FilterModeNotIn:
				kinds := make([]int64, 0)
				for _, t := range strings.Split(val[0], ",") {
					kind := ledger.ParseActionKind(t)
					if !kind.IsValid() {
						panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid action kind '%s'", t), nil))
					}
					kinds = append(kinds, int64(kind))
				}
				q = q.And("kind", mode, kinds)
			default:
				panic(server.EBadRequest(server.EC_PARAM_INVALID, fmt.Sprintf("invalid filter mode '%s' for column '%s'", mode, prefix), nil))
			}
		default:
			// translate long column name used in query to short column name used in packs
			if short, ok := proposalSourceNames[prefix]; !ok {
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
	val := &Proposal{
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
