// Copyright (c) 2024 Blockwatch Data Inc.
// Author: alex@blockwatch.cc

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/echa/log"

	"github.com/Preciousbas/polichain-governance/rpc"
)

var (
	flags   = flag.NewFlagSet("polivote", flag.ContinueOnError)
	verbose bool
	nocolor bool
	apiurl  string
	sender  string
)

func init() {
	flags.Usage = func() {}
	flags.BoolVar(&verbose, "v", false, "be verbose")
	flags.BoolVar(&nocolor, "no-color", false, "disable color output")
	flags.StringVar(&apiurl, "api", "http://localhost:8000", "governance API URL")
	flags.StringVar(&sender, "sender", "", "sender `address` for write commands")
}

func main() {
	if err := flags.Parse(os.Args[1:]); err != nil {
		if err == flag.ErrHelp {
			fmt.Println("Usage: polivote [options] <cmd> [args]")
			flags.PrintDefaults()
			fmt.Println("\nQuery Commands")
			fmt.Printf("  status                      show API server status\n")
			fmt.Printf("  tip                         show governance tip\n")
			fmt.Printf("  config                      show deployment parameters\n")
			fmt.Printf("  proposals [k=v ...]         list proposals, filters pass through\n")
			fmt.Printf("  proposal <id>               show a single proposal\n")
			fmt.Printf("  ballots <id>                list ballots cast on a proposal\n")
			fmt.Printf("  voter <id> <address>        show voter status on a proposal\n")
			fmt.Printf("  quorum <id>                 show quorum progress\n")
			fmt.Printf("  ops [k=v ...]               list timelock operations\n")
			fmt.Printf("  op <hash>                   show a single timelock operation\n")
			fmt.Printf("  roles [role]                list role grants\n")
			fmt.Printf("  events [k=v ...]            list governance events\n")
			fmt.Println("\nWrite Commands (require -sender)")
			fmt.Printf("  propose k=v ...             submit a proposal\n")
			fmt.Printf("  vote <id> <yes|no>          cast a ballot\n")
			fmt.Printf("  finalize <id>               tally an expired proposal\n")
			fmt.Printf("  execute <id>                execute a passed proposal\n")
			fmt.Printf("  schedule k=v ...            queue a timelock operation\n")
			fmt.Printf("  execute-op k=v ...          execute a matured timelock operation\n")
			fmt.Printf("  cancel <hash>               cancel a queued operation\n")
			fmt.Printf("  grant role=<r> grantee=<a>  grant a role\n")
			fmt.Printf("  revoke role=<r> grantee=<a> revoke a role\n")
			fmt.Printf("  renounce role=<r>           renounce own role\n")
			fmt.Printf("  bind-executor executor=<a>  bind the executing authority\n")
			fmt.Println("\nProposal Fields")
			fmt.Printf("  kind         (enum) general, mint, transfer, update_quorum\n")
			fmt.Printf("  description  (string) proposal text\n")
			fmt.Printf("  target       (address) mint or transfer recipient\n")
			fmt.Printf("  amount       (int) mint or transfer amount in atomic units\n")
			fmt.Printf("  quorum_pct   (int) new quorum percentage\n")
			fmt.Println("\nTimelock Fields")
			fmt.Printf("  target       (address) call target\n")
			fmt.Printf("  value        (int) transfer amount in atomic units\n")
			fmt.Printf("  payload      (json) call arguments\n")
			fmt.Printf("  predecessor  (hash) operation that must execute first\n")
			fmt.Printf("  salt         (hex) uniqueness salt\n")
			fmt.Printf("  delay        (int) execution delay in seconds\n")
			os.Exit(0)
		}
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	if verbose {
		log.SetLevel(log.LevelDebug)
		rpc.UseLogger(log.Log)
	}

	if err := run(); err != nil {
		if e, ok := rpc.IsApiError(err); ok {
			fmt.Printf("Error: %s: %s\n", e[0].Message, e[0].Detail)
		} else {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run() error {
	if flags.NArg() < 1 {
		return fmt.Errorf("command required")
	}
	cmd := flags.Arg(0)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client, err := rpc.NewClient(apiurl, nil)
	if err != nil {
		return err
	}
	client.UserAgent = "polivote/v1"

	switch cmd {
	case "status":
		return get(ctx, client, "explorer/status")
	case "tip":
		return get(ctx, client, "explorer/tip")
	case "config":
		return get(ctx, client, "explorer/config")
	case "proposals":
		return get(ctx, client, "explorer/proposal"+query(flags.Args()[1:]))
	case "proposal":
		if err := needArgs(1); err != nil {
			return err
		}
		return get(ctx, client, "explorer/proposal/"+flags.Arg(1))
	case "ballots":
		if err := needArgs(1); err != nil {
			return err
		}
		return get(ctx, client, "explorer/proposal/"+flags.Arg(1)+"/ballots"+query(flags.Args()[2:]))
	case "voter":
		if err := needArgs(2); err != nil {
			return err
		}
		return get(ctx, client, fmt.Sprintf("explorer/proposal/%s/votes/%s", flags.Arg(1), flags.Arg(2)))
	case "quorum":
		if err := needArgs(1); err != nil {
			return err
		}
		return get(ctx, client, "explorer/proposal/"+flags.Arg(1)+"/quorum")
	case "ops":
		return get(ctx, client, "explorer/op"+query(flags.Args()[1:]))
	case "op":
		if err := needArgs(1); err != nil {
			return err
		}
		return get(ctx, client, "explorer/op/"+flags.Arg(1))
	case "roles":
		if flags.NArg() > 1 {
			return get(ctx, client, "explorer/role/"+flags.Arg(1))
		}
		return get(ctx, client, "explorer/role")
	case "events":
		return get(ctx, client, "explorer/events"+query(flags.Args()[1:]))
	case "propose":
		return propose(ctx, client)
	case "vote":
		return vote(ctx, client)
	case "finalize":
		return finalize(ctx, client)
	case "execute":
		return execute(ctx, client)
	case "schedule":
		return schedule(ctx, client)
	case "execute-op":
		return executeOp(ctx, client)
	case "cancel":
		return cancelOp(ctx, client)
	case "grant":
		return editRole(ctx, client, "grant")
	case "revoke":
		return editRole(ctx, client, "revoke")
	case "renounce":
		return editRole(ctx, client, "renounce")
	case "bind-executor":
		return bindExecutor(ctx, client)
	default:
		return fmt.Errorf("unknown command %s", cmd)
	}
}

func needArgs(n int) error {
	if flags.NArg() < n+1 {
		return fmt.Errorf("missing arguments")
	}
	return nil
}

func requireSender() error {
	if sender == "" {
		return fmt.Errorf("missing -sender address")
	}
	return nil
}

// query builds a URL query string from trailing k=v arguments.
func query(args []string) string {
	q := make(url.Values)
	for _, arg := range args {
		if ok, k, v := parseKeyValue(arg); ok {
			q.Set(k, v)
		}
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func get(ctx context.Context, c *rpc.Client, urlpath string) error {
	var raw json.RawMessage
	if err := c.Get(ctx, urlpath, &raw); err != nil {
		return err
	}
	print(raw)
	return nil
}

func proposalIdArg() (uint64, error) {
	if err := needArgs(1); err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(flags.Arg(1), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid proposal id %q", flags.Arg(1))
	}
	return id, nil
}

func parseSupport(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "y", "for", "true", "1":
		return true, nil
	case "no", "n", "against", "false", "0":
		return false, nil
	}
	return false, fmt.Errorf("invalid vote %q (use yes or no)", s)
}

func propose(ctx context.Context, c *rpc.Client) error {
	if err := requireSender(); err != nil {
		return err
	}
	kvp, err := parseArgs(flags.Args()[1:])
	if err != nil {
		return err
	}
	req := rpc.ProposeRequest{Sender: sender}
	if err := fillRequest(kvp, &req); err != nil {
		return err
	}
	res, err := c.SubmitProposal(ctx, req)
	if err != nil {
		return err
	}
	print(res)
	return nil
}

func vote(ctx context.Context, c *rpc.Client) error {
	if err := requireSender(); err != nil {
		return err
	}
	if err := needArgs(2); err != nil {
		return err
	}
	id, err := proposalIdArg()
	if err != nil {
		return err
	}
	support, err := parseSupport(flags.Arg(2))
	if err != nil {
		return err
	}
	res, err := c.SubmitBallot(ctx, id, sender, support)
	if err != nil {
		return err
	}
	print(res)
	return nil
}

func finalize(ctx context.Context, c *rpc.Client) error {
	if err := requireSender(); err != nil {
		return err
	}
	id, err := proposalIdArg()
	if err != nil {
		return err
	}
	res, err := c.FinalizeProposal(ctx, id, sender)
	if err != nil {
		return err
	}
	print(res)
	return nil
}

func execute(ctx context.Context, c *rpc.Client) error {
	if err := requireSender(); err != nil {
		return err
	}
	id, err := proposalIdArg()
	if err != nil {
		return err
	}
	res, err := c.ExecuteProposal(ctx, id, sender)
	if err != nil {
		return err
	}
	print(res)
	return nil
}

func schedule(ctx context.Context, c *rpc.Client) error {
	if err := requireSender(); err != nil {
		return err
	}
	kvp, err := parseArgs(flags.Args()[1:])
	if err != nil {
		return err
	}
	req := rpc.ScheduleRequest{Sender: sender}
	if err := fillRequest(kvp, &req); err != nil {
		return err
	}
	res, err := c.ScheduleOp(ctx, req)
	if err != nil {
		return err
	}
	print(res)
	return nil
}

func executeOp(ctx context.Context, c *rpc.Client) error {
	if err := requireSender(); err != nil {
		return err
	}
	kvp, err := parseArgs(flags.Args()[1:])
	if err != nil {
		return err
	}
	req := rpc.ExecuteRequest{Sender: sender}
	if err := fillRequest(kvp, &req); err != nil {
		return err
	}
	res, err := c.ExecuteOp(ctx, req)
	if err != nil {
		return err
	}
	print(res)
	return nil
}

func cancelOp(ctx context.Context, c *rpc.Client) error {
	if err := requireSender(); err != nil {
		return err
	}
	if err := needArgs(1); err != nil {
		return err
	}
	hash := flags.Arg(1)
	if err := c.CancelOp(ctx, hash, sender); err != nil {
		return err
	}
	log.Infof("Cancelled op %s", hash)
	return nil
}

func editRole(ctx context.Context, c *rpc.Client, action string) error {
	if err := requireSender(); err != nil {
		return err
	}
	kvp, err := parseArgs(flags.Args()[1:])
	if err != nil {
		return err
	}
	role, grantee := kvp["role"], kvp["grantee"]
	if role == "" {
		return fmt.Errorf("missing role")
	}
	switch action {
	case "grant":
		res, err := c.GrantRole(ctx, sender, role, grantee)
		if err != nil {
			return err
		}
		print(res)
	case "revoke":
		if err := c.RevokeRole(ctx, sender, role, grantee); err != nil {
			return err
		}
		log.Infof("Revoked %s from %s", role, grantee)
	case "renounce":
		if err := c.RenounceRole(ctx, sender, role); err != nil {
			return err
		}
		log.Infof("Renounced %s", role)
	}
	return nil
}

func bindExecutor(ctx context.Context, c *rpc.Client) error {
	if err := requireSender(); err != nil {
		return err
	}
	kvp, err := parseArgs(flags.Args()[1:])
	if err != nil {
		return err
	}
	res, err := c.BindExecutor(ctx, sender, kvp["executor"])
	if err != nil {
		return err
	}
	print(res)
	return nil
}
