// Command starfund is the crowdfunding client CLI: create campaigns, donate,
// claim, read campaign state, and watch the contract event feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stellar/go/amount"

	"github.com/starfund-labs/starfund/core/pkg/config"
	"github.com/starfund-labs/starfund/core/pkg/contract"
	"github.com/starfund-labs/starfund/core/pkg/events"
	"github.com/starfund-labs/starfund/core/pkg/rpc"
	"github.com/starfund-labs/starfund/core/pkg/wallet"
)

func main() {
	os.Exit(Run(os.Args, os.Stdout, os.Stderr))
}

// Run is the entrypoint, split from main for testing.
func Run(args []string, stdout, stderr io.Writer) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	switch args[1] {
	case "create":
		return runCreate(args[2:], stdout, stderr)
	case "donate":
		return runDonate(args[2:], stdout, stderr)
	case "claim":
		return runClaim(args[2:], stdout, stderr)
	case "campaign":
		return runCampaign(args[2:], stdout, stderr)
	case "count":
		return runCount(args[2:], stdout, stderr)
	case "watch":
		return runWatch(args[2:], stdout, stderr)
	case "fund":
		return runFund(args[2:], stdout, stderr)
	case "balance":
		return runBalance(args[2:], stdout, stderr)
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[1])
		usage(stderr)
		return 2
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `Usage: starfund <command> [flags]

Commands:
  create    create a campaign (-title, -desc, -target XLM, -days)
  donate    donate to a campaign (-id, -amount XLM)
  claim     claim a finished campaign (-id)
  campaign  show one campaign (-id, -fresh to bypass the cache)
  count     show the number of campaigns
  watch     stream contract events until interrupted
  fund      fund an account via friendbot (-address)
  balance   show an account's native balance (-address)

Environment:
  STARFUND_CONTRACT_ID    contract to talk to (required unless mock mode)
  STARFUND_SECRET_KEY     local signing key (S...)
  STARFUND_MOCK_MODE      "true" runs against an in-memory ledger
  STARFUND_PROFILE        network profile name (see -profiles dir)`)
}

// env holds everything a subcommand needs.
type env struct {
	cfg    *config.Config
	ledger contract.Ledger
	rpc    *rpc.Client // nil in mock mode
	client *contract.Client
	addr   string
	kind   wallet.Kind
}

func setup(fs *flag.FlagSet, args []string, stderr io.Writer) (*env, error) {
	profilesDir := fs.String("profiles", "profiles", "directory with network profile YAML files")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := config.Load()
	if name := os.Getenv("STARFUND_PROFILE"); name != "" {
		profile, err := config.LoadProfile(*profilesDir, name)
		if err != nil {
			return nil, fmt.Errorf("load profile %q: %w", name, err)
		}
		profile.Apply(cfg)
	}
	setupLogging(cfg.LogLevel, stderr)

	e := &env{cfg: cfg, kind: wallet.KindLocal}

	registry := wallet.NewRegistry()
	if seed := os.Getenv("STARFUND_SECRET_KEY"); seed != "" {
		signer, err := wallet.NewKeypairSigner(seed)
		if err != nil {
			return nil, fmt.Errorf("bad STARFUND_SECRET_KEY: %w", err)
		}
		registry.Register(signer)
		e.addr = signer.Address()
	}
	if bridge := os.Getenv("STARFUND_BRIDGE_URL"); bridge != "" {
		for _, kind := range []wallet.Kind{wallet.KindFreighter, wallet.KindAlbedo, wallet.KindXBull} {
			registry.Register(wallet.NewBridgeSigner(kind, bridge))
		}
	}

	if cfg.MockMode {
		if cfg.ContractID == "" {
			cfg.ContractID = "CA3D5KRYM6CB7OWQ6TWYRR3Z4T7GNZLKERYNZGGA5SOAOPIFY6YQGAXE"
		}
		e.ledger = contract.NewMockLedger(cfg.ContractID, cfg.NetworkPassphrase)
	} else {
		e.rpc = rpc.New(cfg.SorobanRPCURL, cfg.HorizonURL, rpc.WithFriendbot(cfg.FriendbotURL))
		e.ledger = e.rpc
	}

	client, err := contract.NewClient(cfg, e.ledger, registry)
	if err != nil {
		return nil, err
	}
	e.client = client
	return e, nil
}

func setupLogging(level string, stderr io.Writer) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: lvl})))
}

func interruptible() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func requireSigner(e *env, stderr io.Writer) bool {
	if e.addr == "" {
		fmt.Fprintln(stderr, "STARFUND_SECRET_KEY is not set")
		return false
	}
	return true
}

func reportResult(res contract.TransactionResult, cfg *config.Config, stdout, stderr io.Writer) int {
	if res.Failed() {
		fmt.Fprintf(stderr, "failed (%s): %s\n", res.Kind, res.Error)
		if res.Hash != "" {
			fmt.Fprintf(stderr, "transaction: %s\n", res.Hash)
		}
		return 1
	}
	fmt.Fprintf(stdout, "success: %s\n", res.Hash)
	if cfg.ExplorerURL != "" {
		fmt.Fprintf(stdout, "%s/tx/%s\n", cfg.ExplorerURL, res.Hash)
	}
	return 0
}

func runCreate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("create", flag.ContinueOnError)
	title := fs.String("title", "", "campaign title")
	desc := fs.String("desc", "", "campaign description")
	target := fs.String("target", "", "funding target in XLM")
	days := fs.Int("days", 30, "days until the deadline")

	e, err := setup(fs, args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if !requireSigner(e, stderr) {
		return 2
	}
	if *title == "" || *target == "" {
		fmt.Fprintln(stderr, "-title and -target are required")
		return 2
	}
	targetStroops, err := amount.ParseInt64(*target)
	if err != nil {
		fmt.Fprintf(stderr, "bad target %q: %v\n", *target, err)
		return 2
	}

	ctx, cancel := interruptible()
	defer cancel()

	res := e.client.CreateCampaign(ctx, e.addr, e.kind, *title, *desc, targetStroops, time.Duration(*days)*24*time.Hour)
	return reportResult(res, e.cfg, stdout, stderr)
}

func runDonate(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("donate", flag.ContinueOnError)
	id := fs.Uint("id", 0, "campaign id")
	amt := fs.String("amount", "", "donation in XLM")

	e, err := setup(fs, args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if !requireSigner(e, stderr) {
		return 2
	}
	if *amt == "" {
		fmt.Fprintln(stderr, "-amount is required")
		return 2
	}
	stroops, err := amount.ParseInt64(*amt)
	if err != nil {
		fmt.Fprintf(stderr, "bad amount %q: %v\n", *amt, err)
		return 2
	}

	ctx, cancel := interruptible()
	defer cancel()

	res := e.client.Donate(ctx, e.addr, e.kind, uint32(*id), stroops)
	return reportResult(res, e.cfg, stdout, stderr)
}

func runClaim(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("claim", flag.ContinueOnError)
	id := fs.Uint("id", 0, "campaign id")

	e, err := setup(fs, args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if !requireSigner(e, stderr) {
		return 2
	}

	ctx, cancel := interruptible()
	defer cancel()

	res := e.client.Claim(ctx, e.addr, e.kind, uint32(*id))
	return reportResult(res, e.cfg, stdout, stderr)
}

func runCampaign(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("campaign", flag.ContinueOnError)
	id := fs.Uint("id", 0, "campaign id")
	fresh := fs.Bool("fresh", false, "bypass the cache")

	e, err := setup(fs, args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	ctx, cancel := interruptible()
	defer cancel()

	campaign, err := e.client.GetCampaign(ctx, uint32(*id), *fresh)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	if campaign == nil {
		fmt.Fprintf(stderr, "campaign %d not found\n", *id)
		return 1
	}

	fmt.Fprintf(stdout, "#%d %s\n", campaign.ID, campaign.Title)
	if campaign.Description != "" {
		fmt.Fprintln(stdout, campaign.Description)
	}
	fmt.Fprintf(stdout, "creator:  %s\n", campaign.Creator)
	fmt.Fprintf(stdout, "raised:   %s / %s XLM\n",
		amount.StringFromInt64(campaign.Raised), amount.StringFromInt64(campaign.Target))
	fmt.Fprintf(stdout, "deadline: %s\n", time.Unix(campaign.Deadline, 0).UTC().Format(time.RFC3339))
	if campaign.Claimed {
		fmt.Fprintln(stdout, "status:   claimed")
	} else if campaign.Expired(time.Now()) {
		fmt.Fprintln(stdout, "status:   ended")
	} else {
		fmt.Fprintln(stdout, "status:   open")
	}
	return 0
}

func runCount(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("count", flag.ContinueOnError)

	e, err := setup(fs, args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	ctx, cancel := interruptible()
	defer cancel()

	n, err := e.client.GetCampaignCount(ctx)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintln(stdout, n)
	return 0
}

func runWatch(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)

	e, err := setup(fs, args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	ctx, cancel := interruptible()
	defer cancel()

	poller := events.New(e.ledger, e.cfg.ContractID,
		events.WithInterval(e.cfg.EventPollInterval),
		events.WithLookback(e.cfg.EventLookback),
		events.WithLimit(e.cfg.EventBatchLimit),
	)
	stop := poller.Start(ctx, func(batch []events.ContractEvent) {
		for _, ev := range batch {
			fmt.Fprintf(stdout, "[ledger %d] %s %v\n", ev.Ledger, ev.Type, ev.Data)
		}
	})
	defer stop()

	fmt.Fprintln(stderr, "watching for events, ctrl-c to stop")
	<-ctx.Done()
	return 0
}

func runFund(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("fund", flag.ContinueOnError)
	address := fs.String("address", "", "account to fund (defaults to the local signer)")

	e, err := setup(fs, args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if *address == "" {
		*address = e.addr
	}
	if *address == "" {
		fmt.Fprintln(stderr, "-address or STARFUND_SECRET_KEY is required")
		return 2
	}
	if e.rpc == nil {
		fmt.Fprintln(stderr, "fund is not available in mock mode")
		return 1
	}

	ctx, cancel := interruptible()
	defer cancel()

	if err := e.rpc.Fund(ctx, *address); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "funded %s\n", *address)
	return 0
}

func runBalance(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	address := fs.String("address", "", "account address (defaults to the local signer)")

	e, err := setup(fs, args, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}
	if *address == "" {
		*address = e.addr
	}
	if *address == "" {
		fmt.Fprintln(stderr, "-address or STARFUND_SECRET_KEY is required")
		return 2
	}

	ctx, cancel := interruptible()
	defer cancel()

	balance, err := e.ledger.NativeBalance(ctx, *address)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	fmt.Fprintf(stdout, "%s XLM\n", balance)
	return 0
}
