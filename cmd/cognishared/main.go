package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cognishare/agent/internal/analytics"
	"cognishare/agent/internal/chain"
	"cognishare/agent/internal/config"
	"cognishare/agent/internal/keys"
	"cognishare/agent/internal/logging"
	"cognishare/agent/internal/market"
	"cognishare/agent/internal/payments"

	"github.com/ethereum/go-ethereum/common"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		if err := cmdInit(); err != nil {
			fmt.Fprintf(os.Stderr, "init failed: %v\n", err)
			os.Exit(1)
		}
	case "pay":
		if err := cmdPay(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "pay failed: %v\n", err)
			os.Exit(1)
		}
	case "fee":
		if err := cmdFee(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "fee failed: %v\n", err)
			os.Exit(1)
		}
	case "price":
		if err := cmdPrice(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "price failed: %v\n", err)
			os.Exit(1)
		}
	case "stats":
		if err := cmdStats(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "stats failed: %v\n", err)
			os.Exit(1)
		}
	case "serve":
		if err := cmdServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "serve failed: %v\n", err)
			os.Exit(1)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("cognishared init | pay | fee | price | stats | serve")
}

func cmdInit() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	base := filepath.Join(home, ".cognishare")
	if err := os.MkdirAll(base, 0o700); err != nil {
		return err
	}

	cfg := config.Default(home)
	cfgPath := filepath.Join(base, "config.yaml")
	if err := os.MkdirAll(cfg.Agent.KeyStore, 0o700); err != nil {
		return err
	}

	signerPath := keys.DefaultSignerKeyPath(cfg.Agent.KeyStore)
	signerKey, created, err := keys.EnsureKey(signerPath, "signer")
	if err != nil {
		return err
	}

	if err := config.Write(cfgPath, cfg); err != nil {
		return err
	}

	fmt.Printf("initialized %s\n", cfgPath)
	fmt.Printf("signer address: %s\n", signerKey.Address)
	if created {
		fmt.Printf("key stored in %s\n", signerPath)
		fmt.Println("fund this address with testnet CRO before paying citations")
	}
	return nil
}

func cmdPay(args []string) error {
	fs := flag.NewFlagSet("pay", flag.ContinueOnError)
	wallets := fs.String("wallets", "", "comma-separated author wallet addresses")
	contents := fs.String("contents", "", "comma-separated content identifiers, parallel to --wallets")
	rate := fs.Float64("rate", 0, "CRO per citation (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	walletList := splitList(*wallets)
	if len(walletList) == 0 {
		return fmt.Errorf("at least one wallet is required")
	}
	contentList := splitList(*contents)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	perCitation := cfg.Payments.CitationRateCRO
	if *rate > 0 {
		perCitation = *rate
	}

	env, err := buildEnv(cfg)
	if err != nil {
		return err
	}

	citations := make([]payments.Citation, 0, len(walletList))
	for i, wallet := range walletList {
		content := wallet
		if i < len(contentList) {
			content = contentList[i]
		}
		citations = append(citations, payments.Citation{
			Wallet:  wallet,
			Content: content,
			Amount:  chain.CROToWei(perCitation),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := env.orchestrator.PayCitations(ctx, citations)
	if err != nil {
		return err
	}
	printSummary(cfg, summary)
	return nil
}

func cmdFee(args []string) error {
	fs := flag.NewFlagSet("fee", flag.ContinueOnError)
	service := fs.String("service", "Market Data", "service name")
	wallet := fs.String("wallet", "", "service wallet (default from config)")
	amount := fs.Float64("amount", 0, "fee in CRO (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	target := strings.TrimSpace(*wallet)
	if target == "" {
		target = cfg.Payments.ServiceWallet
	}
	if target == "" {
		return fmt.Errorf("service wallet is required (flag --wallet or config payments.service_wallet)")
	}
	feeCRO := cfg.Payments.ServiceFeeCRO
	if *amount > 0 {
		feeCRO = *amount
	}

	env, err := buildEnv(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	summary, err := env.orchestrator.PayServiceFees(ctx, []payments.ServiceFee{{
		ServiceName: *service,
		Wallet:      target,
		Amount:      chain.CROToWei(feeCRO),
	}})
	if err != nil {
		return err
	}
	printSummary(cfg, summary)
	return nil
}

func cmdPrice(args []string) error {
	fs := flag.NewFlagSet("price", flag.ContinueOnError)
	symbol := fs.String("symbol", "", "cryptocurrency symbol, e.g. cro or btc")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*symbol) == "" {
		return fmt.Errorf("symbol is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := market.NewClient(cfg.Market.BaseURL)
	if cfg.Payments.ServiceWallet == "" {
		quote, err := client.GetPrice(ctx, *symbol)
		if err != nil {
			return err
		}
		printQuote(quote)
		fmt.Println("no service wallet configured, fee skipped")
		return nil
	}

	env, err := buildEnv(cfg)
	if err != nil {
		return err
	}
	tool := market.NewTool(client, env.orchestrator, cfg.Payments.ServiceWallet,
		chain.CROToWei(cfg.Payments.ServiceFeeCRO), env.log)

	result, err := tool.Lookup(ctx, *symbol)
	if err != nil {
		return err
	}
	printQuote(result.Quote)
	printSummary(cfg, result.FeeSummary)
	return nil
}

func cmdStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := buildEnv(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snapshot := env.aggregator.Snapshot(ctx)
	out, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	listen := fs.String("listen", "", "listen address (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := strings.TrimSpace(*listen)
	if addr == "" {
		addr = cfg.Analytics.Listen
	}

	env, err := buildEnv(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	server := &http.Server{
		Addr:              addr,
		Handler:           analytics.Handler(env.aggregator),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	fmt.Printf("analytics listening on %s\n", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// wiredEnv bundles the wired payment and analytics stack for one command.
type wiredEnv struct {
	orchestrator *payments.Orchestrator
	aggregator   *analytics.Aggregator
	session      *analytics.Session
	log          *slog.Logger
}

func buildEnv(cfg config.Config) (*wiredEnv, error) {
	log := logging.Setup("cognishared")

	var client *chain.Client
	if cfg.Chain.RPC != "" {
		c, err := chain.Dial(cfg.Chain.RPC)
		if err != nil {
			log.Warn("rpc unreachable, falling back to simulation", "rpc", cfg.Chain.RPC, "err", err)
		} else {
			client = c
		}
	}

	var signer *chain.Signer
	signerKey, err := loadSignerKey(cfg)
	if err != nil {
		log.Warn("signer key unavailable", "err", err)
	} else {
		signer, err = chain.NewSigner(signerKey, cfg.Chain.ChainID)
		if err != nil {
			return nil, err
		}
	}

	var contract *common.Address
	if cfg.Chain.ContractData != "" {
		if desc, err := chain.LoadDescriptor(cfg.Chain.ContractData); err == nil {
			addr := desc.ContractAddress()
			contract = &addr
			log.Info("ledger contract loaded", "address", addr.Hex(), "network", desc.Network)
		}
	}

	session := analytics.NewSession()
	orchestrator := payments.New(payments.Options{
		Client:        client,
		Signer:        signer,
		Contract:      contract,
		SubmitTimeout: time.Duration(cfg.Payments.SubmitTimeoutSeconds) * time.Second,
		Logger:        log,
		Observer:      session,
	})
	aggregator := analytics.NewAggregator(session, client, contract, log)

	return &wiredEnv{
		orchestrator: orchestrator,
		aggregator:   aggregator,
		session:      session,
		log:          log,
	}, nil
}

func loadSignerKey(cfg config.Config) (keys.StoredKey, error) {
	if v := strings.TrimSpace(os.Getenv("SIGNER_KEY")); v != "" {
		return keys.FromPrivateKeyHex("signer", v)
	}
	return keys.Load(keys.DefaultSignerKeyPath(cfg.Agent.KeyStore))
}

func printSummary(cfg config.Config, summary payments.Summary) {
	fmt.Printf("batch %s (%s, mode %s)\n", summary.QueryID, summary.Kind, summary.Mode)
	for _, result := range summary.Results {
		switch {
		case result.OK:
			fmt.Printf("  paid %.4f CRO to %s\n", chain.WeiToCRO(result.Amount), result.Wallet)
			if result.TxHash != "" {
				fmt.Printf("    tx: %s\n", chain.ExplorerTxURL(cfg.Chain.Explorer, result.TxHash))
			}
		case result.Uncertain:
			fmt.Printf("  uncertain %.4f CRO to %s: %v\n", chain.WeiToCRO(result.Amount), result.Wallet, result.Err)
			if result.TxHash != "" {
				fmt.Printf("    tx: %s\n", chain.ExplorerTxURL(cfg.Chain.Explorer, result.TxHash))
			}
		default:
			fmt.Printf("  failed %s: %v\n", result.Wallet, result.Err)
		}
	}
	fmt.Printf("total paid: %.4f CRO\n", chain.WeiToCRO(summary.TotalPaid))
}

func printQuote(quote market.Quote) {
	fmt.Printf("%s (%s)\n", quote.Symbol, quote.CoinID)
	fmt.Printf("  price:      $%.6f\n", quote.PriceUSD)
	fmt.Printf("  24h change: %.2f%%\n", quote.Change24H)
	fmt.Printf("  market cap: $%.0f\n", quote.MarketCapUSD)
	fmt.Printf("  24h volume: $%.0f\n", quote.Volume24HUSD)
}

func loadConfig() (config.Config, error) {
	cfgPath, err := configPath()
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config not found, run cognishared init: %w", err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *config.Config) {
	if v := strings.TrimSpace(os.Getenv("CHAIN_RPC_URL")); v != "" {
		cfg.Chain.RPC = v
	}
	if v := strings.TrimSpace(os.Getenv("CHAIN_ID")); v != "" {
		if value, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Chain.ChainID = value
		}
	}
	if v := strings.TrimSpace(os.Getenv("CONTRACT_DATA")); v != "" {
		cfg.Chain.ContractData = v
	}
	if v := strings.TrimSpace(os.Getenv("EXPLORER_URL")); v != "" {
		cfg.Chain.Explorer = v
	}
	if v := strings.TrimSpace(os.Getenv("CITATION_RATE_CRO")); v != "" {
		if value, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Payments.CitationRateCRO = value
		}
	}
	if v := strings.TrimSpace(os.Getenv("SERVICE_FEE_CRO")); v != "" {
		if value, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Payments.ServiceFeeCRO = value
		}
	}
	if v := strings.TrimSpace(os.Getenv("SERVICE_WALLET")); v != "" {
		cfg.Payments.ServiceWallet = v
	}
	if v := strings.TrimSpace(os.Getenv("ANALYTICS_LISTEN")); v != "" {
		cfg.Analytics.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("MARKET_BASE_URL")); v != "" {
		cfg.Market.BaseURL = v
	}
}

func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cognishare", "config.yaml"), nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
