// Command line client for the intel agent. Talks straight to consensus
// topics; no HTTP server in the loop.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Noopy420/hedera-intel-agent/internal/chunk"
	"github.com/Noopy420/hedera-intel-agent/internal/config"
	"github.com/Noopy420/hedera-intel-agent/internal/models"
	"github.com/Noopy420/hedera-intel-agent/internal/registry"
	"github.com/Noopy420/hedera-intel-agent/internal/report"
	"github.com/Noopy420/hedera-intel-agent/internal/router"
	"github.com/Noopy420/hedera-intel-agent/internal/transport"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	ctx := context.Background()

	switch cmd {
	case "create-topic":
		memo := ""
		if len(os.Args) > 2 {
			memo = os.Args[2]
		}
		hcs := mustTransport()
		defer hcs.Close()
		topicID, err := hcs.CreateTopic(ctx, memo)
		exitOnError(err)
		fmt.Printf("Created topic: %s\n", topicID)

	case "report":
		assets := os.Args[2:]
		cfg := mustConfig()
		if len(assets) == 0 {
			assets = cfg.DefaultAssets
		}
		for i, a := range assets {
			assets[i] = strings.ToUpper(a)
		}
		gen := report.NewMarketGenerator(report.NewHTTPQuoteSource(cfg.QuoteAPIURL))
		rep, err := gen.Generate(ctx, assets, "full report")
		exitOnError(err)
		printJSON(rep)

	case "query":
		if len(os.Args) < 4 {
			fmt.Fprintln(os.Stderr, "Usage: agentcli query <topic_id> <text>")
			os.Exit(1)
		}
		cfg := mustConfig()
		hcs := mustTransport()
		defer hcs.Close()
		env := models.Envelope{
			Protocol:   models.ProtocolTag,
			Op:         models.OpMessage,
			OperatorID: cfg.OperatorIdentity(),
			Data:       strings.Join(os.Args[3:], " "),
		}
		exitOnError(publishEnvelope(ctx, hcs, os.Args[2], env))
		fmt.Println("Sent.")

	case "chat":
		exitOnError(chat(ctx))

	case "help", "--help", "-h":
		usage()

	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

// publishEnvelope sends env to topicID, splitting into chunks when the
// serialized form exceeds the transport ceiling.
func publishEnvelope(ctx context.Context, tr transport.Transport, topicID string, env models.Envelope) error {
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if len(raw) <= tr.MaxMessageSize() {
		_, err = tr.Publish(ctx, topicID, raw)
		return err
	}
	chunks, err := chunk.Split(raw, tr.MaxMessageSize())
	if err != nil {
		return err
	}
	for _, c := range chunks {
		frame, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if _, err := tr.Publish(ctx, topicID, frame); err != nil {
			return err
		}
	}
	return nil
}

// chat runs a local conversation loop against an in-process agent backed by
// an in-memory transport and canned quotes. Useful for trying out queries
// without spending network fees.
func chat(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	mem := transport.NewMemoryTransport()
	inbound, err := mem.CreateTopic(ctx, "inbound")
	if err != nil {
		return err
	}
	outbound, err := mem.CreateTopic(ctx, "outbound")
	if err != nil {
		return err
	}

	quotes := &report.StaticQuoteSource{Table: map[string]report.Quote{
		"BTC":  {Symbol: "BTC", PriceUSD: 64250.00, Change24hPct: 2.1, Volume24hUSD: 28e9, MarketCapRank: 1},
		"ETH":  {Symbol: "ETH", PriceUSD: 3180.00, Change24hPct: -1.4, Volume24hUSD: 12e9, MarketCapRank: 2},
		"HBAR": {Symbol: "HBAR", PriceUSD: 0.071, Change24hPct: 6.2, Volume24hUSD: 90e6, MarketCapRank: 38},
	}}

	rtr := router.New(router.Config{
		Transport:     mem,
		Registry:      registry.New(mem),
		Generator:     report.NewMarketGenerator(quotes),
		Health:        &report.StaticHealthReporter{Health: models.NetworkHealth{Status: "healthy", Network: "local"}},
		Logger:        zerolog.Nop(),
		OperatorID:    inbound + "@0.0.0",
		InboundTopic:  inbound,
		OutboundTopic: outbound,
		DefaultAssets: []string{"BTC", "ETH", "HBAR"},
	})

	done := make(chan error, 1)
	go func() { done <- rtr.Run(ctx) }()

	printed := make(chan struct{}, 16)
	_, err = mem.Subscribe(ctx, outbound, func(msg transport.Message) {
		var env models.Envelope
		if json.Unmarshal(msg.Contents, &env) == nil && env.Op == models.OpResponse {
			fmt.Printf("\nagent> %s\n", env.Data)
			printed <- struct{}{}
		}
	})
	if err != nil {
		return err
	}

	fmt.Println("Local chat with the intel agent. Canned market data, no network.")
	fmt.Println("Try: \"price of hbar\", \"any narratives forming?\", \"full report\". Ctrl-D to quit.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if _, err := mem.Publish(ctx, inbound, []byte(line)); err != nil {
			return err
		}
		select {
		case <-printed:
		case <-time.After(5 * time.Second):
			fmt.Println("agent> (no response)")
		}
	}

	cancel()
	<-done
	fmt.Println()
	return scanner.Err()
}

func mustConfig() *config.Config {
	cfg, err := config.Load()
	exitOnError(err)
	return cfg
}

func mustTransport() *transport.HCSTransport {
	cfg := mustConfig()
	hcs, err := transport.NewHCSTransport(cfg.Network, cfg.OperatorID, cfg.OperatorKey, zerolog.Nop())
	exitOnError(err)
	return hcs
}

func printJSON(v any) {
	data, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(data))
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`Intel agent CLI

Usage: agentcli <command> [options]

Commands:
  create-topic [memo]       Create a new consensus topic
  report [symbols...]       Generate a market report and print it
  query <topic_id> <text>   Send a query envelope to a peer topic
  chat                      Local chat loop against an in-process agent
  help                      Show this help

Environment:
  HEDERA_OPERATOR_ID / HEDERA_OPERATOR_KEY   Operator credentials
  HEDERA_NETWORK                             testnet (default), mainnet, previewnet
  INBOUND_TOPIC_ID                           This agent's inbound topic`)
}
