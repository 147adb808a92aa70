package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chain_reader/internal/domain/entity"
	"chain_reader/internal/infrastructure/tokenloader"
	"chain_reader/internal/infrastructure/walletloader"
	"chain_reader/internal/pkg/logger"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// scanReport is the JSON document printed by the scan command.
type scanReport struct {
	Reports []*entity.ReadReport `json:"reports"`
	Errors  []entity.ReadError   `json:"errors,omitempty"`
}

func runScan(cmd *cobra.Command, _ []string) error {
	a, err := newApplication(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	includeNative, _ := cmd.Flags().GetBool("native")
	waitMetadata, _ := cmd.Flags().GetBool("wait-metadata")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	pretty, _ := cmd.Flags().GetBool("pretty")

	wallets, err := walletloader.NewWalletFileLoader(a.cfg.Files.Wallets, logger.NewSlogAdapter()).GetWallets()
	if err != nil {
		return err
	}
	if len(wallets) == 0 {
		return fmt.Errorf("no holder addresses in %s", a.cfg.Files.Wallets)
	}
	holders := walletloader.Addresses(wallets)

	active := a.networks.GetAllNetworkDefinitions()
	tokens, err := tokenloader.NewTokenLoader(a.cfg.Files.TokensDir, logger.NewSlogAdapter()).GetTokensByNetwork(active)
	if err != nil {
		return err
	}

	reqs := make([]entity.ReadRequest, 0, len(active))
	for _, netDef := range active {
		list := tokens[netDef.Identifier]
		if len(list) == 0 && !includeNative {
			continue
		}
		reqs = append(reqs, entity.ReadRequest{
			Network:       netDef.Identifier,
			Tokens:        list,
			Holders:       holders,
			IncludeNative: includeNative,
			WaitMetadata:  waitMetadata,
		})
	}
	if len(reqs) == 0 {
		return fmt.Errorf("nothing to read: no token lists in %s and native balances disabled", a.cfg.Files.TokensDir)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a.zap.Info("Scan started", zap.Int("networks", len(reqs)), zap.Int("holders", len(holders)))
	reports, readErrors := a.reader.ReadMany(ctx, reqs)
	a.zap.Info("Scan finished", zap.Int("reports", len(reports)), zap.Int("errors", len(readErrors)))

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(cmd.OutOrStdout())
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(scanReport{Reports: reports, Errors: readErrors}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if len(reports) == 0 {
		return fmt.Errorf("every network read failed")
	}
	return nil
}
