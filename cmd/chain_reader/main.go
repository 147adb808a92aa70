package main

import (
	"os"
	"time"

	"chain_reader/internal/infrastructure/configloader"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "chain_reader",
		Short:        "Batched EVM contract reader with token metadata enrichment",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	configloader.RegisterFlags(root.PersistentFlags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read API over HTTP",
		RunE:  runServe,
	}
	root.AddCommand(serveCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "Read holder balances for the configured token lists and print a JSON report",
		RunE:  runScan,
	}
	scanCmd.Flags().Bool("native", true, "include native balances")
	scanCmd.Flags().Bool("wait-metadata", false, "wait for token metadata before printing")
	scanCmd.Flags().Duration("timeout", 5*time.Minute, "overall scan timeout")
	scanCmd.Flags().Bool("pretty", true, "indent the JSON report")
	root.AddCommand(scanCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
