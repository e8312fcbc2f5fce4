package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "vault",
		Short:        "Pooled-asset vault share accounting",
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "config file path")
	flags.String("vault-id", "default", "vault identifier")
	flags.String("store", "file", "state backend (memory, file, postgres)")
	flags.String("state-dir", "./data/vaults", "directory for file-backed vault state")
	flags.String("pg-dsn", "", "Postgres DSN for the postgres backend")
	flags.Uint32("fee-rate", 30, "fee rate in basis points reported by stats")
	flags.Bool("reject-zero-shares", false, "reject deposits that would mint zero shares")
	flags.Int32("decimals", 7, "display decimals for amounts")
	flags.String("journal", "", "committed operations JSONL (default <state-dir>/<vault-id>.events.jsonl)")
	flags.String("transfers", "", "transfer instructions JSONL (default <state-dir>/<vault-id>.transfers.jsonl)")
	flags.String("metrics-file", "", "optional Prometheus textfile output")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Bind the vault to its underlying asset",
		RunE:  runInit,
	}
	initCmd.Flags().String("asset", "", "underlying asset token address")
	root.AddCommand(initCmd)

	depositCmd := &cobra.Command{
		Use:   "deposit",
		Short: "Deposit assets and mint shares",
		RunE:  runDeposit,
	}
	depositCmd.Flags().String("amount", "", "assets to deposit (base units)")
	depositCmd.Flags().String("account", "", "depositing account")
	root.AddCommand(depositCmd)

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Burn shares and withdraw assets",
		RunE:  runWithdraw,
	}
	withdrawCmd.Flags().String("shares", "", "shares to burn (base units)")
	withdrawCmd.Flags().String("account", "", "receiving account")
	root.AddCommand(withdrawCmd)

	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview a deposit or withdrawal without committing",
		RunE:  runPreview,
	}
	previewCmd.Flags().String("amount", "", "assets to preview as a deposit")
	previewCmd.Flags().String("shares", "", "shares to preview as a withdrawal")
	root.AddCommand(previewCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show vault configuration, totals and share price",
		RunE:  runStats,
	}
	root.AddCommand(statsCmd)

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild vault state from the journal and compare with the store",
		RunE:  runReplay,
	}
	replayCmd.Flags().String("in", "", "journal JSONL (defaults to --journal)")
	root.AddCommand(replayCmd)

	positionCmd := &cobra.Command{
		Use:   "position",
		Short: "Show an account's shares and pool share from the journal",
		RunE:  runPosition,
	}
	positionCmd.Flags().String("account", "", "account to report")
	positionCmd.Flags().String("in", "", "journal JSONL (defaults to --journal)")
	root.AddCommand(positionCmd)

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Compare accounted assets with the on-chain balance of the holder",
		RunE:  runReconcile,
	}
	reconcileCmd.Flags().String("rpc", "", "EVM RPC URL")
	reconcileCmd.Flags().String("holder", "", "address holding the pooled asset")
	reconcileCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	reconcileCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	root.AddCommand(reconcileCmd)

	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func writeJSON(w io.Writer, value interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
