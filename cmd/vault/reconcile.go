package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shareVault/internal/amount"
	"shareVault/internal/chain"
	"shareVault/internal/reconcile"
)

func runReconcile(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	if e.cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	holder, err := chain.ParseAddress(e.cfg.Holder)
	if err != nil {
		return fmt.Errorf("holder: %w", err)
	}

	state, err := e.vault.State(ctx)
	if err != nil {
		return err
	}

	chainClient, err := chain.Dial(ctx, e.cfg.RPCURL)
	if err != nil {
		return err
	}
	defer chainClient.Close()

	head, err := chainClient.Head(ctx)
	if err != nil {
		return err
	}
	e.logger.Info("reconcile start",
		zap.String("chain_id", chainClient.ChainID().String()),
		zap.String("block", head.String()),
		zap.String("holder", holder.Hex()),
	)

	r := reconcile.NewReconciler(chainClient, reconcile.Config{
		MaxRetries:   e.cfg.MaxRetries,
		RetryBackoff: e.cfg.RetryBackoff,
		BlockNumber:  head,
	}, e.logger)

	report, err := r.Check(ctx, state, holder)
	if err != nil {
		return err
	}

	// Display units come from the token itself; fall back to --decimals.
	decimals := e.cfg.Decimals
	if token, err := chain.ParseAddress(string(state.AssetID)); err == nil {
		if d, err := chainClient.Decimals(ctx, token); err == nil {
			decimals = int32(d)
		} else {
			e.logger.Warn("read token decimals", zap.Error(err))
		}
	}
	e.logger.Info("reconcile result",
		zap.String("status", string(report.Status)),
		zap.String("accounted", amount.Format(report.Accounted, decimals)),
		zap.String("on_chain", amount.Format(report.OnChain, decimals)),
		zap.String("difference", amount.Format(report.Difference, decimals)),
	)
	return writeJSON(cmd.OutOrStdout(), report)
}
