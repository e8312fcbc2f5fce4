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
	"shareVault/internal/model"
	"shareVault/internal/replay"
)

type positionView struct {
	replay.Position
	PoolShare string `json:"pool_share"`
	Value     string `json:"value"`
}

// replayJournal rebuilds the vault from its journal, seeded with the stored
// asset binding, and returns the replayer with the stored state.
func replayJournal(ctx context.Context, cmd *cobra.Command, e *env) (*replay.Replayer, model.PoolState, error) {
	input, _ := cmd.Flags().GetString("in")
	if input == "" {
		input = e.cfg.Journal
	}

	stored, err := e.vault.State(ctx)
	if err != nil {
		return nil, model.PoolState{}, err
	}

	r := replay.NewReplayer(e.cfg.VaultID, e.logger)
	r.Bind(stored.AssetID)
	if err := r.Run(input); err != nil {
		return nil, model.PoolState{}, fmt.Errorf("replay %s: %w", input, err)
	}

	rebuilt := r.State()
	e.logger.Info("replay done",
		zap.String("in", input),
		zap.Int("events", r.Applied()),
		zap.Int("skipped", r.Skipped()),
		zap.String("total_assets", rebuilt.TotalAssets.Dec()),
		zap.String("total_supply", rebuilt.TotalSupply.Dec()),
	)
	return r, stored, nil
}

func runReplay(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	r, stored, err := replayJournal(ctx, cmd, e)
	if err != nil {
		return err
	}

	rebuilt := r.State()
	if rebuilt != stored {
		return fmt.Errorf("journal state (assets=%s supply=%s) differs from store (assets=%s supply=%s)",
			rebuilt.TotalAssets.Dec(), rebuilt.TotalSupply.Dec(),
			stored.TotalAssets.Dec(), stored.TotalSupply.Dec())
	}
	return nil
}

func runPosition(cmd *cobra.Command, _ []string) error {
	account, _ := cmd.Flags().GetString("account")
	if account == "" {
		return fmt.Errorf("account is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	r, stored, err := replayJournal(ctx, cmd, e)
	if err != nil {
		return err
	}
	if r.State() != stored {
		e.logger.Warn("journal is behind the store; position may be stale")
	}

	view := positionView{Position: r.Position(account), PoolShare: "0", Value: "0"}
	if view.Shares.Sign() > 0 {
		supply := stored.TotalSupply.ToBig()
		view.PoolShare = amount.Ratio(view.Shares, supply, 18).String()
		value, err := e.vault.PreviewWithdraw(ctx, view.Shares)
		if err != nil {
			return err
		}
		view.Value = value.String()
	}

	return writeJSON(cmd.OutOrStdout(), view)
}
