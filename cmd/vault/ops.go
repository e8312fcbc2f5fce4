package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"shareVault/internal/amount"
	"shareVault/internal/chain"
	"shareVault/internal/model"
	"shareVault/internal/service"
)

type receiptView struct {
	ID      string `json:"id"`
	Op      string `json:"op"`
	Account string `json:"account"`
	Assets  string `json:"assets"`
	Shares  string `json:"shares"`
}

type statsView struct {
	VaultID     string `json:"vault_id"`
	AssetID     string `json:"asset_id"`
	FeeRate     uint32 `json:"fee_rate"`
	TotalAssets string `json:"total_assets"`
	TotalSupply string `json:"total_supply"`
	Display     struct {
		TotalAssets string `json:"total_assets"`
		TotalSupply string `json:"total_supply"`
	} `json:"display"`
	SharePrice string `json:"share_price"`
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	raw, _ := cmd.Flags().GetString("asset")
	asset, err := chain.ParseAddress(raw)
	if err != nil {
		return err
	}

	if err := e.vault.Initialize(ctx, model.AssetID(asset.Hex())); err != nil {
		return err
	}
	e.logger.Info("vault initialized", zap.String("vault_id", e.cfg.VaultID), zap.String("asset", asset.Hex()))
	return nil
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	return runOperation(cmd, model.OpDeposit, "amount", func(ctx context.Context, svc *service.Service, account string, value *big.Int) (service.Receipt, error) {
		return svc.Deposit(ctx, account, value)
	})
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	return runOperation(cmd, model.OpWithdraw, "shares", func(ctx context.Context, svc *service.Service, account string, value *big.Int) (service.Receipt, error) {
		return svc.Withdraw(ctx, account, value)
	})
}

type operation func(ctx context.Context, svc *service.Service, account string, value *big.Int) (service.Receipt, error)

func runOperation(cmd *cobra.Command, op, valueFlag string, fn operation) error {
	account, _ := cmd.Flags().GetString("account")
	if account == "" {
		return fmt.Errorf("account is required")
	}
	raw, _ := cmd.Flags().GetString(valueFlag)
	value, err := amount.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", valueFlag, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	receipt, err := fn(ctx, e.service, account, value)
	if err != nil {
		e.logger.Error(op+" failed", zap.String("account", account), zap.String(valueFlag, value.String()), zap.Error(err))
		return err
	}

	return writeJSON(cmd.OutOrStdout(), receiptView{
		ID:      receipt.ID,
		Op:      op,
		Account: receipt.Account,
		Assets:  receipt.Assets.String(),
		Shares:  receipt.Shares.String(),
	})
}

func runPreview(cmd *cobra.Command, _ []string) error {
	rawAmount, _ := cmd.Flags().GetString("amount")
	rawShares, _ := cmd.Flags().GetString("shares")
	if (rawAmount == "") == (rawShares == "") {
		return fmt.Errorf("exactly one of --amount or --shares is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	view := receiptView{}
	if rawAmount != "" {
		assets, err := amount.Parse(rawAmount)
		if err != nil {
			return fmt.Errorf("parse amount: %w", err)
		}
		shares, err := e.vault.PreviewDeposit(ctx, assets)
		if err != nil {
			return err
		}
		view.Op, view.Assets, view.Shares = model.OpDeposit, assets.String(), shares.String()
	} else {
		shares, err := amount.Parse(rawShares)
		if err != nil {
			return fmt.Errorf("parse shares: %w", err)
		}
		assets, err := e.vault.PreviewWithdraw(ctx, shares)
		if err != nil {
			return err
		}
		view.Op, view.Assets, view.Shares = model.OpWithdraw, assets.String(), shares.String()
	}

	return writeJSON(cmd.OutOrStdout(), view)
}

func runStats(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	e, err := openEnv(ctx, cmd)
	if err != nil {
		return err
	}
	defer e.Close()

	cfg, err := e.vault.Config(ctx)
	if err != nil {
		return err
	}
	price, err := e.vault.SharePrice(ctx, 18)
	if err != nil {
		return err
	}

	view := statsView{
		VaultID:     e.cfg.VaultID,
		AssetID:     string(cfg.AssetID),
		FeeRate:     cfg.FeeRate,
		TotalAssets: cfg.TotalAssets.String(),
		TotalSupply: cfg.TotalSupply.String(),
		SharePrice:  price.String(),
	}
	view.Display.TotalAssets = amount.Format(cfg.TotalAssets, e.cfg.Decimals)
	view.Display.TotalSupply = amount.Format(cfg.TotalSupply, e.cfg.Decimals)

	return writeJSON(cmd.OutOrStdout(), view)
}
