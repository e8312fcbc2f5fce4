// Package service runs vault operations together with the asset transfers
// they require.
//
// Each operation previews the conversion, asks the Transferer to move the
// computed amount, and then commits through the vault. When the commit fails
// the reverse transfer is issued. The service must be the only writer of its
// vault so that the preview and the commit see the same state.
package service

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"shareVault/internal/model"
	"shareVault/internal/vault"
)

// Transferer moves the underlying asset between accounts and the pool.
type Transferer interface {
	Transfer(ctx context.Context, t model.Transfer) error
}

// Journal records committed operations.
type Journal interface {
	Append(ctx context.Context, events ...model.Event) error
}

// Receipt describes a committed operation.
type Receipt struct {
	ID      string
	Account string
	Assets  *big.Int
	Shares  *big.Int
}

// Service serialises deposits and withdrawals against one vault.
type Service struct {
	mu        sync.Mutex
	vaultID   string
	vault     *vault.Vault
	transfers Transferer
	journal   Journal
	metrics   *Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewService tags every transfer and event it emits with vaultID.
func NewService(vaultID string, v *vault.Vault, transfers Transferer, journal Journal, metrics *Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		vaultID:   vaultID,
		vault:     v,
		transfers: transfers,
		journal:   journal,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// Deposit moves assets from account into the pool and mints shares.
func (s *Service) Deposit(ctx context.Context, account string, assets *big.Int) (Receipt, error) {
	receipt, err := s.deposit(ctx, account, assets)
	s.metrics.observe(model.OpDeposit, err)
	return receipt, err
}

// Withdraw redeems shares and moves the owed assets to account.
func (s *Service) Withdraw(ctx context.Context, account string, shares *big.Int) (Receipt, error) {
	receipt, err := s.withdraw(ctx, account, shares)
	s.metrics.observe(model.OpWithdraw, err)
	return receipt, err
}

func (s *Service) deposit(ctx context.Context, account string, assets *big.Int) (Receipt, error) {
	if s.vault == nil || s.transfers == nil {
		return Receipt{}, fmt.Errorf("service is not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.vault.State(ctx)
	if err != nil {
		return Receipt{}, err
	}
	expected, err := s.vault.PreviewDeposit(ctx, assets)
	if err != nil {
		return Receipt{}, err
	}

	tr := s.newTransfer(model.DirectionIn, state.AssetID, account, assets)
	if err := s.transfers.Transfer(ctx, tr); err != nil {
		return Receipt{}, fmt.Errorf("transfer in: %w", err)
	}

	minted, err := s.vault.Deposit(ctx, assets)
	if err != nil {
		s.compensate(ctx, tr, err)
		return Receipt{}, err
	}
	if minted.Cmp(expected) != 0 {
		s.logger.Warn("minted shares differ from preview",
			zap.String("id", tr.ID),
			zap.String("expected", expected.String()),
			zap.String("minted", minted.String()),
		)
	}

	receipt := Receipt{ID: tr.ID, Account: account, Assets: new(big.Int).Set(assets), Shares: minted}
	s.record(ctx, model.OpDeposit, state.AssetID, receipt)
	return receipt, nil
}

func (s *Service) withdraw(ctx context.Context, account string, shares *big.Int) (Receipt, error) {
	if s.vault == nil || s.transfers == nil {
		return Receipt{}, fmt.Errorf("service is not configured")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.vault.State(ctx)
	if err != nil {
		return Receipt{}, err
	}
	owed, err := s.vault.PreviewWithdraw(ctx, shares)
	if err != nil {
		return Receipt{}, err
	}

	tr := s.newTransfer(model.DirectionOut, state.AssetID, account, owed)
	if owed.Sign() > 0 {
		if err := s.transfers.Transfer(ctx, tr); err != nil {
			return Receipt{}, fmt.Errorf("transfer out: %w", err)
		}
	}

	paid, err := s.vault.Withdraw(ctx, shares)
	if err != nil {
		if owed.Sign() > 0 {
			s.compensate(ctx, tr, err)
		}
		return Receipt{}, err
	}
	if paid.Cmp(owed) != 0 {
		s.logger.Error("payout differs from transferred amount",
			zap.String("id", tr.ID),
			zap.String("transferred", owed.String()),
			zap.String("paid", paid.String()),
		)
		return Receipt{}, fmt.Errorf("withdraw %s: paid %s but transferred %s", tr.ID, paid, owed)
	}

	receipt := Receipt{ID: tr.ID, Account: account, Assets: paid, Shares: new(big.Int).Set(shares)}
	s.record(ctx, model.OpWithdraw, state.AssetID, receipt)
	return receipt, nil
}

func (s *Service) newTransfer(dir model.Direction, assetID model.AssetID, account string, value *big.Int) model.Transfer {
	return model.Transfer{
		ID:        uuid.NewString(),
		VaultID:   s.vaultID,
		Direction: dir,
		AssetID:   assetID,
		Account:   account,
		Amount:    value.String(),
		CreatedAt: s.now().UTC().Format(time.RFC3339Nano),
	}
}

func (s *Service) compensate(ctx context.Context, tr model.Transfer, cause error) {
	reverse := tr.Reverse()
	err := s.transfers.Transfer(context.WithoutCancel(ctx), reverse)
	s.metrics.compensated(err)
	if err != nil {
		s.logger.Error("compensating transfer failed",
			zap.String("id", tr.ID),
			zap.String("direction", string(reverse.Direction)),
			zap.String("account", tr.Account),
			zap.String("amount", tr.Amount),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("commit failed, transfer reversed", zap.String("id", tr.ID), zap.Error(cause))
}

func (s *Service) record(ctx context.Context, op string, assetID model.AssetID, receipt Receipt) {
	event := model.Event{
		ID:        receipt.ID,
		VaultID:   s.vaultID,
		Op:        op,
		Account:   receipt.Account,
		AssetID:   assetID,
		Assets:    receipt.Assets.String(),
		Shares:    receipt.Shares.String(),
		Timestamp: s.now().UTC().Format(time.RFC3339Nano),
	}

	// Totals stay empty when the post-commit read fails; replay skips the
	// comparison for such events.
	if post, err := s.vault.State(ctx); err != nil {
		s.logger.Warn("read state after commit", zap.Error(err))
	} else {
		s.metrics.setTotals(post)
		event.TotalAssets = post.TotalAssets.ToBig().String()
		event.TotalSupply = post.TotalSupply.ToBig().String()
	}

	s.logger.Info(op,
		zap.String("id", receipt.ID),
		zap.String("account", receipt.Account),
		zap.String("assets", event.Assets),
		zap.String("shares", event.Shares),
		zap.String("total_assets", event.TotalAssets),
		zap.String("total_supply", event.TotalSupply),
	)

	if s.journal == nil {
		return
	}
	if err := s.journal.Append(ctx, event); err != nil {
		s.metrics.journalFailed()
		s.logger.Error("journal append failed", zap.String("id", receipt.ID), zap.Error(err))
	}
}
