// Package replay rebuilds vault state from the event journal.
package replay

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"shareVault/internal/amount"
	"shareVault/internal/journal"
	"shareVault/internal/model"
	"shareVault/internal/vault"
)

// Replayer applies journaled events to an in-memory PoolState.
type Replayer struct {
	vaultID   string
	state     model.PoolState
	applied   int
	skipped   int
	positions map[string]*Position
	logger    *zap.Logger
}

// NewReplayer replays the events of vaultID. Events tagged with another vault
// are skipped; untagged events are applied.
func NewReplayer(vaultID string, logger *zap.Logger) *Replayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Replayer{
		vaultID:   vaultID,
		positions: make(map[string]*Position),
		logger:    logger,
	}
}

// Bind sets the asset the replayed vault is known to hold, so a journal with
// no events still rebuilds an initialized vault.
func (r *Replayer) Bind(assetID model.AssetID) {
	r.state.AssetID = assetID
}

// State returns the state after all applied events.
func (r *Replayer) State() model.PoolState {
	return r.state
}

// Applied returns the number of events applied.
func (r *Replayer) Applied() int {
	return r.applied
}

// Skipped returns the number of events that belonged to other vaults.
func (r *Replayer) Skipped() int {
	return r.skipped
}

// Run applies every event in the journal at path. A missing journal is an
// empty one.
func (r *Replayer) Run(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("journal missing, nothing to replay", zap.String("path", path))
		return nil
	}
	return journal.Read(path, r.Apply)
}

// Apply recomputes one event and checks it against the recorded values.
func (r *Replayer) Apply(ev model.Event) error {
	if r.vaultID != "" && ev.VaultID != "" && ev.VaultID != r.vaultID {
		r.skipped++
		return nil
	}
	if ev.AssetID != "" {
		if r.state.AssetID == "" {
			r.state.AssetID = ev.AssetID
		} else if r.state.AssetID != ev.AssetID {
			return fmt.Errorf("event %s: asset %s does not match %s", ev.ID, ev.AssetID, r.state.AssetID)
		}
	}

	var (
		next     model.PoolState
		computed uint256.Int
		recorded string
		err      error
	)
	switch ev.Op {
	case model.OpDeposit:
		assets, decodeErr := amount.Decode(ev.Assets)
		if decodeErr != nil {
			return fmt.Errorf("event %s: decode assets: %w", ev.ID, decodeErr)
		}
		next, computed, err = vault.ApplyDeposit(r.state, assets)
		recorded = ev.Shares
	case model.OpWithdraw:
		shares, decodeErr := amount.Decode(ev.Shares)
		if decodeErr != nil {
			return fmt.Errorf("event %s: decode shares: %w", ev.ID, decodeErr)
		}
		next, computed, err = vault.ApplyWithdraw(r.state, shares)
		recorded = ev.Assets
	default:
		return fmt.Errorf("event %s: unknown op %q", ev.ID, ev.Op)
	}
	if err != nil {
		return fmt.Errorf("event %s: %w", ev.ID, err)
	}

	if got := amount.String(computed); got != recorded {
		return fmt.Errorf("event %s: %s recomputed as %s, journal has %s", ev.ID, ev.Op, got, recorded)
	}
	if ev.TotalAssets != "" && amount.String(next.TotalAssets) != ev.TotalAssets {
		return fmt.Errorf("event %s: total_assets %s, journal has %s", ev.ID, amount.String(next.TotalAssets), ev.TotalAssets)
	}
	if ev.TotalSupply != "" && amount.String(next.TotalSupply) != ev.TotalSupply {
		return fmt.Errorf("event %s: total_supply %s, journal has %s", ev.ID, amount.String(next.TotalSupply), ev.TotalSupply)
	}
	if !next.Consistent() {
		return fmt.Errorf("event %s: inconsistent totals assets=%s supply=%s", ev.ID, amount.String(next.TotalAssets), amount.String(next.TotalSupply))
	}

	r.state = next
	r.applied++
	if ev.Account != "" {
		r.position(ev.Account).apply(ev.Op, ev.Assets, ev.Shares)
	}
	r.logger.Debug("event applied", zap.String("id", ev.ID), zap.String("op", ev.Op))
	return nil
}
