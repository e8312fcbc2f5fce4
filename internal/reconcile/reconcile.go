package reconcile

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"shareVault/internal/model"
)

// Status summarizes how the on-chain balance compares to the accounted total.
type Status string

const (
	StatusBalanced Status = "balanced"
	StatusSurplus  Status = "surplus"
	StatusDeficit  Status = "deficit"
)

// BalanceReader reads an ERC20 balance. *chain.Client satisfies it.
type BalanceReader interface {
	BalanceOf(ctx context.Context, token, owner common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Config controls retries of balance reads.
type Config struct {
	MaxRetries   int
	RetryBackoff time.Duration
	BlockNumber  *big.Int
}

// Report is the outcome of one reconciliation.
type Report struct {
	AssetID     model.AssetID `json:"asset_id"`
	Holder      string        `json:"holder"`
	Accounted   *big.Int      `json:"accounted"`
	OnChain     *big.Int      `json:"on_chain"`
	Difference  *big.Int      `json:"difference"`
	Status      Status        `json:"status"`
	TotalSupply *big.Int      `json:"total_supply"`
}

// Reconciler compares vault accounting against the token balance of the holder.
type Reconciler struct {
	reader BalanceReader
	cfg    Config
	logger *zap.Logger
	after  func(time.Duration) <-chan time.Time
}

func NewReconciler(reader BalanceReader, cfg Config, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{reader: reader, cfg: cfg, logger: logger, after: time.After}
}

// Check reads the holder balance of state's asset and diffs it against total_assets.
func (r *Reconciler) Check(ctx context.Context, state model.PoolState, holder common.Address) (Report, error) {
	if state.AssetID == "" {
		return Report{}, fmt.Errorf("vault has no asset")
	}
	if !common.IsHexAddress(string(state.AssetID)) {
		return Report{}, fmt.Errorf("asset %q is not a token address", state.AssetID)
	}
	token := common.HexToAddress(string(state.AssetID))

	var onChain *big.Int
	err := r.readWithRetry(ctx, "balanceOf "+token.Hex(), func(ctx context.Context) error {
		bal, err := r.reader.BalanceOf(ctx, token, holder, r.cfg.BlockNumber)
		if err != nil {
			return err
		}
		onChain = bal
		return nil
	})
	if err != nil {
		return Report{}, fmt.Errorf("read balance: %w", err)
	}

	accounted := state.TotalAssets.ToBig()
	diff := new(big.Int).Sub(onChain, accounted)

	report := Report{
		AssetID:     state.AssetID,
		Holder:      holder.Hex(),
		Accounted:   accounted,
		OnChain:     onChain,
		Difference:  diff,
		Status:      statusOf(diff),
		TotalSupply: state.TotalSupply.ToBig(),
	}

	r.logger.Info("reconciled",
		zap.String("asset", string(state.AssetID)),
		zap.String("holder", report.Holder),
		zap.String("accounted", accounted.String()),
		zap.String("on_chain", onChain.String()),
		zap.String("status", string(report.Status)),
	)
	return report, nil
}

func statusOf(diff *big.Int) Status {
	switch diff.Sign() {
	case 0:
		return StatusBalanced
	case 1:
		return StatusSurplus
	default:
		return StatusDeficit
	}
}
