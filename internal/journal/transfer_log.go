package journal

import (
	"context"

	"shareVault/internal/model"
)

// TransferLog emits transfer instructions for an external settlement process.
type TransferLog struct {
	writer *Writer[model.Transfer]
}

func NewTransferLog(path string) *TransferLog {
	return &TransferLog{writer: NewWriter[model.Transfer](path)}
}

// Transfer appends the instruction.
func (l *TransferLog) Transfer(ctx context.Context, t model.Transfer) error {
	return l.writer.Append(ctx, t)
}
