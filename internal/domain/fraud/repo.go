package fraud

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

type HistoryRepository interface {
	Get(ctx context.Context, patient common.Address, illness string) (*IllnessHistory, error)
	Upsert(ctx context.Context, h *IllnessHistory) error
	List(ctx context.Context, limit, offset int) ([]*IllnessHistory, int, error)
}
