package directory

import (
	"context"
)

type HospitalRepository interface {
	Upsert(ctx context.Context, h *Hospital) error
	GetByName(ctx context.Context, name string) (*Hospital, error)
	List(ctx context.Context, limit, offset int) ([]*Hospital, int, error)
}
