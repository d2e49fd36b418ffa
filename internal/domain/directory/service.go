package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/claimsure/claimsure/internal/platform/notification"
)

// ErrUnauthorized is returned when a caller other than the insurance
// authority attempts to register a hospital.
var ErrUnauthorized = errors.New("directory: caller is not the insurance authority")

// Notifier publishes lifecycle events.
type Notifier interface {
	Publish(ctx context.Context, e notification.Event) notification.Event
}

type Service struct {
	hospitals HospitalRepository
	authority common.Address
	notifier  Notifier
}

func NewService(hospitals HospitalRepository, authority common.Address, notifier Notifier) *Service {
	return &Service{hospitals: hospitals, authority: authority, notifier: notifier}
}

// Register writes the directory entry for a hospital name. Only the insurance
// authority may call it; an existing entry is overwritten.
func (s *Service) Register(ctx context.Context, caller common.Address, name string, address common.Address) (*Hospital, error) {
	if caller != s.authority {
		return nil, ErrUnauthorized
	}
	if name == "" {
		return nil, fmt.Errorf("hospital name is required")
	}
	if address == (common.Address{}) {
		return nil, fmt.Errorf("hospital address is required")
	}

	h := &Hospital{Name: name, Address: address}
	if err := s.hospitals.Upsert(ctx, h); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.Publish(ctx, notification.Event{
			Type:  notification.HospitalRegistered,
			Actor: address.Hex(),
			Detail: map[string]string{
				"hospital_name": name,
			},
		})
	}
	return h, nil
}

// Resolve returns the authorized address for a hospital name.
func (s *Service) Resolve(ctx context.Context, name string) (common.Address, error) {
	h, err := s.hospitals.GetByName(ctx, name)
	if err != nil {
		return common.Address{}, err
	}
	return h.Address, nil
}

// Get returns the full directory entry for a hospital name.
func (s *Service) Get(ctx context.Context, name string) (*Hospital, error) {
	return s.hospitals.GetByName(ctx, name)
}

// List returns registered hospitals.
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.hospitals.List(ctx, limit, offset)
}
