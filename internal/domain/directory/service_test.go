package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type mockHospitalRepo struct {
	items map[string]*Hospital
}

func newMockHospitalRepo() *mockHospitalRepo {
	return &mockHospitalRepo{items: make(map[string]*Hospital)}
}

func (m *mockHospitalRepo) Upsert(_ context.Context, h *Hospital) error {
	m.items[h.Name] = h
	return nil
}

func (m *mockHospitalRepo) GetByName(_ context.Context, name string) (*Hospital, error) {
	h, ok := m.items[name]
	if !ok {
		return nil, ErrNotFound
	}
	return h, nil
}

func (m *mockHospitalRepo) List(_ context.Context, limit, offset int) ([]*Hospital, int, error) {
	var result []*Hospital
	for _, h := range m.items {
		result = append(result, h)
	}
	return result, len(result), nil
}

var (
	authority = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	hospAddr  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	hospAddr2 = common.HexToAddress("0x00000000000000000000000000000000000000cc")
)

func TestRegisterAndResolve(t *testing.T) {
	svc := NewService(newMockHospitalRepo(), authority, nil)

	if _, err := svc.Register(context.Background(), authority, "General Hospital", hospAddr); err != nil {
		t.Fatalf("Register: %v", err)
	}

	addr, err := svc.Resolve(context.Background(), "General Hospital")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr != hospAddr {
		t.Errorf("Resolve = %s, want %s", addr.Hex(), hospAddr.Hex())
	}
}

func TestRegister_LastWriteWins(t *testing.T) {
	svc := NewService(newMockHospitalRepo(), authority, nil)

	svc.Register(context.Background(), authority, "General Hospital", hospAddr)
	svc.Register(context.Background(), authority, "General Hospital", hospAddr2)

	addr, err := svc.Resolve(context.Background(), "General Hospital")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if addr != hospAddr2 {
		t.Errorf("Resolve = %s, want the later address %s", addr.Hex(), hospAddr2.Hex())
	}
}

func TestRegister_NotAuthority(t *testing.T) {
	svc := NewService(newMockHospitalRepo(), authority, nil)

	_, err := svc.Register(context.Background(), hospAddr, "General Hospital", hospAddr)
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("got %v, want ErrUnauthorized", err)
	}
}

func TestResolve_Unknown(t *testing.T) {
	svc := NewService(newMockHospitalRepo(), authority, nil)

	_, err := svc.Resolve(context.Background(), "Nowhere Clinic")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}
