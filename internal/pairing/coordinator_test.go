package pairing

import (
	"context"
	"errors"
	"testing"

	"github.com/servopoint/servopoint/internal/storage"
)

type fakeLiveness map[string]bool

func (f fakeLiveness) IsKnown(code string) bool { return f[code] }

type fakePairStore struct {
	devices map[string][]string
	failure error
	appends int
}

func newFakePairStore() *fakePairStore {
	return &fakePairStore{devices: make(map[string][]string)}
}

func (f *fakePairStore) AppendPairing(_ context.Context, email, code string) error {
	if f.failure != nil {
		return f.failure
	}
	f.appends++
	f.devices[email] = append(f.devices[email], code)
	return nil
}

func (f *fakePairStore) RemovePairing(_ context.Context, email, code string) ([]string, error) {
	if f.failure != nil {
		return nil, f.failure
	}
	list, ok := f.devices[email]
	if !ok {
		return nil, storage.ErrNotFound
	}
	kept := make([]string, 0, len(list))
	found := false
	for _, existing := range list {
		if existing == code {
			found = true
			continue
		}
		kept = append(kept, existing)
	}
	if !found {
		return nil, storage.ErrNotFound
	}
	f.devices[email] = kept
	return kept, nil
}

func TestValidateAndPairRequiresInput(t *testing.T) {
	c := New(fakeLiveness{}, newFakePairStore())
	ctx := context.Background()

	if err := c.ValidateAndPair(ctx, "", "AB12"); !errors.Is(err, ErrMissingInput) {
		t.Errorf("missing email: expected ErrMissingInput, got %v", err)
	}
	if err := c.ValidateAndPair(ctx, "a@x.com", "  "); !errors.Is(err, ErrMissingInput) {
		t.Errorf("blank code: expected ErrMissingInput, got %v", err)
	}
}

func TestValidateAndPairGatesOnLiveness(t *testing.T) {
	store := newFakePairStore()
	c := New(fakeLiveness{"AB12": true}, store)
	ctx := context.Background()

	if err := c.ValidateAndPair(ctx, "a@x.com", "XX99"); !errors.Is(err, ErrInvalidCode) {
		t.Errorf("unknown code: expected ErrInvalidCode, got %v", err)
	}
	if store.appends != 0 {
		t.Error("failed validation must not touch the store")
	}

	if err := c.ValidateAndPair(ctx, "a@x.com", "AB12"); err != nil {
		t.Fatalf("pair live code: %v", err)
	}
	if got := store.devices["a@x.com"]; len(got) != 1 || got[0] != "AB12" {
		t.Errorf("unexpected pairings %v", got)
	}
}

func TestValidateAndPairNeverTrustsHistory(t *testing.T) {
	// The code exists in durable pairing history but the device is no
	// longer live, so validation must still fail.
	store := newFakePairStore()
	store.devices["a@x.com"] = []string{"AB12"}
	c := New(fakeLiveness{}, store)

	err := c.ValidateAndPair(context.Background(), "a@x.com", "AB12")
	if !errors.Is(err, ErrInvalidCode) {
		t.Errorf("expected ErrInvalidCode, got %v", err)
	}
}

func TestValidateAndPairSurfacesStoreFailure(t *testing.T) {
	store := newFakePairStore()
	store.failure = errors.New("store down")
	c := New(fakeLiveness{"AB12": true}, store)

	err := c.ValidateAndPair(context.Background(), "a@x.com", "AB12")
	if err == nil || errors.Is(err, ErrInvalidCode) {
		t.Errorf("expected upstream failure, got %v", err)
	}
}

func TestUnpair(t *testing.T) {
	store := newFakePairStore()
	store.devices["a@x.com"] = []string{"D1", "D2"}
	c := New(fakeLiveness{}, store)
	ctx := context.Background()

	remaining, err := c.Unpair(ctx, "a@x.com", "D1")
	if err != nil {
		t.Fatalf("unpair: %v", err)
	}
	if len(remaining) != 1 || remaining[0] != "D2" {
		t.Errorf("expected remaining [D2], got %v", remaining)
	}

	// Repeating the same unpair is not found.
	if _, err := c.Unpair(ctx, "a@x.com", "D1"); !errors.Is(err, ErrNotPaired) {
		t.Errorf("double unpair: expected ErrNotPaired, got %v", err)
	}
}

func TestUnpairRequiresInput(t *testing.T) {
	c := New(fakeLiveness{}, newFakePairStore())
	if _, err := c.Unpair(context.Background(), "a@x.com", ""); !errors.Is(err, ErrMissingInput) {
		t.Errorf("expected ErrMissingInput, got %v", err)
	}
}
