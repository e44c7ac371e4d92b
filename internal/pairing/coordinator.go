package pairing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/servopoint/servopoint/internal/storage"
)

var (
	// ErrMissingInput reports an absent account or code.
	ErrMissingInput = errors.New("email and pairing code are required")
	// ErrInvalidCode reports a code with no live presence entry.
	ErrInvalidCode = errors.New("invalid pairing code")
	// ErrNotPaired reports an unpair for a pairing that does not exist.
	ErrNotPaired = errors.New("device not found or already unpaired")
)

// Liveness is the view of the presence tracker the coordinator needs.
type Liveness interface {
	IsKnown(code string) bool
}

// PairStore is the slice of durable storage the coordinator mutates.
type PairStore interface {
	AppendPairing(ctx context.Context, email, code string) error
	RemovePairing(ctx context.Context, email, code string) ([]string, error)
}

// Coordinator gates pairing on device liveness. It holds no state of its
// own: it reads the presence tracker and proposes mutations to the store.
type Coordinator struct {
	presence Liveness
	store    PairStore
}

// New builds a Coordinator.
func New(presence Liveness, store PairStore) *Coordinator {
	return &Coordinator{presence: presence, store: store}
}

// ValidateAndPair binds code to the account, but only while the device is
// currently live. Liveness is the sole gate: a code that exists in durable
// pairing history but is absent from the tracker is still invalid.
func (c *Coordinator) ValidateAndPair(ctx context.Context, email, code string) error {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return ErrMissingInput
	}
	if !c.presence.IsKnown(code) {
		return ErrInvalidCode
	}
	if err := c.store.AppendPairing(ctx, email, code); err != nil {
		return fmt.Errorf("pair device: %w", err)
	}
	return nil
}

// Unpair removes code from the account's devices and returns the remaining
// list. The presence tracker is untouched; a device can be unpaired while
// still live.
func (c *Coordinator) Unpair(ctx context.Context, email, code string) ([]string, error) {
	email = strings.TrimSpace(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return nil, ErrMissingInput
	}
	remaining, err := c.store.RemovePairing(ctx, email, code)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNotPaired
		}
		return nil, fmt.Errorf("unpair device: %w", err)
	}
	return remaining, nil
}
