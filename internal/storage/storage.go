package storage

import (
	"context"

	"github.com/servopoint/servopoint/internal/model"
)

// Store abstracts durable persistence of users, pairings, schedules and
// delivery activity. The in-memory core never holds this data as primary
// state; it only proposes mutations through these operations.
type Store interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUser(ctx context.Context, email string) (*model.User, error)

	EnsurePairing(ctx context.Context, email string) error
	GetPairing(ctx context.Context, email string) (*model.Pairing, error)
	AppendPairing(ctx context.Context, email, code string) error
	RemovePairing(ctx context.Context, email, code string) ([]string, error)

	CreateSchedule(ctx context.Context, schedule *model.Schedule) error
	ListSchedules(ctx context.Context) ([]*model.Schedule, error)

	AppendActivity(ctx context.Context, entry *model.ActivityLog) error
	ListActivity(ctx context.Context) ([]*model.ActivityLog, error)

	Close() error
}
