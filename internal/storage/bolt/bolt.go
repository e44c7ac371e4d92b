package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/servopoint/servopoint/internal/model"
	"github.com/servopoint/servopoint/internal/storage"
	bolt "go.etcd.io/bbolt"
)

var _ storage.Store = (*Store)(nil)

var (
	bucketUsers     = []byte("users")
	bucketPairs     = []byte("pairs")
	bucketSchedules = []byte("schedules")
	bucketActivity  = []byte("activity")
)

// Store is a BoltDB-backed Store implementation.
type Store struct {
	db *bolt.DB
}

// New initialises the Bolt store.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{bucketUsers, bucketPairs, bucketSchedules, bucketActivity} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes underlying Bolt DB.
func (s *Store) Close() error {
	return s.db.Close()
}

func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// CreateUser stores a new user record, failing if the email is taken.
func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketUsers)
		if bkt.Get([]byte(user.Email)) != nil {
			return storage.ErrAlreadyExists
		}
		return bkt.Put([]byte(user.Email), payload)
	})
}

// GetUser fetches a user by email.
func (s *Store) GetUser(ctx context.Context, email string) (*model.User, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	var user model.User
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketUsers).Get([]byte(email))
		if raw == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(raw, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsurePairing creates an empty pairing row for email if none exists.
func (s *Store) EnsurePairing(ctx context.Context, email string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketPairs)
		if bkt.Get([]byte(email)) != nil {
			return nil
		}
		payload, err := json.Marshal(&model.Pairing{
			Email:     email,
			Devices:   []string{},
			UpdatedAt: time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		return bkt.Put([]byte(email), payload)
	})
}

// GetPairing fetches the pairing row for email.
func (s *Store) GetPairing(ctx context.Context, email string) (*model.Pairing, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	var pairing model.Pairing
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketPairs).Get([]byte(email))
		if raw == nil {
			return storage.ErrNotFound
		}
		return json.Unmarshal(raw, &pairing)
	})
	if err != nil {
		return nil, err
	}
	return &pairing, nil
}

// AppendPairing adds code to the account's device list, creating the row if
// needed. Appending a code already present is a no-op.
func (s *Store) AppendPairing(ctx context.Context, email, code string) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketPairs)
		pairing := model.Pairing{Email: email, Devices: []string{}}
		if raw := bkt.Get([]byte(email)); raw != nil {
			if err := json.Unmarshal(raw, &pairing); err != nil {
				return err
			}
		}
		for _, existing := range pairing.Devices {
			if existing == code {
				return nil
			}
		}
		pairing.Devices = append(pairing.Devices, code)
		pairing.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(&pairing)
		if err != nil {
			return err
		}
		return bkt.Put([]byte(email), payload)
	})
}

// RemovePairing removes code from the account's device list and returns the
// remaining devices. It fails with ErrNotFound when the account has no row
// or the code is not currently paired.
func (s *Store) RemovePairing(ctx context.Context, email, code string) ([]string, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	var remaining []string
	err := s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketPairs)
		raw := bkt.Get([]byte(email))
		if raw == nil {
			return storage.ErrNotFound
		}
		var pairing model.Pairing
		if err := json.Unmarshal(raw, &pairing); err != nil {
			return err
		}
		kept := make([]string, 0, len(pairing.Devices))
		found := false
		for _, existing := range pairing.Devices {
			if existing == code {
				found = true
				continue
			}
			kept = append(kept, existing)
		}
		if !found {
			return storage.ErrNotFound
		}
		pairing.Devices = kept
		pairing.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(&pairing)
		if err != nil {
			return err
		}
		if err := bkt.Put([]byte(email), payload); err != nil {
			return err
		}
		remaining = kept
		return nil
	})
	if err != nil {
		return nil, err
	}
	return remaining, nil
}

// CreateSchedule appends a schedule row.
func (s *Store) CreateSchedule(ctx context.Context, schedule *model.Schedule) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = time.Now().UTC()
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketSchedules)
		id, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		schedule.ID = id
		payload, err := json.Marshal(schedule)
		if err != nil {
			return err
		}
		return bkt.Put(sequenceKey(id), payload)
	})
}

// ListSchedules returns all schedule rows in insertion order.
func (s *Store) ListSchedules(ctx context.Context) ([]*model.Schedule, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	var schedules []*model.Schedule
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketSchedules).ForEach(func(_, v []byte) error {
			var schedule model.Schedule
			if err := json.Unmarshal(v, &schedule); err != nil {
				return err
			}
			schedules = append(schedules, &schedule)
			return nil
		})
	})
	return schedules, err
}

// AppendActivity stores a delivery activity entry.
func (s *Store) AppendActivity(ctx context.Context, entry *model.ActivityLog) error {
	if err := checkCtx(ctx); err != nil {
		return err
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(bucketActivity)
		id, err := bkt.NextSequence()
		if err != nil {
			return err
		}
		entry.ID = id
		payload, err := json.Marshal(entry)
		if err != nil {
			return err
		}
		return bkt.Put(sequenceKey(id), payload)
	})
}

// ListActivity returns all activity entries.
func (s *Store) ListActivity(ctx context.Context) ([]*model.ActivityLog, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	var entries []*model.ActivityLog
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketActivity).ForEach(func(_, v []byte) error {
			var entry model.ActivityLog
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, &entry)
			return nil
		})
	})
	return entries, err
}

func sequenceKey(id uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, id)
	return key
}
