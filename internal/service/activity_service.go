package service

import (
	"context"
	"sort"
	"strings"

	"github.com/servopoint/servopoint/internal/model"
	"github.com/servopoint/servopoint/internal/storage"
)

// ActivityService provides filtering and pagination over delivery activity.
type ActivityService struct {
	store storage.Store
}

// NewActivityService builds the activity service.
func NewActivityService(store storage.Store) *ActivityService {
	return &ActivityService{store: store}
}

// Query returns paginated activity entries, newest first.
func (s *ActivityService) Query(ctx context.Context, filter model.ActivityFilter) (*model.ActivityPage, error) {
	entries, err := s.filtered(ctx, filter)
	if err != nil {
		return nil, err
	}

	total := len(entries)
	if filter.PageSize <= 0 {
		filter.PageSize = 10
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}

	start := (filter.Page - 1) * filter.PageSize
	if start > total {
		start = total
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}

	pages := (total + filter.PageSize - 1) / filter.PageSize

	return &model.ActivityPage{
		Data:     entries[start:end],
		Total:    total,
		Pages:    pages,
		PageNum:  filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

func (s *ActivityService) filtered(ctx context.Context, filter model.ActivityFilter) ([]*model.ActivityLog, error) {
	all, err := s.store.ListActivity(ctx)
	if err != nil {
		return nil, err
	}
	matches := make([]*model.ActivityLog, 0, len(all))
	for _, entry := range all {
		if filter.PairingCode != "" && !strings.EqualFold(entry.PairingCode, filter.PairingCode) {
			continue
		}
		if filter.Status != "" && !strings.EqualFold(entry.Status, filter.Status) {
			continue
		}
		if filter.BeginTime != nil && entry.CreatedAt.Before(filter.BeginTime.UTC()) {
			continue
		}
		if filter.EndTime != nil && entry.CreatedAt.After(filter.EndTime.UTC()) {
			continue
		}
		matches = append(matches, entry)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}
