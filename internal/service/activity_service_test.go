package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/servopoint/servopoint/internal/model"
	"github.com/servopoint/servopoint/internal/storage/bolt"
)

func newActivityService(t *testing.T) *ActivityService {
	t.Helper()
	store, err := bolt.New(filepath.Join(t.TempDir(), "activity.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	seed := []*model.ActivityLog{
		{PairingCode: "AB12", Kind: model.ActivityKindSchedule, Action: model.ActionOn, Status: model.ActivityStatusSuccess},
		{PairingCode: "AB12", Kind: model.ActivityKindSchedule, Action: model.ActionOff, Status: model.ActivityStatusFailed},
		{PairingCode: "CD34", Kind: model.ActivityKindWifi, Status: model.ActivityStatusSuccess},
	}
	for _, entry := range seed {
		if err := store.AppendActivity(ctx, entry); err != nil {
			t.Fatalf("seed activity: %v", err)
		}
	}
	return NewActivityService(store)
}

func TestQueryFiltersByDevice(t *testing.T) {
	svc := newActivityService(t)

	page, err := svc.Query(context.Background(), model.ActivityFilter{PairingCode: "ab12"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("expected 2 entries for AB12, got %d", page.Total)
	}
	for _, entry := range page.Data {
		if entry.PairingCode != "AB12" {
			t.Errorf("unexpected entry for %s", entry.PairingCode)
		}
	}
}

func TestQueryFiltersByStatus(t *testing.T) {
	svc := newActivityService(t)

	page, err := svc.Query(context.Background(), model.ActivityFilter{Status: model.ActivityStatusFailed})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if page.Total != 1 || page.Data[0].Action != model.ActionOff {
		t.Errorf("unexpected failed entries: %+v", page.Data)
	}
}

func TestQueryPaginates(t *testing.T) {
	svc := newActivityService(t)

	page, err := svc.Query(context.Background(), model.ActivityFilter{Page: 2, PageSize: 2})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if page.Total != 3 || page.Pages != 2 || page.PageNum != 2 {
		t.Errorf("unexpected pagination: total=%d pages=%d num=%d", page.Total, page.Pages, page.PageNum)
	}
	if len(page.Data) != 1 {
		t.Errorf("expected 1 entry on last page, got %d", len(page.Data))
	}
}
