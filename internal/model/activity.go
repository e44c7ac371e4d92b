package model

import "time"

// ActivityLog records one delivery attempt to a device.
type ActivityLog struct {
	ID          uint64    `json:"id"`
	PairingCode string    `json:"pairingCode"`
	Kind        string    `json:"kind"`
	Action      Action    `json:"action,omitempty"`
	Status      string    `json:"status"`
	Result      string    `json:"result,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

const (
	ActivityKindSchedule = "SCHEDULE"
	ActivityKindWifi     = "WIFI"

	ActivityStatusSuccess = "SUCCESS"
	ActivityStatusFailed  = "FAILED"
)

// ActivityFilter describes query parameters for activity searching.
type ActivityFilter struct {
	PairingCode string
	Status      string
	BeginTime   *time.Time
	EndTime     *time.Time
	Page        int
	PageSize    int
}

// ActivityPage is a paginated activity listing.
type ActivityPage struct {
	Data     []*ActivityLog `json:"data"`
	Total    int            `json:"total"`
	Pages    int            `json:"pages"`
	PageNum  int            `json:"pageNum"`
	PageSize int            `json:"pageSize"`
}
