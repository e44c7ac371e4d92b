package model

import "time"

// Schedule is a stored request to drive a device to an action at a
// time of day, expressed in the server's reference timezone.
type Schedule struct {
	ID           uint64    `json:"id"`
	PairingCode  string    `json:"pairingCode"`
	ScheduleTime string    `json:"scheduleTime"` // "HH:MM:SS"
	Action       Action    `json:"action"`
	CreatedAt    time.Time `json:"createdAt"`
}
