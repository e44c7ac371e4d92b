package model

import "time"

// Pairing binds an account to the pairing codes of the devices it controls.
type Pairing struct {
	Email     string    `json:"email"`
	Devices   []string  `json:"paired_device"`
	UpdatedAt time.Time `json:"updatedAt"`
}
