package model

import (
	"fmt"
	"strings"
)

// Action is a commanded servo position.
type Action string

const (
	ActionOn  Action = "ON"
	ActionOff Action = "OFF"
)

// ParseAction normalises and validates a client-supplied action string.
func ParseAction(value string) (Action, error) {
	switch Action(strings.ToUpper(strings.TrimSpace(value))) {
	case ActionOn:
		return ActionOn, nil
	case ActionOff:
		return ActionOff, nil
	default:
		return "", fmt.Errorf("invalid state %q", value)
	}
}
