package model

// Ack is the standard success envelope for operations with no payload.
type Ack struct {
	Message string `json:"message"`
}

// ErrorBody carries a machine-readable error plus optional detail.
type ErrorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AckMessage wraps msg in an Ack.
func AckMessage(msg string) Ack {
	return Ack{Message: msg}
}

// Error returns an ErrorBody with the given message.
func Error(msg string) ErrorBody {
	return ErrorBody{Error: msg}
}

// ErrorWithDetails returns an ErrorBody with an underlying cause attached.
func ErrorWithDetails(msg, details string) ErrorBody {
	return ErrorBody{Error: msg, Details: details}
}
