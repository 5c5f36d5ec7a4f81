package schema

import "time"

// Turn is one request/response exchange within a Session.
type Turn struct {
	Input     Message
	Output    Message
	Timestamp time.Time
	Metadata  map[string]any
}

// Session is a persisted conversation: its turn history plus arbitrary
// runtime state, enough to resume an agent run from storage.
type Session struct {
	ID        string
	Turns     []Turn
	State     map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}
