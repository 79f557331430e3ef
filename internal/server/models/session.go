package models

import "time"

// Session binds a request stream to an authenticated account. The zero
// value is the anonymous session.
type Session struct {
	ID        string
	Username  string
	ExpiresAt time.Time
}

// Anonymous is the unbound session.
var Anonymous = Session{}

// IsBound reports whether the session belongs to a user.
func (s Session) IsBound() bool {
	return s.ID != "" && s.Username != ""
}
