package model

import "time"

// Session binds an opaque bearer token to an email.
//
// Token is only populated on the value returned from creation; storage keeps
// a digest of it, never the raw value. ExpiresAt is zero when sessions do not
// expire.
type Session struct {
	Token      string    `json:"-"`
	Email      string    `json:"email"`
	CreatedAt  time.Time `json:"createdAt"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	ExpiresAt  time.Time `json:"expiresAt,omitzero"`
}

// Expired reports whether the session is past its expiry at time now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
