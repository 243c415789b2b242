package model

import "time"

// Staff is an entry in the staff directory. Only active entries may sign in.
type Staff struct {
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Dept      string    `json:"dept"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
}
