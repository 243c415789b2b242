package model

import "time"

// IPO (intellectual property) registration states.
const (
	IPOYes = "yes"
	IPONo  = "no"
)

// Innovation is a record owned by the staff member who created it.
//
// OwnerEmail is set once at creation and never changes. Seq is the storage
// insertion order, used to break ties between records created in the same
// instant.
type Innovation struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Year       string    `json:"year"`
	Category   string    `json:"category"`
	Status     string    `json:"status"`
	IPOStatus  string    `json:"ipoStatus"`
	IPONumber  string    `json:"ipoNumber"`
	OwnerEmail string    `json:"ownerEmail"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Seq        int64     `json:"-"`
}
