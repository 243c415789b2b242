package model

import "time"

// Competition is an event an innovation was entered into.
// SpecialAward is "yes" or "no"; SpecialAwardName is only kept for "yes".
type Competition struct {
	ID               string    `json:"id"`
	InnovationID     string    `json:"innovationId"`
	EventName        string    `json:"eventName"`
	Year             string    `json:"year"`
	Level            string    `json:"level"`
	Medal            string    `json:"medal"`
	SpecialAward     string    `json:"specialAward"`
	SpecialAwardName string    `json:"specialAwardName"`
	CreatedByEmail   string    `json:"createdByEmail"`
	CreatedAt        time.Time `json:"createdAt"`
}
