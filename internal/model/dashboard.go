package model

// DashboardStats summarises the innovations a user can see for one year.
type DashboardStats struct {
	Year              string         `json:"year"`
	TotalInnovations  int            `json:"totalInnovations"`
	TotalCompetitions int            `json:"totalCompetitions"`
	MedalCounts       map[string]int `json:"medalCounts"`
	LevelCounts       map[string]int `json:"levelCounts"`
}
