package core

// CoveragePoint is the number of active records on one day.
type CoveragePoint struct {
	Date   Date `json:"date"`
	Active int  `json:"active"`
}

// PeriodPoint is the peak daily active count inside one reporting period.
type PeriodPoint struct {
	Start Date   `json:"start"`
	End   Date   `json:"end"`
	Label string `json:"label"`
	Max   int    `json:"max"`
}

// GroupCount counts records per (power, sphere) pair.
type GroupCount struct {
	Power  string `json:"power"`
	Sphere string `json:"sphere"`
	Total  int    `json:"total"`
}

// StateCount counts records per UF.
type StateCount struct {
	State string `json:"state"`
	Total int    `json:"total"`
}

// DailyCount counts records whose validity starts on Date.
type DailyCount struct {
	Date  Date `json:"date"`
	Total int  `json:"total"`
}

// LabelCount is a total for a single label, such as a sphere summed over powers.
type LabelCount struct {
	Label string `json:"label"`
	Total int    `json:"total"`
}
