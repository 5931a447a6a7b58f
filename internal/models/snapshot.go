package models

import "time"

// Snapshot is the complete set of latest values across all sources for one query.
// It is only ever replaced as a whole. When Error is set every data slot is nil.
type Snapshot struct {
	Seq         uint64         `json:"seq"`
	Query       string         `json:"query,omitempty"`
	Coordinates *Coordinates   `json:"coordinates"`
	Weather     *Weather       `json:"weather"`
	Daily       *DailyForecast `json:"daily"`
	Country     *CountryInfo   `json:"country"`
	Population  *Population    `json:"population"`
	Error       string         `json:"error,omitempty"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Failed reports whether the snapshot carries an error instead of data.
func (s Snapshot) Failed() bool {
	return s.Error != ""
}

// Empty reports whether no fetch cycle has produced this snapshot yet.
func (s Snapshot) Empty() bool {
	return s.Seq == 0 && s.Error == "" && s.Coordinates == nil
}

// Clone returns a deep copy; receivers may keep or modify it freely.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Coordinates = s.Coordinates.Clone()
	out.Weather = s.Weather.Clone()
	out.Daily = s.Daily.Clone()
	out.Country = s.Country.Clone()
	out.Population = s.Population.Clone()
	return out
}

// ErrorSnapshot builds the error-only snapshot published when a cycle fails.
func ErrorSnapshot(seq uint64, query string, err error, at time.Time) Snapshot {
	return Snapshot{
		Seq:       seq,
		Query:     query,
		Error:     err.Error(),
		UpdatedAt: at,
	}
}
