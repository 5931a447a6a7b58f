package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// NotAvailable is the placeholder used wherever a figure has no data.
const NotAvailable = "N/A"

// Currency is the currency block of a country record.
type Currency struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// CountryInfo is the country record returned by the country provider.
type CountryInfo struct {
	Name        string   `json:"name"`
	ISO2        string   `json:"iso2"`
	Capital     string   `json:"capital"`
	Region      string   `json:"region"`
	SurfaceArea float64  `json:"surface_area"`
	GDP         float64  `json:"gdp"`
	Population  float64  `json:"population"`
	Currency    Currency `json:"currency"`
}

// Clone returns a copy of c, or nil when c is nil.
func (c *CountryInfo) Clone() *CountryInfo {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

// Figure is a value that the population provider sends as a JSON number, and that the
// unavailable placeholder carries as the string "N/A". It keeps the raw text and
// re-encodes numbers as numbers.
type Figure string

// UnmarshalJSON accepts a JSON number, a JSON string or null.
func (f *Figure) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Figure(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = Figure(n.String())
	return nil
}

// MarshalJSON writes numeric figures as numbers and anything else as a string.
func (f Figure) MarshalJSON() ([]byte, error) {
	if _, ok := f.Float(); ok {
		return []byte(f), nil
	}
	return json.Marshal(string(f))
}

// Float returns the numeric value of f and whether it is numeric.
func (f Figure) Float() (float64, bool) {
	if f == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(string(f), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// PopulationYear is one year of population history.
type PopulationYear struct {
	Year                        Figure `json:"year"`
	Population                  Figure `json:"population"`
	PercentageOfWorldPopulation Figure `json:"percentage_of_world_population,omitempty"`
}

// Population is the population history of a country, most recent year first.
type Population struct {
	HistoricalPopulation []PopulationYear `json:"historical_population"`
}

// PopulationUnavailable is the placeholder used when the population source fails.
func PopulationUnavailable() Population {
	return Population{
		HistoricalPopulation: []PopulationYear{{Year: NotAvailable, Population: NotAvailable}},
	}
}

// Clone returns a deep copy of p, or nil when p is nil.
func (p *Population) Clone() *Population {
	if p == nil {
		return nil
	}
	return &Population{HistoricalPopulation: cloneSlice(p.HistoricalPopulation)}
}

// Latest returns the most recent year, if any.
func (p *Population) Latest() (PopulationYear, bool) {
	if p == nil || len(p.HistoricalPopulation) == 0 {
		return PopulationYear{}, false
	}
	return p.HistoricalPopulation[0], true
}
