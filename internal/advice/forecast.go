package advice

import (
	"math"
	"strings"
	"time"

	"github.com/kjstillabower/weathernow/internal/models"
)

var hourlyGreetings = map[Category][]string{
	Morning:   {"Good morning", "Morning"},
	Afternoon: {"This afternoon", "Afternoon"},
	Evening:   {"This evening", "Evening"},
	Night:     {"Tonight", "At night"},
}

// Hour is one entry of the hourly series.
type Hour struct {
	Time          string   `json:"time"`
	Category      Category `json:"category"`
	Code          int      `json:"code"`
	Condition     string   `json:"condition"`
	Temperature   float64  `json:"temperature"`
	RainChance    float64  `json:"rainChance"`
	RainAmount    float64  `json:"rainAmount"`
	UV            float64  `json:"uv"`
	Humidity      float64  `json:"humidity"`
	WindSpeed     float64  `json:"windSpeed"`
	WindDirection float64  `json:"windDirection"`
}

// HourAt builds the context for hour i of the series. Missing values read as zero.
func HourAt(h models.HourlySeries, i int) (Hour, bool) {
	if i < 0 || i >= len(h.Time) {
		return Hour{}, false
	}
	out := Hour{
		Time:          h.Time[i],
		Temperature:   at(h.Temperature, i, 0),
		RainChance:    at(h.PrecipitationProbability, i, 0),
		RainAmount:    at(h.Precipitation, i, 0),
		UV:            at(h.UVIndex, i, 0),
		Humidity:      at(h.RelativeHumidity, i, 0),
		WindSpeed:     at(h.WindSpeed, i, 0),
		WindDirection: at(h.WindDirection, i, 0),
	}
	if i < len(h.WeatherCode) {
		out.Code = h.WeatherCode[i]
	}
	out.Condition = Condition(out.Code)
	out.Category = Afternoon
	if cat, err := CategoryFromTime(out.Time); err == nil {
		out.Category = cat
	}
	return out, true
}

// ComposeHourly builds the advice sentence for one hour.
func ComposeHourly(h Hour, p Picker) string {
	greetings, ok := hourlyGreetings[h.Category]
	if !ok {
		greetings = hourlyGreetings[Afternoon]
	}
	greeting := pick(p, greetings)

	var parts []string
	parts = appendRain(parts, h.Condition, h.RainChance)

	if h.Temperature >= 33 {
		parts = append(parts, "High heat - stay hydrated")
	} else if h.Temperature <= 10 {
		parts = append(parts, "Cold conditions - layer up")
	}

	if h.UV >= 8 && (h.Category == Morning || h.Category == Afternoon) {
		parts = append(parts, "High UV - consider sunscreen")
	}

	if h.WindSpeed >= 35 {
		parts = append(parts, "Strong winds - be cautious outside")
	} else if h.WindSpeed >= 20 {
		parts = append(parts, "Moderate winds")
	}

	if len(parts) == 0 {
		return greeting + ": Weather looks normal."
	}
	return greeting + ": " + strings.Join(parts, ", ") + "."
}

// Day is one entry of the extended daily forecast.
type Day struct {
	Date        time.Time `json:"date"`
	Code        int       `json:"code"`
	Condition   string    `json:"condition"`
	Description string    `json:"description"`
	Min         float64   `json:"min"`
	Max         float64   `json:"max"`
	RainChance  float64   `json:"rainChance"`
	RainVolume  float64   `json:"rainVolume"`
}

// DayFrom builds the context for one forecast day. The date is placed at the city's UTC
// offset so the weekday matches the location.
func DayFrom(e models.DailyEntry, utcOffsetSeconds int) Day {
	id, desc := 800, "Unknown"
	if len(e.Weather) > 0 {
		id = e.Weather[0].ID
		if e.Weather[0].Description != "" {
			desc = e.Weather[0].Description
		}
	}
	code := OpenWeatherToWMO(id)
	return Day{
		Date:        time.Unix(e.Dt, 0).In(time.FixedZone("", utcOffsetSeconds)),
		Code:        code,
		Condition:   DailyCondition(code),
		Description: desc,
		Min:         e.Temp.Min,
		Max:         e.Temp.Max,
		RainChance:  math.Round(e.Pop * 100),
		RainVolume:  e.Rain,
	}
}

// ComposeDaily builds the advice sentence for one day. It has no random wording.
func ComposeDaily(d Day) string {
	day := d.Date.Weekday().String()

	var parts []string
	parts = appendRain(parts, d.Condition, d.RainChance)

	if d.Max >= 33 {
		parts = append(parts, "High heat - stay hydrated")
	} else if d.Max <= 10 {
		parts = append(parts, "Cold day - layer up")
	}

	if d.Condition == "Fog" {
		parts = append(parts, "Reduced visibility - be cautious")
	}

	if len(parts) == 0 {
		return day + ": Normal weather expected."
	}
	return day + ": " + strings.Join(parts, ", ") + "."
}

func appendRain(parts []string, condition string, chance float64) []string {
	switch {
	case condition == "Thunderstorm" || chance >= 80:
		return append(parts, "Severe weather - best to stay indoors")
	case chance >= 50:
		return append(parts, "Rain likely - bring an umbrella")
	case chance >= 20:
		return append(parts, "Light showers possible")
	}
	return parts
}
