package advice

import (
	"math"
	"strings"
	"time"

	"github.com/kjstillabower/weathernow/internal/models"
)

// defaultPressure is used when the forecast carries no sea-level pressure for the hour.
const defaultPressure = 1013

type tone struct {
	greeting []string
	positive []string
	casual   []string
}

var todayTones = map[Category]tone{
	Morning: {
		greeting: []string{"Good morning", "Morning"},
		positive: []string{"lovely", "bright", "great"},
		casual:   []string{"perfect for a jog", "great for a walk", "nice for errands"},
	},
	Afternoon: {
		greeting: []string{"This afternoon", "This afternoon"},
		positive: []string{"pleasant", "nice", "fine"},
		casual:   []string{"ok for outdoor plans", "suitable for short trips"},
	},
	Evening: {
		greeting: []string{"This evening", "Tonight", "Evening"},
		positive: []string{"calm", "mild", "relaxed"},
		casual:   []string{"good for a stroll", "nice to unwind outside"},
	},
	Night: {
		greeting: []string{"Tonight", "At night"},
		positive: []string{"quiet", "cool", "calm"},
		casual:   []string{"low activity hours", "stay cautious on the roads"},
	},
}

var overcast = map[Category]string{
	Morning:   "Overcast morning - take it easy outside",
	Afternoon: "Cloudy afternoon - muted sunlight",
	Evening:   "Cloudy evening - cool and calm",
	Night:     "Cloudy night - low visibility outside",
}

// Today is the weather at the current hour of the displayed location.
type Today struct {
	Time          string   `json:"time"`
	HourIndex     int      `json:"hourIndex"`
	Code          int      `json:"code"`
	Condition     string   `json:"condition"`
	Temperature   float64  `json:"temperature"`
	FeelsLike     float64  `json:"feelsLike"`
	RainChance    float64  `json:"rainChance"`
	RainAmount    float64  `json:"rainAmount"`
	Humidity      float64  `json:"humidity"`
	UV            float64  `json:"uv"`
	WindSpeed     float64  `json:"windSpeed"`
	WindDirection float64  `json:"windDirection"`
	CloudCover    float64  `json:"cloudCover"`
	DewPoint      float64  `json:"dewPoint"`
	Pressure      float64  `json:"pressure"`
	VisibilityKm  *float64 `json:"visibilityKm"`
}

// ParseToday reads the current-hour values out of a forecast. The hour is the entry
// whose timestamp matches current_weather.time; failing that the hour of that
// timestamp; failing that the hour of now at the location's UTC offset.
func ParseToday(w *models.Weather, now time.Time) (Today, bool) {
	if w == nil {
		return Today{}, false
	}
	cur := w.CurrentWeather
	h := w.Hourly
	i := hourIndex(w, now)

	t := Today{
		Time:          cur.Time,
		HourIndex:     i,
		Code:          cur.WeatherCode,
		Temperature:   cur.Temperature,
		FeelsLike:     at(h.ApparentTemperature, i, cur.Temperature),
		RainChance:    at(h.PrecipitationProbability, i, 0),
		RainAmount:    at(h.Precipitation, i, 0),
		Humidity:      at(h.RelativeHumidity, i, 0),
		UV:            at(h.UVIndex, i, 0),
		WindSpeed:     at(h.WindSpeed, i, cur.WindSpeed),
		WindDirection: at(h.WindDirection, i, cur.WindDirection),
		CloudCover:    at(h.CloudCover, i, 0),
		DewPoint:      at(h.DewPoint, i, 0),
		Pressure:      at(h.PressureMSL, i, defaultPressure),
	}
	if cur.Time == "" && i < len(h.WeatherCode) {
		t.Code = h.WeatherCode[i]
	}
	if i < len(h.Visibility) {
		km := math.Round(h.Visibility[i]/100) / 10
		t.VisibilityKm = &km
	}
	t.Condition = Condition(t.Code)
	return t, true
}

func hourIndex(w *models.Weather, now time.Time) int {
	cur := w.CurrentWeather.Time
	if cur != "" {
		for i, ts := range w.Hourly.Time {
			if ts == cur {
				return i
			}
		}
		if t, err := ParseLocal(cur); err == nil {
			return t.Hour()
		}
	}
	return now.In(time.FixedZone("", w.UTCOffsetSeconds)).Hour()
}

func at(values []float64, i int, fallback float64) float64 {
	if i < 0 || i >= len(values) {
		return fallback
	}
	return values[i]
}

// ComposeToday builds the advice sentence for the current hour.
func ComposeToday(t Today, cat Category, p Picker) string {
	tn, ok := todayTones[cat]
	if !ok {
		tn = todayTones[Afternoon]
	}
	greeting := pick(p, tn.greeting)

	var parts []string
	switch {
	case t.Condition == "Thunderstorm" || t.RainChance >= 80:
		parts = append(parts, greeting+": Severe weather - stay indoors")
	case t.RainChance >= 50:
		parts = append(parts, greeting+": Rain likely - bring an umbrella")
	case t.RainChance >= 20:
		parts = append(parts, "Light showers possible - minor chance of drizzle")
	}

	if t.FeelsLike >= 35 {
		parts = append(parts, "Hot and humid - stay hydrated")
	} else if t.FeelsLike <= 10 {
		parts = append(parts, "Cold weather - wrap up warmly")
	}

	daytime := cat == Morning || cat == Afternoon
	if t.UV >= 11 {
		parts = append(parts, "Extreme UV - avoid sun exposure")
	} else if t.UV >= 8 && daytime {
		parts = append(parts, "Moderate UV - wear sunscreen if outside")
	}

	if t.WindSpeed >= 35 {
		parts = append(parts, "Windy conditions - secure loose items")
	} else if t.WindSpeed >= 20 && cat != Night {
		parts = append(parts, "Moderate wind - be cautious outdoors")
	}

	if t.VisibilityKm != nil && *t.VisibilityKm <= 5 {
		parts = append(parts, "Low visibility - drive carefully")
	}

	if t.CloudCover >= 90 && len(parts) == 0 {
		if s, ok := overcast[cat]; ok {
			parts = append(parts, s)
		}
	}

	if t.DewPoint >= 24 && t.Temperature >= 30 {
		parts = append(parts, "High dew point - feels muggy")
	}

	if len(parts) == 0 {
		return greeting + "! It's " + pick(p, tn.positive) + " - " + pick(p, tn.casual) + "."
	}

	prefix := ""
	if p == nil || p.Pick(2) == 0 {
		prefix = greeting + ":"
	}
	return strings.TrimSpace(prefix+" "+strings.Join(parts, ", ")) + "."
}
