package advice

import (
	"errors"
	"testing"
	"time"

	"github.com/kjstillabower/weathernow/internal/models"
)

// seq returns a Picker that hands out the given indexes in order, then zeros.
func seq(idx ...int) Picker {
	return PickerFunc(func(int) int {
		if len(idx) == 0 {
			return 0
		}
		i := idx[0]
		idx = idx[1:]
		return i
	})
}

func TestCategoryFromHour(t *testing.T) {
	tests := []struct {
		hour int
		want Category
	}{
		{0, Night}, {3, Night}, {4, Morning}, {10, Morning}, {11, Afternoon}, {15, Afternoon},
		{16, Evening}, {19, Evening}, {20, Night}, {23, Night},
	}
	for _, tt := range tests {
		if got := CategoryFromHour(tt.hour); got != tt.want {
			t.Errorf("CategoryFromHour(%d) = %q, want %q", tt.hour, got, tt.want)
		}
	}
}

// TestCategoryFromTime verifies that the wall clock of the location is used as is.
func TestCategoryFromTime(t *testing.T) {
	got, err := CategoryFromTime("2024-06-01T14:00")
	if err != nil || got != Afternoon {
		t.Errorf("CategoryFromTime() = %q, %v; want afternoon", got, err)
	}
	got, err = CategoryFromTime("2024-06-01T05:30:00+09:00")
	if err != nil || got != Morning {
		t.Errorf("CategoryFromTime(RFC3339) = %q, %v; want morning", got, err)
	}
	if _, err := CategoryFromTime("yesterday"); !errors.Is(err, ErrBadTime) {
		t.Errorf("CategoryFromTime(bad) error = %v, want ErrBadTime", err)
	}
}

func TestCodeLabels(t *testing.T) {
	tests := []struct {
		code                    int
		condition, indicator, d string
	}{
		{0, "Clear", "Clear", "Clear Sky"},
		{2, "Cloudy", "Partly Cloudy", "Partly Cloudy"},
		{48, "Fog", "Fog", "Depositing Rime Fog"},
		{55, "Drizzle", "Rain", "Dense Drizzle"},
		{65, "Rain", "Rain", "Heavy Rain"},
		{77, "Snow", "Snow", "Unknown"},
		{81, "Showers", "Showers", "Unknown"},
		{86, "Unknown", "Snow Showers", "Unknown"},
		{96, "Thunderstorm", "Thunderstorm", "Thunderstorm With Hail"},
		{42, "Unknown", "Unknown", "Unknown"},
	}
	for _, tt := range tests {
		if got := Condition(tt.code); got != tt.condition {
			t.Errorf("Condition(%d) = %q, want %q", tt.code, got, tt.condition)
		}
		if got := IndicatorLabel(tt.code); got != tt.indicator {
			t.Errorf("IndicatorLabel(%d) = %q, want %q", tt.code, got, tt.indicator)
		}
		if got := Description(tt.code); got != tt.d {
			t.Errorf("Description(%d) = %q, want %q", tt.code, got, tt.d)
		}
	}
}

func TestOpenWeatherToWMO(t *testing.T) {
	tests := map[int]int{
		800: 0, 801: 1, 802: 2, 803: 3, 804: 3,
		500: 61, 531: 61, 600: 71, 622: 71, 200: 95, 232: 95, 701: 45, 781: 45,
		300: 0, 999: 0,
	}
	for id, want := range tests {
		if got := OpenWeatherToWMO(id); got != want {
			t.Errorf("OpenWeatherToWMO(%d) = %d, want %d", id, got, want)
		}
	}
	if got := DailyCondition(OpenWeatherToWMO(741)); got != "Fog" {
		t.Errorf("DailyCondition(fog) = %q", got)
	}
	if got := DailyCondition(48); got != "Unknown" {
		t.Errorf("DailyCondition(48) = %q, want Unknown", got)
	}
}

func sampleWeather() *models.Weather {
	return &models.Weather{
		Timezone:         "Europe/Paris",
		UTCOffsetSeconds: 7200,
		CurrentWeather:   models.CurrentWeather{Temperature: 21.4, WindSpeed: 9, WeatherCode: 3, Time: "2024-06-01T14:00"},
		Hourly: models.HourlySeries{
			Time:                     []string{"2024-06-01T13:00", "2024-06-01T14:00"},
			Temperature:              []float64{20, 21},
			ApparentTemperature:      []float64{19, 22.5},
			RelativeHumidity:         []float64{50, 55},
			PrecipitationProbability: []float64{0, 10},
			Precipitation:            []float64{0, 0.2},
			WeatherCode:              []int{2, 3},
			CloudCover:               []float64{40, 60},
			WindSpeed:                []float64{8, 12},
			WindDirection:            []float64{180, 190},
			UVIndex:                  []float64{5, 6},
			Visibility:               []float64{24140, 18250},
			DewPoint:                 []float64{11, 12},
			PressureMSL:              []float64{1015, 1016},
		},
	}
}

// TestParseToday verifies that the current hour is found by timestamp and values are
// read from that index.
func TestParseToday(t *testing.T) {
	got, ok := ParseToday(sampleWeather(), time.Time{})
	if !ok {
		t.Fatal("ParseToday() ok = false")
	}
	if got.HourIndex != 1 {
		t.Errorf("HourIndex = %d, want 1", got.HourIndex)
	}
	if got.FeelsLike != 22.5 || got.RainChance != 10 || got.WindSpeed != 12 || got.Pressure != 1016 {
		t.Errorf("ParseToday() = %+v", got)
	}
	if got.VisibilityKm == nil || *got.VisibilityKm != 18.3 {
		t.Errorf("VisibilityKm = %v, want 18.3", got.VisibilityKm)
	}
	if got.Condition != "Cloudy" {
		t.Errorf("Condition = %q, want Cloudy", got.Condition)
	}
}

// TestParseToday_Fallbacks verifies defaults when the hourly series is missing values.
func TestParseToday_Fallbacks(t *testing.T) {
	w := &models.Weather{CurrentWeather: models.CurrentWeather{Temperature: 7, Time: "2024-06-01T09:00"}}
	got, _ := ParseToday(w, time.Time{})
	if got.HourIndex != 9 {
		t.Errorf("HourIndex = %d, want 9", got.HourIndex)
	}
	if got.FeelsLike != 7 || got.Pressure != 1013 || got.VisibilityKm != nil {
		t.Errorf("ParseToday() fallbacks = %+v", got)
	}
	if _, ok := ParseToday(nil, time.Time{}); ok {
		t.Error("ParseToday(nil) ok = true")
	}
}

func TestComposeToday(t *testing.T) {
	vis := 3.0
	tests := []struct {
		name  string
		today Today
		cat   Category
		p     Picker
		want  string
	}{
		{
			name:  "nothing notable",
			today: Today{Condition: "Clear", FeelsLike: 20},
			cat:   Morning,
			p:     seq(1, 2, 0),
			want:  "Morning! It's great - perfect for a jog.",
		},
		{
			name:  "storm with greeting prefix",
			today: Today{Condition: "Thunderstorm", FeelsLike: 20},
			cat:   Evening,
			p:     seq(1, 1),
			want:  "Tonight: Severe weather - stay indoors.",
		},
		{
			name:  "coin adds prefix",
			today: Today{Condition: "Rain", RainChance: 60, FeelsLike: 36},
			cat:   Afternoon,
			p:     seq(0, 0),
			want:  "This afternoon: This afternoon: Rain likely - bring an umbrella, Hot and humid - stay hydrated.",
		},
		{
			name:  "uv wind visibility",
			today: Today{Condition: "Clear", FeelsLike: 20, UV: 9, WindSpeed: 25, VisibilityKm: &vis},
			cat:   Afternoon,
			p:     seq(0, 1),
			want:  "Moderate UV - wear sunscreen if outside, Moderate wind - be cautious outdoors, Low visibility - drive carefully.",
		},
		{
			name:  "night skips moderate wind and uv",
			today: Today{Condition: "Clear", FeelsLike: 5, UV: 9, WindSpeed: 25},
			cat:   Night,
			p:     seq(0, 1),
			want:  "Cold weather - wrap up warmly.",
		},
		{
			name:  "overcast only when nothing else",
			today: Today{Condition: "Cloudy", FeelsLike: 20, CloudCover: 95},
			cat:   Evening,
			p:     seq(0, 1),
			want:  "Cloudy evening - cool and calm.",
		},
		{
			name:  "muggy",
			today: Today{Condition: "Clear", Temperature: 31, FeelsLike: 34, DewPoint: 25},
			cat:   Afternoon,
			p:     seq(0, 1),
			want:  "High dew point - feels muggy.",
		},
		{
			name:  "light showers",
			today: Today{Condition: "Drizzle", RainChance: 20, FeelsLike: 15},
			cat:   Morning,
			p:     seq(0, 1),
			want:  "Light showers possible - minor chance of drizzle.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComposeToday(tt.today, tt.cat, tt.p); got != tt.want {
				t.Errorf("ComposeToday() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHourAt(t *testing.T) {
	w := sampleWeather()
	h, ok := HourAt(w.Hourly, 0)
	if !ok {
		t.Fatal("HourAt(0) ok = false")
	}
	if h.Category != Afternoon || h.Condition != "Cloudy" || h.UV != 5 || h.WindDirection != 180 {
		t.Errorf("HourAt(0) = %+v", h)
	}
	if _, ok := HourAt(w.Hourly, 5); ok {
		t.Error("HourAt(out of range) ok = true")
	}
}

func TestComposeHourly(t *testing.T) {
	tests := []struct {
		name string
		hour Hour
		want string
	}{
		{"normal", Hour{Category: Night, Condition: "Clear", Temperature: 15}, "Tonight: Weather looks normal."},
		{"heat and uv", Hour{Category: Afternoon, Condition: "Clear", Temperature: 34, UV: 9}, "This afternoon: High heat - stay hydrated, High UV - consider sunscreen."},
		{"rain and wind", Hour{Category: Morning, Condition: "Rain", RainChance: 55, Temperature: 15, WindSpeed: 40}, "Good morning: Rain likely - bring an umbrella, Strong winds - be cautious outside."},
		{"cold evening uv ignored", Hour{Category: Evening, Condition: "Showers", RainChance: 25, Temperature: 8, UV: 9, WindSpeed: 22}, "This evening: Light showers possible, Cold conditions - layer up, Moderate winds."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComposeHourly(tt.hour, First); got != tt.want {
				t.Errorf("ComposeHourly() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestDayFrom verifies code mapping, rain percentage and the weekday at the city offset.
func TestDayFrom(t *testing.T) {
	// 2024-06-01 23:00 UTC is Sunday 2024-06-02 in UTC+2.
	e := models.DailyEntry{
		Dt:      time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC).Unix(),
		Temp:    models.DailyTemp{Min: 12, Max: 24},
		Pop:     0.456,
		Rain:    1.5,
		Weather: []models.DailyCondition{{ID: 701, Description: "mist"}},
	}
	d := DayFrom(e, 7200)
	if d.Date.Weekday() != time.Sunday {
		t.Errorf("weekday = %v, want Sunday", d.Date.Weekday())
	}
	if d.Code != 45 || d.Condition != "Fog" || d.Description != "mist" || d.RainChance != 46 {
		t.Errorf("DayFrom() = %+v", d)
	}
	if got := ComposeDaily(d); got != "Sunday: Light showers possible, Reduced visibility - be cautious." {
		t.Errorf("ComposeDaily() = %q", got)
	}

	empty := DayFrom(models.DailyEntry{Dt: e.Dt}, 0)
	if empty.Code != 0 || empty.Description != "Unknown" {
		t.Errorf("DayFrom(no weather) = %+v", empty)
	}
}

func TestComposeDaily(t *testing.T) {
	sat := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		day  Day
		want string
	}{
		{"normal", Day{Date: sat, Condition: "Clear", Max: 22}, "Saturday: Normal weather expected."},
		{"storm and heat", Day{Date: sat, Condition: "Thunderstorm", Max: 35}, "Saturday: Severe weather - best to stay indoors, High heat - stay hydrated."},
		{"cold", Day{Date: sat, Condition: "Snow", RainChance: 10, Max: 2}, "Saturday: Cold day - layer up."},
		{"rain chance", Day{Date: sat, Condition: "Cloudy", RainChance: 85, Max: 20}, "Saturday: Severe weather - best to stay indoors."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ComposeDaily(tt.day); got != tt.want {
				t.Errorf("ComposeDaily() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestRandomPicker verifies the picker stays in range.
func TestRandomPicker(t *testing.T) {
	p := RandomPicker()
	for i := 0; i < 100; i++ {
		if n := p.Pick(3); n < 0 || n >= 3 {
			t.Fatalf("Pick(3) = %d", n)
		}
	}
	if p.Pick(0) != 0 {
		t.Error("Pick(0) != 0")
	}
}
