package models

// Coordinates is the geocoding result for a location query. Every other provider call
// is keyed off it.
type Coordinates struct {
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	CountryCode string  `json:"countryCode"`
	Country     string  `json:"country"`
}

// Clone returns a copy of c, or nil when c is nil.
func (c *Coordinates) Clone() *Coordinates {
	if c == nil {
		return nil
	}
	out := *c
	return &out
}

// CurrentWeather is the current_weather block of an Open-Meteo forecast.
type CurrentWeather struct {
	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"windspeed"`
	WindDirection float64 `json:"winddirection"`
	WeatherCode   int     `json:"weathercode"`
	IsDay         int     `json:"is_day"`
	Time          string  `json:"time"`
}

// HourlySeries holds the parallel hourly arrays requested from Open-Meteo.
// All slices are indexed by the same hour.
type HourlySeries struct {
	Time                     []string  `json:"time"`
	Temperature              []float64 `json:"temperature_2m"`
	ApparentTemperature      []float64 `json:"apparent_temperature"`
	RelativeHumidity         []float64 `json:"relative_humidity_2m"`
	PrecipitationProbability []float64 `json:"precipitation_probability"`
	Precipitation            []float64 `json:"precipitation"`
	WeatherCode              []int     `json:"weather_code"`
	CloudCover               []float64 `json:"cloud_cover"`
	WindSpeed                []float64 `json:"wind_speed_10m"`
	WindDirection            []float64 `json:"wind_direction_10m"`
	UVIndex                  []float64 `json:"uv_index"`
	Visibility               []float64 `json:"visibility"`
	DewPoint                 []float64 `json:"dew_point_2m"`
	PressureMSL              []float64 `json:"pressure_msl"`
}

// Weather is the current plus hourly forecast for one coordinate pair.
type Weather struct {
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	Timezone         string         `json:"timezone"`
	UTCOffsetSeconds int            `json:"utc_offset_seconds"`
	CurrentWeather   CurrentWeather `json:"current_weather"`
	Hourly           HourlySeries   `json:"hourly"`
}

// Clone returns a deep copy of w, or nil when w is nil.
func (w *Weather) Clone() *Weather {
	if w == nil {
		return nil
	}
	out := *w
	h := w.Hourly
	out.Hourly = HourlySeries{
		Time:                     cloneSlice(h.Time),
		Temperature:              cloneSlice(h.Temperature),
		ApparentTemperature:      cloneSlice(h.ApparentTemperature),
		RelativeHumidity:         cloneSlice(h.RelativeHumidity),
		PrecipitationProbability: cloneSlice(h.PrecipitationProbability),
		Precipitation:            cloneSlice(h.Precipitation),
		WeatherCode:              cloneSlice(h.WeatherCode),
		CloudCover:               cloneSlice(h.CloudCover),
		WindSpeed:                cloneSlice(h.WindSpeed),
		WindDirection:            cloneSlice(h.WindDirection),
		UVIndex:                  cloneSlice(h.UVIndex),
		Visibility:               cloneSlice(h.Visibility),
		DewPoint:                 cloneSlice(h.DewPoint),
		PressureMSL:              cloneSlice(h.PressureMSL),
	}
	return &out
}

// DailyCondition is one entry of the OpenWeather weather array.
type DailyCondition struct {
	ID          int    `json:"id"`
	Main        string `json:"main"`
	Description string `json:"description"`
}

// DailyTemp holds the min/max temperature of a forecast day.
type DailyTemp struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DailyEntry is one day of the extended forecast. Dt is a unix timestamp in seconds.
type DailyEntry struct {
	Dt      int64            `json:"dt"`
	Temp    DailyTemp        `json:"temp"`
	Pop     float64          `json:"pop"`
	Rain    float64          `json:"rain"`
	Weather []DailyCondition `json:"weather"`
}

// DailyCity describes the location the daily forecast was produced for.
type DailyCity struct {
	Name     string `json:"name"`
	Country  string `json:"country"`
	Timezone int    `json:"timezone"`
}

// DailyForecast is the extended daily forecast payload.
type DailyForecast struct {
	City DailyCity    `json:"city"`
	Cnt  int          `json:"cnt"`
	List []DailyEntry `json:"list"`
}

// Clone returns a deep copy of d, or nil when d is nil.
func (d *DailyForecast) Clone() *DailyForecast {
	if d == nil {
		return nil
	}
	out := *d
	if d.List != nil {
		out.List = make([]DailyEntry, len(d.List))
		for i, e := range d.List {
			e.Weather = cloneSlice(e.Weather)
			out.List[i] = e
		}
	}
	return &out
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
