package advice

// Condition names a WMO weather code for the today and hourly advice rules.
func Condition(code int) string {
	switch code {
	case 0:
		return "Clear"
	case 1, 2, 3:
		return "Cloudy"
	case 45, 48:
		return "Fog"
	case 51, 53, 55, 56, 57:
		return "Drizzle"
	case 61, 63, 65, 66, 67:
		return "Rain"
	case 71, 73, 75, 77:
		return "Snow"
	case 80, 81, 82:
		return "Showers"
	case 95, 96, 99:
		return "Thunderstorm"
	}
	return "Unknown"
}

// DailyCondition names the reduced code set produced by OpenWeatherToWMO.
func DailyCondition(code int) string {
	switch code {
	case 0:
		return "Clear"
	case 1, 2, 3:
		return "Cloudy"
	case 45:
		return "Fog"
	case 61:
		return "Rain"
	case 71:
		return "Snow"
	case 95:
		return "Thunderstorm"
	}
	return "Unknown"
}

// IndicatorLabel is the coarse label shown under the current temperature.
func IndicatorLabel(code int) string {
	switch {
	case code == 0:
		return "Clear"
	case code >= 1 && code <= 3:
		return "Partly Cloudy"
	case code >= 45 && code <= 48:
		return "Fog"
	case code >= 51 && code <= 67:
		return "Rain"
	case code >= 71 && code <= 77:
		return "Snow"
	case code >= 80 && code <= 82:
		return "Showers"
	case code >= 85 && code <= 86:
		return "Snow Showers"
	case code >= 95 && code <= 99:
		return "Thunderstorm"
	}
	return "Unknown"
}

var descriptions = map[int]string{
	0:  "Clear Sky",
	1:  "Mainly Clear",
	2:  "Partly Cloudy",
	3:  "Overcast",
	45: "Fog",
	48: "Depositing Rime Fog",
	51: "Light Drizzle",
	53: "Moderate Drizzle",
	55: "Dense Drizzle",
	61: "Slight Rain",
	63: "Moderate Rain",
	65: "Heavy Rain",
	71: "Slight Snow",
	73: "Moderate Snow",
	75: "Heavy Snow",
	95: "Thunderstorm",
	96: "Thunderstorm With Hail",
}

// Description is the detailed name of a WMO code.
func Description(code int) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return "Unknown"
}

// OpenWeatherToWMO maps an OpenWeather condition id onto the WMO code used by the
// other panels. Unrecognised ids count as clear.
func OpenWeatherToWMO(id int) int {
	switch {
	case id == 800:
		return 0
	case id == 801:
		return 1
	case id == 802:
		return 2
	case id == 803 || id == 804:
		return 3
	case id >= 500 && id <= 531:
		return 61
	case id >= 600 && id <= 622:
		return 71
	case id >= 200 && id <= 232:
		return 95
	case id >= 701 && id <= 799:
		return 45
	}
	return 0
}
