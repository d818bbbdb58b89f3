package models

// WeatherSnapshot is the most recent successful provider response shown by the widget.
type WeatherSnapshot struct {
	LocationName       string  `json:"name"`
	CountryCode        string  `json:"country"`
	TemperatureCelsius float64 `json:"temperature"`
	HumidityPercent    float64 `json:"humidity"`
	WindSpeed          float64 `json:"wind_speed"`
	ConditionLabel     string  `json:"condition"`
}

// Coordinates is a one-shot position reported by a location source.
type Coordinates struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}
