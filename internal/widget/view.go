package widget

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Nazarious-ucu/weather-widget/internal/models"
)

type Mode string

const (
	ModeLoading  Mode = "loading"
	ModeResults  Mode = "results"
	ModeNotFound Mode = "not_found"
)

const msToKMH = 3.6

// View is an immutable render model of the widget.
type View struct {
	Mode         Mode         `json:"mode"`
	SearchText   string       `json:"search_text"`
	Message      string       `json:"message,omitempty"`
	Location     string       `json:"location,omitempty"`
	Country      string       `json:"country,omitempty"`
	Temperature  string       `json:"temperature,omitempty"`
	Condition    string       `json:"condition,omitempty"`
	Humidity     string       `json:"humidity,omitempty"`
	Wind         string       `json:"wind,omitempty"`
	Presentation Presentation `json:"presentation"`
}

// NotFoundMessage is shown when there is no snapshot to display.
func NotFoundMessage(searchText string) string {
	return "No results found for city: " + searchText
}

func newView(snap *models.WeatherSnapshot, loading bool, searchText string, opts Options) View {
	v := View{SearchText: searchText}

	switch {
	case loading:
		v.Mode = ModeLoading
	case snap == nil:
		v.Mode = ModeNotFound
		v.Message = NotFoundMessage(searchText)
	default:
		v.Mode = ModeResults
		v.Location = snap.LocationName
		v.Country = snap.CountryCode
		v.Temperature = formatNumber(snap.TemperatureCelsius) + " °C"
		v.Condition = snap.ConditionLabel
		v.Humidity = formatNumber(snap.HumidityPercent) + "%"
		v.Wind = formatWind(snap.WindSpeed, opts.WindKMHConversion)
		v.Presentation = Present(snap.ConditionLabel)
	}
	return v
}

func (v View) IsLoading() bool {
	return v.Mode == ModeLoading
}

func (v View) HasResults() bool {
	return v.Mode == ModeResults
}

// String renders the panel as plain text.
func (v View) String() string {
	switch v.Mode {
	case ModeLoading:
		return "Loading...\n"
	case ModeNotFound:
		return v.Message + "\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s, %s\n", v.Location, v.Country)
	fmt.Fprintf(&b, "%s  %s  %s (%s)\n", v.Presentation.Icon.Glyph(), v.Temperature, v.Condition, v.Presentation.Color)
	fmt.Fprintf(&b, "Humidity: %s\n", v.Humidity)
	fmt.Fprintf(&b, "Wind speed: %s\n", v.Wind)
	return b.String()
}

func formatWind(speed float64, convert bool) string {
	if convert {
		speed = math.Round(speed*msToKMH*10) / 10
	}
	return formatNumber(speed) + " km/h"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
