package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-widget/internal/models"
)

const metricUnits = "metric"

type apiResponse struct {
	Name string `json:"name"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Sys struct {
		Country string `json:"country"`
	} `json:"sys"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// ClientOpenWeatherMap fetches current weather from the OpenWeatherMap API.
type ClientOpenWeatherMap struct {
	APIKey string
	apiURL string
	client HTTPClient
	logger zerolog.Logger
}

// NewClientOpenWeatherMap constructs a new OpenWeatherMap client. apiURL is the
// API base, e.g. https://api.openweathermap.org/data/2.5.
func NewClientOpenWeatherMap(apiKey, apiURL string,
	httpClient HTTPClient, logger zerolog.Logger,
) *ClientOpenWeatherMap {
	return &ClientOpenWeatherMap{
		APIKey: apiKey,
		apiURL: strings.TrimRight(apiURL, "/"),
		client: httpClient,
		logger: logger,
	}
}

// FetchByCity retrieves current weather for a city name.
func (s *ClientOpenWeatherMap) FetchByCity(ctx context.Context, city string) (models.WeatherSnapshot, error) {
	query := url.Values{}
	query.Set("q", city)

	return s.fetch(ctx, query, s.logger.With().Str("city", city).Logger())
}

// FetchByCoords retrieves current weather for a latitude/longitude pair.
func (s *ClientOpenWeatherMap) FetchByCoords(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	return s.fetch(ctx, query, s.logger.With().Float64("lat", lat).Float64("lon", lon).Logger())
}

func (s *ClientOpenWeatherMap) fetch(
	ctx context.Context,
	query url.Values,
	l zerolog.Logger,
) (models.WeatherSnapshot, error) {
	start := time.Now()

	query.Set("appid", s.APIKey)
	query.Set("units", metricUnits)
	endpoint := s.apiURL + "/weather?" + query.Encode()

	l.Debug().
		Ctx(ctx).
		Msg("starting OpenWeatherMap request")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		l.Error().
			Ctx(ctx).
			Err(err).
			Msg("failed to create HTTP request")
		return models.WeatherSnapshot{}, fmt.Errorf("openweather request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		l.Error().
			Ctx(ctx).
			Err(err).
			Msg("error sending HTTP request to OpenWeatherMap")
		return models.WeatherSnapshot{}, fmt.Errorf("openweather request failed: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			l.Error().
				Ctx(ctx).
				Err(cerr).
				Msg("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		l.Warn().
			Ctx(ctx).
			Str("status", resp.Status).
			Msg("OpenWeatherMap API returned non-200 status")
		return models.WeatherSnapshot{}, &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	var raw apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		l.Error().
			Ctx(ctx).
			Err(err).
			Msg("failed to decode OpenWeatherMap response")
		return models.WeatherSnapshot{}, fmt.Errorf("openweather decode: %w", err)
	}

	data := models.WeatherSnapshot{
		LocationName:       raw.Name,
		CountryCode:        raw.Sys.Country,
		TemperatureCelsius: raw.Main.Temp,
		HumidityPercent:    raw.Main.Humidity,
		WindSpeed:          raw.Wind.Speed,
	}
	if len(raw.Weather) > 0 {
		data.ConditionLabel = raw.Weather[0].Main
	}

	l.Info().
		Ctx(ctx).
		Str("location", data.LocationName).
		Dur("duration_ms", time.Since(start)).
		Msg("successfully fetched weather data")

	return data, nil
}
