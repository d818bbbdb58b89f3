package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-widget/internal/models"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type ipAPIResponse struct {
	Status  string  `json:"status"`
	Message string  `json:"message"`
	City    string  `json:"city"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// ClientIPAPI locates the caller by its public IP address through ip-api.com.
type ClientIPAPI struct {
	apiURL string
	client HTTPClient
	logger zerolog.Logger
}

func NewClientIPAPI(apiURL string, httpClient HTTPClient, logger zerolog.Logger) *ClientIPAPI {
	return &ClientIPAPI{
		apiURL: strings.TrimRight(apiURL, "/"),
		client: httpClient,
		logger: logger,
	}
}

func (c *ClientIPAPI) Locate(ctx context.Context) (models.Coordinates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"/json", nil)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("ip-api request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: ip-api request failed: %w", ErrUnavailable, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			c.logger.Error().
				Ctx(ctx).
				Err(cerr).
				Msg("failed to close response body")
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinates{}, fmt.Errorf("%w: ip-api bad status: %s", ErrUnavailable, resp.Status)
	}

	var payload ipAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Coordinates{}, fmt.Errorf("ip-api decode: %w", err)
	}

	if payload.Status != "success" {
		return models.Coordinates{}, fmt.Errorf("%w: %s", ErrUnavailable, payload.Message)
	}

	c.logger.Debug().
		Ctx(ctx).
		Str("city", payload.City).
		Float64("lat", payload.Lat).
		Float64("lon", payload.Lon).
		Msg("located by ip address")

	return models.Coordinates{Latitude: payload.Lat, Longitude: payload.Lon}, nil
}
