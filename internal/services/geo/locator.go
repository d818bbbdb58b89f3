package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Nazarious-ucu/weather-widget/internal/models"
)

// ErrUnavailable is returned when no position could be obtained.
var ErrUnavailable = errors.New("geolocation unavailable")

// Fixed is a position that is already known, e.g. reported by the browser.
type Fixed models.Coordinates

func (f Fixed) Locate(context.Context) (models.Coordinates, error) {
	return models.Coordinates(f), nil
}

// Failed reports a position request that the client could not satisfy
// (permission denied, unsupported, timed out).
type Failed struct {
	Reason string
}

func (f Failed) Locate(context.Context) (models.Coordinates, error) {
	return models.Coordinates{}, fmt.Errorf("%w: %s", ErrUnavailable, f.Reason)
}

// ParseCoordinates validates a latitude/longitude pair given as text.
func ParseCoordinates(lat, lon string) (models.Coordinates, error) {
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("latitude %q: %w", lat, err)
	}
	lo, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("longitude %q: %w", lon, err)
	}
	if math.IsNaN(la) || la < -90 || la > 90 {
		return models.Coordinates{}, fmt.Errorf("latitude %v out of range", la)
	}
	if math.IsNaN(lo) || lo < -180 || lo > 180 {
		return models.Coordinates{}, fmt.Errorf("longitude %v out of range", lo)
	}
	return models.Coordinates{Latitude: la, Longitude: lo}, nil
}
