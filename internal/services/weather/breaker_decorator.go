package weather

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/Nazarious-ucu/weather-widget/internal/models"
)

type BreakerConfig struct {
	TimeInterval time.Duration
	TimeTimeOut  time.Duration
	RepeatNumber uint32
}

type client interface {
	FetchByCity(ctx context.Context, city string) (models.WeatherSnapshot, error)
	FetchByCoords(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error)
}

// BreakerClient stops calling the provider after RepeatNumber consecutive
// failures. Client faults (unknown city, bad key) do not count as failures.
type BreakerClient struct {
	name    string
	cb      *gobreaker.CircuitBreaker
	wrapped client
}

func NewBreakerClient(name string, cfg BreakerConfig, wrapped client) *BreakerClient {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    cfg.TimeInterval,
		Timeout:     cfg.TimeTimeOut,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.RepeatNumber
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var statusErr *StatusError
			return errors.As(err, &statusErr) && statusErr.ClientFault()
		},
	}
	return &BreakerClient{
		name:    name,
		cb:      gobreaker.NewCircuitBreaker(settings),
		wrapped: wrapped,
	}
}

func (b *BreakerClient) FetchByCity(ctx context.Context, city string) (models.WeatherSnapshot, error) {
	return b.execute(func() (interface{}, error) {
		return b.wrapped.FetchByCity(ctx, city)
	})
}

func (b *BreakerClient) FetchByCoords(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	return b.execute(func() (interface{}, error) {
		return b.wrapped.FetchByCoords(ctx, lat, lon)
	})
}

// State reports the breaker state (closed, half-open, open).
func (b *BreakerClient) State() string {
	return b.cb.State().String()
}

func (b *BreakerClient) execute(req func() (interface{}, error)) (models.WeatherSnapshot, error) {
	result, err := b.cb.Execute(req)
	if err != nil {
		return models.WeatherSnapshot{},
			fmt.Errorf("%s unavailable: %w", b.name, err)
	}
	res, ok := result.(models.WeatherSnapshot)
	if !ok {
		return models.WeatherSnapshot{},
			fmt.Errorf("%s returned unexpected result", b.name)
	}
	return res, nil
}
