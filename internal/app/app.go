package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.uber.org/zap"

	"github.com/Nazarious-ucu/weather-widget/internal/config"
	handlers "github.com/Nazarious-ucu/weather-widget/internal/handlers/http"
	"github.com/Nazarious-ucu/weather-widget/internal/services/geo"
	loggerT "github.com/Nazarious-ucu/weather-widget/internal/services/logger"
	metricsSvc "github.com/Nazarious-ucu/weather-widget/internal/services/metrics"
	serviceWeather "github.com/Nazarious-ucu/weather-widget/internal/services/weather"
	"github.com/Nazarious-ucu/weather-widget/internal/widget"
	fLogger "github.com/Nazarious-ucu/weather-widget/pkg/logger"
)

// ServiceContainer holds initialized dependencies for the server and the CLI.
type ServiceContainer struct {
	Weather    *serviceWeather.BreakerClient
	HTTPClient *http.Client
	Sessions   *widget.Sessions

	Router     *gin.Engine
	Srv        *http.Server
	fileLogger *zap.Logger
}

// App ties together config, logger, and metrics for startup/shutdown.
type App struct {
	cfg config.Config
	l   zerolog.Logger
	m   *metricsSvc.Metrics
}

// New prepares a new App with given config, zerolog logger, and metrics.
func New(cfg config.Config, logger zerolog.Logger, met *metricsSvc.Metrics) *App {
	return &App{
		cfg: cfg,
		l:   logger,
		m:   met,
	}
}

// Start builds the services, serves HTTP and blocks until ctx is cancelled
// or the listener fails.
func (a *App) Start(ctx context.Context) error {
	srvContainer := a.Init()

	errCh := make(chan error, 1)
	go func() {
		a.l.Info().
			Str("address", srvContainer.Srv.Addr).
			Msg("weather widget server running")
		if err := srvContainer.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		a.l.Info().Msg("shutdown signal received, stopping weather widget")
	case err := <-errCh:
		if err != nil {
			a.l.Error().Err(err).Msg("http server failed")
			_ = a.Shutdown(srvContainer)
			return err
		}
	}

	if err := a.Shutdown(srvContainer); err != nil {
		a.l.Error().Err(err).Msg("failed to shutdown application")
		return err
	}
	a.l.Info().Msg("application shutdown successfully")
	return nil
}

// Shutdown drains the HTTP server and syncs the outbound call log.
func (a *App) Shutdown(srvContainer ServiceContainer) error {
	a.l.Info().
		Str("breaker_state", srvContainer.Weather.State()).
		Msg("stopping weather widget…")

	defer func(logger *zap.Logger) {
		if err := logger.Sync(); err != nil {
			a.l.Error().Err(err).Msg("failed to sync file logger")
		} else {
			a.l.Info().Msg("file logger synced successfully")
		}
	}(srvContainer.fileLogger)

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(a.cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srvContainer.Srv.Shutdown(ctx); err != nil {
		return err
	}
	a.l.Info().Msg("shutdown complete")
	return nil
}

// Init sets up logging, the provider client, sessions and the HTTP router
// without starting anything.
func (a *App) Init() ServiceContainer {
	a.l.Info().
		Str("address", a.cfg.ServerAddress()).
		Str("provider_url", a.cfg.OpenWeatherMap.URL).
		Bool("discard_stale", a.cfg.Widget.DiscardStale).
		Bool("wind_kmh_conversion", a.cfg.Widget.WindKMHConversion).
		Msg("initializing weather widget")

	fileLogger, err := fLogger.NewFileLogger(a.cfg.HTTPLogsPath)
	if err != nil {
		a.l.Error().Err(err).Msg("failed to create file logger, outbound calls will not be logged")
		fileLogger = zap.NewNop()
	}

	// HTTP client logging
	httpLogClient := &http.Client{
		Transport: loggerT.NewRoundTripper(fileLogger, nil),
		Timeout:   time.Duration(a.cfg.OpenWeatherMap.Timeout) * time.Second,
	}

	weatherClient := a.NewWeatherClient(httpLogClient)

	sessions := widget.NewSessions(a.cfg.Widget.SessionTTL, func() *widget.Widget {
		return a.NewWidget(weatherClient)
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(a.m.HTTPMiddleware())
	router.SetHTMLTemplate(handlers.Templates())
	router.GET("/metrics", gin.WrapH(a.m.Handler()))
	handlers.NewHandler(weatherClient, sessions, a.l).Register(router)

	httpServer := &http.Server{
		Addr:        a.cfg.ServerAddress(),
		Handler:     router,
		ReadTimeout: time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
	}

	return ServiceContainer{
		Weather:    weatherClient,
		HTTPClient: httpLogClient,
		Sessions:   sessions,
		Router:     router,
		Srv:        httpServer,
		fileLogger: fileLogger,
	}
}

// NewWeatherClient returns the OpenWeatherMap client behind a circuit breaker.
func (a *App) NewWeatherClient(httpClient serviceWeather.HTTPClient) *serviceWeather.BreakerClient {
	breakerCfg := serviceWeather.BreakerConfig{
		TimeInterval: time.Duration(a.cfg.Breaker.TimeInterval) * time.Second,
		TimeTimeOut:  time.Duration(a.cfg.Breaker.TimeTimeOut) * time.Second,
		RepeatNumber: a.cfg.Breaker.RepeatNumber,
	}
	return serviceWeather.NewBreakerClient("OpenWeather", breakerCfg,
		serviceWeather.NewClientOpenWeatherMap(
			a.cfg.OpenWeatherMap.APIKey,
			a.cfg.OpenWeatherMap.URL,
			httpClient,
			a.l,
		),
	)
}

// NewWidget returns a widget configured from the widget settings.
func (a *App) NewWidget(weatherClient *serviceWeather.BreakerClient) *widget.Widget {
	return widget.New(weatherClient, a.l, a.m, widget.Options{
		DiscardStale:      a.cfg.Widget.DiscardStale,
		WindKMHConversion: a.cfg.Widget.WindKMHConversion,
	})
}

// NewIPLocator returns the IP based locator used when no coordinates are given.
func (a *App) NewIPLocator(httpClient geo.HTTPClient) *geo.ClientIPAPI {
	return geo.NewClientIPAPI(a.cfg.Geo.IPAPIURL, httpClient, a.l)
}
