package config

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

var ErrMissingAPIKey = errors.New("OPEN_WEATHER_MAP_API_KEY must not be blank")

type Server struct {
	Host            string `envconfig:"WIDGET_SERVER_HOST" default:"localhost"`
	Port            int    `envconfig:"WIDGET_SERVER_PORT" default:"8080"`
	ReadTimeout     int    `envconfig:"WIDGET_SERVER_TIMEOUT" default:"10"`
	ShutdownTimeout int    `envconfig:"WIDGET_SHUTDOWN_TIMEOUT" default:"5"`
}

type OpenWeatherMap struct {
	APIKey  string `envconfig:"OPEN_WEATHER_MAP_API_KEY" required:"true"`
	URL     string `envconfig:"OPEN_WEATHER_MAP_URL" default:"https://api.openweathermap.org/data/2.5"`
	Timeout int    `envconfig:"OPEN_WEATHER_MAP_TIMEOUT" default:"10"`
}

type Breaker struct {
	TimeInterval int    `envconfig:"BREAKER_INTERVAL" default:"30"`
	TimeTimeOut  int    `envconfig:"BREAKER_TIMEOUT" default:"10"`
	RepeatNumber uint32 `envconfig:"BREAKER_REPEAT_NUM" default:"5"`
}

type Geo struct {
	IPAPIURL string `envconfig:"GEO_IP_API_URL" default:"http://ip-api.com"`
}

// Widget toggles the behaviours that differ between deployments.
type Widget struct {
	DiscardStale      bool          `envconfig:"WIDGET_DISCARD_STALE" default:"true"`
	WindKMHConversion bool          `envconfig:"WIDGET_WIND_KMH_CONVERSION" default:"false"`
	SessionTTL        time.Duration `envconfig:"WIDGET_SESSION_TTL" default:"30m"`
}

type Config struct {
	Server         Server
	OpenWeatherMap OpenWeatherMap
	Breaker        Breaker
	Geo            Geo
	Widget         Widget

	LogsPath     string `envconfig:"LOGS_PATH" default:"./log/weather-widget.log"`
	HTTPLogsPath string `envconfig:"HTTP_LOGS_PATH" default:"./log/openweather-http.log"`
	LogLevel     string `envconfig:"LOG_LEVEL" default:"info"`
}

func NewConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.OpenWeatherMap.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	return &cfg, nil
}

func (c *Config) ServerAddress() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}
