package http

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-widget/internal/models"
	"github.com/Nazarious-ucu/weather-widget/internal/services/geo"
	"github.com/Nazarious-ucu/weather-widget/internal/widget"
)

const (
	timeoutDuration = 10 * time.Second
	SessionCookie   = "weather_widget_session"
	sessionMaxAge   = 24 * 60 * 60
)

//go:embed templates/*.html
var templatesFS embed.FS

// Templates parses the embedded page templates.
func Templates() *template.Template {
	return template.Must(template.ParseFS(templatesFS, "templates/*.html"))
}

type weatherFetcher interface {
	FetchByCity(ctx context.Context, city string) (models.WeatherSnapshot, error)
	FetchByCoords(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error)
}

type sessionStore interface {
	Get(id string) (*widget.Widget, bool)
}

// WeatherResponse is the JSON body of the weather API.
type WeatherResponse struct {
	models.WeatherSnapshot
	widget.Presentation
}

type Handler struct {
	service  weatherFetcher
	sessions sessionStore
	logger   zerolog.Logger
}

func NewHandler(svc weatherFetcher, sessions sessionStore, logger zerolog.Logger) *Handler {
	return &Handler{service: svc, sessions: sessions, logger: logger}
}

// Register mounts the widget routes on r. r must have the templates from
// Templates loaded.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/", h.Page)
	r.POST("/search", h.Search)
	r.POST("/locate", h.Locate)
	r.GET("/health", h.Health)

	api := r.Group("/api/v1")
	api.GET("/weather", h.GetWeather)
	api.GET("/weather/coords", h.GetWeatherByCoords)
}

func (h *Handler) Page(c *gin.Context) {
	w, _ := h.session(c)
	c.HTML(http.StatusOK, "widget.html", gin.H{
		"View":   w.View(),
		"Locate": !w.Mounted(),
	})
}

// Search handles the form submit. A blank submit changes nothing, not even
// the text echoed back into the input.
func (h *Handler) Search(c *gin.Context) {
	w, _ := h.session(c)
	city := c.PostForm("city")
	if strings.TrimSpace(city) == "" {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	w.SetSearchText(city)
	if err := w.Search(ctxWithTimeout, city); err != nil {
		h.logger.Debug().Err(err).Msg("search ended without results")
	}

	c.Redirect(http.StatusSeeOther, "/")
}

// Locate receives the browser's one-shot position report and runs the
// initial load. Reports that arrive without a session cookie or for an
// already mounted widget are ignored.
func (h *Handler) Locate(c *gin.Context) {
	w, created := h.session(c)
	if created {
		h.logger.Debug().Msg("position report without a session, ignoring")
		c.Status(http.StatusNoContent)
		return
	}

	var locator widget.Locator
	if reason := c.PostForm("error"); reason != "" {
		locator = geo.Failed{Reason: reason}
	} else {
		pos, err := geo.ParseCoordinates(c.PostForm("lat"), c.PostForm("lon"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		locator = geo.Fixed(pos)
	}

	ctxWithTimeout, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	err := w.Mount(ctxWithTimeout, locator)
	switch {
	case errors.Is(err, widget.ErrAlreadyMounted):
		h.logger.Debug().Msg("widget already mounted, ignoring position report")
	case err != nil:
		h.logger.Debug().Err(err).Msg("initial load ended without results")
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) GetWeather(c *gin.Context) {
	city := strings.TrimSpace(c.Query("city"))
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city query parameter is required"})
		return
	}
	ctxWithTimeout, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	data, err := h.service.FetchByCity(ctxWithTimeout, city)
	if err != nil {
		h.logger.Info().Err(err).Str("city", city).Msg("weather lookup failed")
		c.JSON(http.StatusNotFound, gin.H{"error": widget.NotFoundMessage(city)})
		return
	}

	c.JSON(http.StatusOK, WeatherResponse{data, widget.Present(data.ConditionLabel)})
}

func (h *Handler) GetWeatherByCoords(c *gin.Context) {
	pos, err := geo.ParseCoordinates(c.Query("lat"), c.Query("lon"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctxWithTimeout, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
	defer cancel()

	data, err := h.service.FetchByCoords(ctxWithTimeout, pos.Latitude, pos.Longitude)
	if err != nil {
		h.logger.Info().Err(err).
			Float64("lat", pos.Latitude).
			Float64("lon", pos.Longitude).
			Msg("weather lookup failed")
		c.JSON(http.StatusNotFound, gin.H{"error": widget.NotFoundMessage("")})
		return
	}

	c.JSON(http.StatusOK, WeatherResponse{data, widget.Present(data.ConditionLabel)})
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// session resolves the caller's widget, issuing a new cookie when the
// request carries none or an unknown one. created is true in that case.
func (h *Handler) session(c *gin.Context) (*widget.Widget, bool) {
	id, err := c.Cookie(SessionCookie)
	if err != nil || uuid.Validate(id) != nil {
		id = uuid.NewString()
	}

	w, created := h.sessions.Get(id)
	if created {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SessionCookie, id, sessionMaxAge, "/", "", false, true)
		h.logger.Debug().Str("session", id).Msg("new widget session")
	}
	return w, created
}
