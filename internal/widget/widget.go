package widget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Nazarious-ucu/weather-widget/internal/models"
)

// ErrAlreadyMounted is returned by Mount after the first call.
var ErrAlreadyMounted = errors.New("widget already mounted")

// Fetch kinds, used as metric labels.
const (
	KindCity   = "city"
	KindCoords = "coords"
)

type fetcher interface {
	FetchByCity(ctx context.Context, city string) (models.WeatherSnapshot, error)
	FetchByCoords(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error)
}

// Locator reports the current position once.
type Locator interface {
	Locate(ctx context.Context) (models.Coordinates, error)
}

// Recorder observes what the widget does with its fetches.
type Recorder interface {
	FetchCompleted(kind string, err error)
	GeolocationFailed(err error)
	StaleDiscarded(kind string)
}

type nopRecorder struct{}

func (nopRecorder) FetchCompleted(string, error) {}
func (nopRecorder) GeolocationFailed(error)      {}
func (nopRecorder) StaleDiscarded(string)        {}

type Options struct {
	// DiscardStale drops any response whose fetch is not the latest one
	// issued. When false the last response to resolve wins.
	DiscardStale bool
	// WindKMHConversion converts the provider's m/s to the km/h shown in
	// the panel. When false the provider value is shown as is.
	WindKMHConversion bool
}

// Widget holds the state behind one rendered weather panel.
type Widget struct {
	fetcher fetcher
	logger  zerolog.Logger
	rec     Recorder
	opts    Options

	mu         sync.Mutex
	snapshot   *models.WeatherSnapshot
	loading    bool
	searchText string
	mounted    bool
	seq        uint64
	loadingSeq uint64
}

func New(f fetcher, logger zerolog.Logger, rec Recorder, opts Options) *Widget {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Widget{
		fetcher: f,
		logger:  logger,
		rec:     rec,
		opts:    opts,
	}
}

// Mounted reports whether Mount has been called.
func (w *Widget) Mounted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.mounted
}

// Mount runs the initial load: one position request, then a fetch by
// coordinates. Only the first call does anything; later ones return
// ErrAlreadyMounted. A locator failure is logged and reported but leaves
// the widget state untouched. The loading flag is never raised here.
func (w *Widget) Mount(ctx context.Context, locator Locator) error {
	w.mu.Lock()
	if w.mounted {
		w.mu.Unlock()
		return ErrAlreadyMounted
	}
	w.mounted = true
	w.mu.Unlock()

	pos, err := locator.Locate(ctx)
	if err != nil {
		w.logger.Warn().
			Ctx(ctx).
			Err(err).
			Msg("geolocation failed, widget stays empty")
		w.rec.GeolocationFailed(err)
		return fmt.Errorf("locate: %w", err)
	}

	w.mu.Lock()
	seq := w.nextSeqLocked()
	w.mu.Unlock()

	data, err := w.fetcher.FetchByCoords(ctx, pos.Latitude, pos.Longitude)
	w.complete(ctx, KindCoords, seq, false, data, err)
	if err != nil {
		return fmt.Errorf("fetch by coordinates: %w", err)
	}
	return nil
}

// SetSearchText records the text typed into the search input.
func (w *Widget) SetSearchText(text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.searchText = text
}

// Search looks up a city. Blank input is a no-op: no request is issued and
// no state changes. Any failure clears the snapshot.
func (w *Widget) Search(ctx context.Context, text string) error {
	city := strings.TrimSpace(text)
	if city == "" {
		return nil
	}

	w.mu.Lock()
	w.searchText = text
	seq := w.nextSeqLocked()
	w.loading = true
	w.loadingSeq = seq
	w.mu.Unlock()

	data, err := w.fetcher.FetchByCity(ctx, city)
	w.complete(ctx, KindCity, seq, true, data, err)
	if err != nil {
		w.logger.Info().
			Ctx(ctx).
			Str("city", city).
			Err(err).
			Msg("no results found for city")
		return fmt.Errorf("search %q: %w", city, err)
	}
	return nil
}

// View returns the current render model.
func (w *Widget) View() View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return newView(w.snapshot, w.loading, w.searchText, w.opts)
}

func (w *Widget) nextSeqLocked() uint64 {
	w.seq++
	return w.seq
}

func (w *Widget) complete(
	ctx context.Context,
	kind string,
	seq uint64,
	search bool,
	data models.WeatherSnapshot,
	err error,
) {
	w.rec.FetchCompleted(kind, err)

	w.mu.Lock()
	defer w.mu.Unlock()

	if search && (!w.opts.DiscardStale || seq == w.loadingSeq) {
		w.loading = false
	}

	if w.opts.DiscardStale && seq != w.seq {
		w.logger.Debug().
			Ctx(ctx).
			Str("kind", kind).
			Uint64("seq", seq).
			Uint64("latest", w.seq).
			Msg("discarding stale response")
		w.rec.StaleDiscarded(kind)
		return
	}

	if err != nil {
		w.snapshot = nil
		return
	}
	w.snapshot = &data
}
