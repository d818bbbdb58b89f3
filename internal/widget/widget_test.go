package widget_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Nazarious-ucu/weather-widget/internal/models"
	"github.com/Nazarious-ucu/weather-widget/internal/widget"
)

var (
	paris = models.WeatherSnapshot{
		LocationName:       "Paris",
		CountryCode:        "FR",
		TemperatureCelsius: 18,
		HumidityPercent:    60,
		WindSpeed:          10,
		ConditionLabel:     "Clear",
	}
	london = models.WeatherSnapshot{
		LocationName:       "London",
		CountryCode:        "GB",
		TemperatureCelsius: 12.5,
		HumidityPercent:    81,
		WindSpeed:          4.1,
		ConditionLabel:     "Rain",
	}
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchByCity(ctx context.Context, city string) (models.WeatherSnapshot, error) {
	args := m.Called(ctx, city)
	data, ok := args.Get(0).(models.WeatherSnapshot)
	if !ok {
		return models.WeatherSnapshot{}, args.Error(1)
	}
	return data, args.Error(1)
}

func (m *mockFetcher) FetchByCoords(ctx context.Context, lat, lon float64) (models.WeatherSnapshot, error) {
	args := m.Called(ctx, lat, lon)
	data, ok := args.Get(0).(models.WeatherSnapshot)
	if !ok {
		return models.WeatherSnapshot{}, args.Error(1)
	}
	return data, args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) FetchCompleted(kind string, err error) {
	m.Called(kind, err)
}

func (m *mockRecorder) GeolocationFailed(err error) {
	m.Called(err)
}

func (m *mockRecorder) StaleDiscarded(kind string) {
	m.Called(kind)
}

type locatorFunc func(ctx context.Context) (models.Coordinates, error)

func (f locatorFunc) Locate(ctx context.Context) (models.Coordinates, error) {
	return f(ctx)
}

func newWidget(f *mockFetcher, opts widget.Options) *widget.Widget {
	return widget.New(f, zerolog.Nop(), nil, opts)
}

func TestWidget_InitialView(t *testing.T) {
	w := newWidget(&mockFetcher{}, widget.Options{})

	v := w.View()
	assert.Equal(t, widget.ModeNotFound, v.Mode)
	assert.Equal(t, "No results found for city: ", v.Message)
	assert.False(t, w.Mounted())
}

func TestWidget_Search_Success(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchByCity", mock.Anything, "Paris").Return(paris, nil).Once()
	t.Cleanup(func() {
		f.AssertExpectations(t)
	})

	w := newWidget(f, widget.Options{DiscardStale: true})

	require.NoError(t, w.Search(context.Background(), "Paris"))

	v := w.View()
	assert.Equal(t, widget.ModeResults, v.Mode)
	assert.Equal(t, "Paris", v.Location)
	assert.Equal(t, "FR", v.Country)
	assert.Equal(t, "18 °C", v.Temperature)
	assert.Equal(t, "Clear", v.Condition)
	assert.Equal(t, widget.Presentation{Icon: widget.IconSun, Color: "yellow"}, v.Presentation)
	assert.Equal(t, "60%", v.Humidity)
	assert.Equal(t, "10 km/h", v.Wind)
	assert.False(t, v.IsLoading())
	assert.True(t, v.HasResults())
}

func TestWidget_Search_TrimsCityButKeepsText(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchByCity", mock.Anything, "Paris").Return(paris, nil).Once()

	w := newWidget(f, widget.Options{})

	require.NoError(t, w.Search(context.Background(), "  Paris "))
	assert.Equal(t, "  Paris ", w.View().SearchText)
	f.AssertExpectations(t)
}

func TestWidget_Search_BlankInputIsNoop(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchByCity", mock.Anything, "Paris").Return(paris, nil).Once()

	w := newWidget(f, widget.Options{DiscardStale: true})
	require.NoError(t, w.Search(context.Background(), "Paris"))
	before := w.View()

	for _, text := range []string{"", " ", "\t\n", "   "} {
		assert.NoError(t, w.Search(context.Background(), text))
		assert.Equal(t, before, w.View())
	}

	f.AssertNumberOfCalls(t, "FetchByCity", 1)
}

func TestWidget_Search_FailureClearsSnapshot(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchByCity", mock.Anything, "Paris").Return(paris, nil).Once()
	f.On("FetchByCity", mock.Anything, "Zzzzz").
		Return(models.WeatherSnapshot{}, errors.New("network unreachable")).Once()

	w := newWidget(f, widget.Options{DiscardStale: true})
	require.NoError(t, w.Search(context.Background(), "Paris"))

	err := w.Search(context.Background(), "Zzzzz")
	require.Error(t, err)

	v := w.View()
	assert.False(t, v.IsLoading())
	assert.Equal(t, widget.ModeNotFound, v.Mode)
	assert.Equal(t, "No results found for city: Zzzzz", v.Message)
	assert.Contains(t, v.String(), "Zzzzz")
	f.AssertExpectations(t)
}

func TestWidget_Search_MessageFollowsSearchText(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchByCity", mock.Anything, mock.Anything).
		Return(models.WeatherSnapshot{}, errors.New("city not found"))

	w := newWidget(f, widget.Options{DiscardStale: true})

	for range 5 {
		city := gofakeit.City()
		_ = w.Search(context.Background(), city)

		v := w.View()
		assert.False(t, v.IsLoading())
		assert.Equal(t, city, v.SearchText)
		assert.Equal(t, widget.NotFoundMessage(city), v.Message)
	}
}

func TestWidget_Search_Idempotent(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchByCity", mock.Anything, "Paris").Return(paris, nil).Twice()

	w := newWidget(f, widget.Options{DiscardStale: true})

	require.NoError(t, w.Search(context.Background(), "Paris"))
	first := w.View()
	require.NoError(t, w.Search(context.Background(), "Paris"))

	assert.Equal(t, first, w.View())
	f.AssertExpectations(t)
}

func TestWidget_Search_RecordsOutcome(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchByCity", mock.Anything, "Paris").Return(paris, nil).Once()
	rec := &mockRecorder{}
	rec.On("FetchCompleted", widget.KindCity, nil).Once()

	w := widget.New(f, zerolog.Nop(), rec, widget.Options{DiscardStale: true})
	require.NoError(t, w.Search(context.Background(), "Paris"))

	rec.AssertExpectations(t)
}

func TestWidget_WindConversion(t *testing.T) {
	f := &mockFetcher{}
	f.On("FetchByCity", mock.Anything, "Paris").Return(paris, nil).Once()

	w := newWidget(f, widget.Options{WindKMHConversion: true})
	require.NoError(t, w.Search(context.Background(), "Paris"))

	assert.Equal(t, "36 km/h", w.View().Wind)
}

func TestWidget_Mount(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		f := &mockFetcher{}
		f.On("FetchByCoords", mock.Anything, 51.5072, -0.1276).Return(london, nil).Once()

		w := newWidget(f, widget.Options{DiscardStale: true})
		err := w.Mount(ctx, locatorFunc(func(context.Context) (models.Coordinates, error) {
			return models.Coordinates{Latitude: 51.5072, Longitude: -0.1276}, nil
		}))
		require.NoError(t, err)

		v := w.View()
		assert.True(t, w.Mounted())
		assert.Equal(t, widget.ModeResults, v.Mode)
		assert.Equal(t, "London", v.Location)
		assert.Equal(t, "12.5 °C", v.Temperature)
		assert.Equal(t, widget.Presentation{Icon: widget.IconRain, Color: "blue"}, v.Presentation)
		f.AssertExpectations(t)
	})

	t.Run("LocatorFails", func(t *testing.T) {
		f := &mockFetcher{}
		denied := errors.New("permission denied")
		rec := &mockRecorder{}
		rec.On("GeolocationFailed", denied).Once()

		w := widget.New(f, zerolog.Nop(), rec, widget.Options{DiscardStale: true})
		before := w.View()

		err := w.Mount(ctx, locatorFunc(func(context.Context) (models.Coordinates, error) {
			return models.Coordinates{}, denied
		}))
		require.ErrorIs(t, err, denied)

		assert.Equal(t, before, w.View())
		assert.True(t, w.Mounted())
		f.AssertNotCalled(t, "FetchByCoords", mock.Anything, mock.Anything, mock.Anything)
		rec.AssertExpectations(t)
	})

	t.Run("SecondCallRejected", func(t *testing.T) {
		f := &mockFetcher{}
		f.On("FetchByCoords", mock.Anything, 51.5072, -0.1276).Return(london, nil).Once()
		here := locatorFunc(func(context.Context) (models.Coordinates, error) {
			return models.Coordinates{Latitude: 51.5072, Longitude: -0.1276}, nil
		})

		w := newWidget(f, widget.Options{DiscardStale: true})
		require.NoError(t, w.Mount(ctx, here))
		require.ErrorIs(t, w.Mount(ctx, here), widget.ErrAlreadyMounted)

		f.AssertNumberOfCalls(t, "FetchByCoords", 1)
	})

	t.Run("ConcurrentCallsMountOnce", func(t *testing.T) {
		f := &mockFetcher{}
		f.On("FetchByCoords", mock.Anything, 51.5072, -0.1276).Return(london, nil)

		release := make(chan struct{})
		slow := locatorFunc(func(context.Context) (models.Coordinates, error) {
			<-release
			return models.Coordinates{Latitude: 51.5072, Longitude: -0.1276}, nil
		})

		w := newWidget(f, widget.Options{DiscardStale: true})

		const callers = 10
		errs := make(chan error, callers)
		var wg sync.WaitGroup
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- w.Mount(ctx, slow)
			}()
		}
		close(release)
		wg.Wait()
		close(errs)

		var mounted, rejected int
		for err := range errs {
			if errors.Is(err, widget.ErrAlreadyMounted) {
				rejected++
				continue
			}
			require.NoError(t, err)
			mounted++
		}
		assert.Equal(t, 1, mounted)
		assert.Equal(t, callers-1, rejected)
		f.AssertNumberOfCalls(t, "FetchByCoords", 1)
	})

	t.Run("FetchFailsAfterSearch", func(t *testing.T) {
		f := &mockFetcher{}
		f.On("FetchByCity", mock.Anything, "Paris").Return(paris, nil).Once()
		f.On("FetchByCoords", mock.Anything, 1.0, 2.0).
			Return(models.WeatherSnapshot{}, errors.New("503")).Once()

		w := newWidget(f, widget.Options{DiscardStale: true})
		require.NoError(t, w.Search(ctx, "Paris"))

		err := w.Mount(ctx, locatorFunc(func(context.Context) (models.Coordinates, error) {
			return models.Coordinates{Latitude: 1, Longitude: 2}, nil
		}))
		require.Error(t, err)

		// the message still names the last searched city
		v := w.View()
		assert.Equal(t, widget.ModeNotFound, v.Mode)
		assert.Equal(t, "No results found for city: Paris", v.Message)
	})
}

// gatedFetcher blocks FetchByCity for a city until its gate is closed.
type gatedFetcher struct {
	mu        sync.Mutex
	gates     map[string]chan struct{}
	responses map[string]models.WeatherSnapshot
	started   chan string
}

func newGatedFetcher() *gatedFetcher {
	return &gatedFetcher{
		gates: make(map[string]chan struct{}),
		responses: map[string]models.WeatherSnapshot{
			"Paris":  paris,
			"London": london,
		},
		started: make(chan string, 8),
	}
}

func (g *gatedFetcher) gate(city string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := make(chan struct{})
	g.gates[city] = ch
	return ch
}

func (g *gatedFetcher) FetchByCity(_ context.Context, city string) (models.WeatherSnapshot, error) {
	g.started <- city
	g.mu.Lock()
	ch, ok := g.gates[city]
	g.mu.Unlock()
	if ok {
		<-ch
	}
	return g.responses[city], nil
}

func (g *gatedFetcher) FetchByCoords(context.Context, float64, float64) (models.WeatherSnapshot, error) {
	return models.WeatherSnapshot{}, errors.New("not used")
}

func waitStarted(t *testing.T, g *gatedFetcher, city string) {
	t.Helper()
	select {
	case got := <-g.started:
		require.Equal(t, city, got)
	case <-time.After(2 * time.Second):
		t.Fatalf("fetch for %s never started", city)
	}
}

func TestWidget_OverlappingSearches(t *testing.T) {
	ctx := context.Background()

	t.Run("LastResolvedWins", func(t *testing.T) {
		g := newGatedFetcher()
		parisGate := g.gate("Paris")
		w := widget.New(g, zerolog.Nop(), nil, widget.Options{DiscardStale: false})

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = w.Search(ctx, "Paris")
		}()
		waitStarted(t, g, "Paris")

		require.NoError(t, w.Search(ctx, "London"))
		waitStarted(t, g, "London")
		assert.Equal(t, "London", w.View().Location)

		close(parisGate)
		<-done

		v := w.View()
		assert.Equal(t, widget.ModeResults, v.Mode)
		assert.Equal(t, "Paris", v.Location)
	})

	t.Run("StaleResponseDiscarded", func(t *testing.T) {
		g := newGatedFetcher()
		parisGate := g.gate("Paris")
		rec := &mockRecorder{}
		rec.On("FetchCompleted", widget.KindCity, nil).Twice()
		rec.On("StaleDiscarded", widget.KindCity).Once()
		w := widget.New(g, zerolog.Nop(), rec, widget.Options{DiscardStale: true})

		done := make(chan struct{})
		go func() {
			defer close(done)
			_ = w.Search(ctx, "Paris")
		}()
		waitStarted(t, g, "Paris")

		require.NoError(t, w.Search(ctx, "London"))
		waitStarted(t, g, "London")

		close(parisGate)
		<-done

		v := w.View()
		assert.Equal(t, widget.ModeResults, v.Mode)
		assert.Equal(t, "London", v.Location)
		rec.AssertExpectations(t)
	})

	t.Run("LoadingHeldUntilLatestResolves", func(t *testing.T) {
		g := newGatedFetcher()
		parisGate := g.gate("Paris")
		londonGate := g.gate("London")
		w := widget.New(g, zerolog.Nop(), nil, widget.Options{DiscardStale: true})

		parisDone := make(chan struct{})
		go func() {
			defer close(parisDone)
			_ = w.Search(ctx, "Paris")
		}()
		waitStarted(t, g, "Paris")

		londonDone := make(chan struct{})
		go func() {
			defer close(londonDone)
			_ = w.Search(ctx, "London")
		}()
		waitStarted(t, g, "London")

		close(parisGate)
		<-parisDone
		assert.True(t, w.View().IsLoading())

		close(londonGate)
		<-londonDone

		v := w.View()
		assert.False(t, v.IsLoading())
		assert.Equal(t, "London", v.Location)
	})
}
