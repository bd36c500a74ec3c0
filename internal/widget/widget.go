// Package widget holds the state of the customer map overlay: visibility,
// the map instance, the status panel and the geocoding queue worker.
package widget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/UnknownOlympus/mapa/internal/metrics"
	"github.com/UnknownOlympus/mapa/internal/models"
	"github.com/UnknownOlympus/mapa/internal/repository"
	"github.com/UnknownOlympus/mapa/internal/scheduler"
	"github.com/UnknownOlympus/mapa/internal/service"
)

// Status panel texts.
const (
	TextLocating    = "Geolocalizando..."
	TextUpToDate    = "Mapa actualizado"
	searchingPrefix = "Buscando: "
	searchingLength = 15
)

// ErrNotConfirmed is returned by Repair when the user did not confirm the reset.
var ErrNotConfirmed = errors.New("repair requires confirmation")

// DefaultView centers the map on Spain.
func DefaultView() models.MapView {
	const zoom = 6
	return models.MapView{
		Latitude:  40.4168,
		Longitude: -3.7038,
		Zoom:      zoom,
		TileURL:   "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
	}
}

// Options configures a Widget.
type Options struct {
	View         models.MapView
	RecentWindow time.Duration
	Now          func() time.Time
}

// Widget is the single owner of the overlay state. The zero value is not usable.
type Widget struct {
	log     *slog.Logger
	repo    repository.Interface
	geo     *service.GeocodingService
	metrics *metrics.Metrics
	worker  *scheduler.Scheduler

	view   models.MapView
	window time.Duration
	now    func() time.Time

	mu         sync.RWMutex
	visible    bool
	mapReady   bool
	generation int
	statusText string
	searching  bool
	last       service.RenderResult
	renderedAt time.Time

	// readSeq numbers every Refresh before it reads storage; appliedSeq is
	// the number of the render currently shown.
	readSeq    uint64
	appliedSeq uint64
}

// New creates a hidden widget. The queue worker runs only while it is visible.
func New(
	log *slog.Logger,
	repo repository.Interface,
	geo *service.GeocodingService,
	appMetrics *metrics.Metrics,
	opts Options,
) *Widget {
	if opts.View == (models.MapView{}) {
		opts.View = DefaultView()
	}
	if opts.RecentWindow <= 0 {
		opts.RecentWindow = service.DefaultRecentWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	w := &Widget{
		log:        log,
		repo:       repo,
		geo:        geo,
		metrics:    appMetrics,
		view:       opts.View,
		window:     opts.RecentWindow,
		now:        opts.Now,
		statusText: TextLocating,
		last:       service.RenderResult{Markers: []models.Marker{}},
	}
	w.worker = scheduler.New("geocoding-queue", w.cycle, log, scheduler.WithStateHook(func(running bool) {
		if running {
			appMetrics.WorkerRunning.Set(1)
		} else {
			appMetrics.WorkerRunning.Set(0)
		}
	}))

	return w
}

// Open shows the widget. The map is initialized on the first call only;
// later calls only invalidate its size. The data is rendered right away.
func (w *Widget) Open(ctx context.Context) (models.Snapshot, error) {
	w.mu.Lock()
	w.visible = true
	if !w.mapReady {
		w.mapReady = true
		w.log.InfoContext(ctx, "Map initialized", "lat", w.view.Latitude, "lon", w.view.Longitude, "zoom", w.view.Zoom)
	}
	w.generation++
	w.mu.Unlock()

	w.metrics.WidgetVisible.Set(1)

	return w.Refresh(ctx)
}

// Close hides the widget and stops the queue worker, cancelling its pending timer.
func (w *Widget) Close(ctx context.Context) {
	w.mu.Lock()
	w.visible = false
	w.searching = false
	w.mu.Unlock()

	w.metrics.WidgetVisible.Set(0)
	w.worker.Stop()

	w.log.DebugContext(ctx, "Widget closed")
}

// Visible reports whether the widget is shown.
func (w *Widget) Visible() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.visible
}

// WorkerRunning reports whether the geocoding queue is scheduled.
func (w *Widget) WorkerRunning() bool {
	return w.worker.Running()
}

// Refresh renders the stored data and starts the queue worker when customers
// are pending and the widget is visible. A render whose read started before
// the one already shown is dropped.
func (w *Widget) Refresh(ctx context.Context) (models.Snapshot, error) {
	w.mu.Lock()
	w.readSeq++
	seq := w.readSeq
	w.mu.Unlock()

	customers, err := w.repo.ListCustomers(ctx)
	if err != nil {
		return w.Snapshot(), fmt.Errorf("failed to load customers: %w", err)
	}
	orders, err := w.repo.ListOrders(ctx)
	if err != nil {
		return w.Snapshot(), fmt.Errorf("failed to load orders: %w", err)
	}

	result := service.Render(customers, orders, w.now(), w.window)

	w.mu.Lock()
	if seq < w.appliedSeq {
		w.mu.Unlock()
		w.log.DebugContext(ctx, "Dropping outdated render", "render", seq)
		return w.Snapshot(), nil
	}
	w.appliedSeq = seq
	w.last = result
	w.renderedAt = w.now()
	if result.Status.Pending == 0 {
		w.statusText = TextUpToDate
		w.searching = false
	} else if w.statusText == TextUpToDate {
		w.statusText = TextLocating
	}
	visible := w.visible
	w.mu.Unlock()

	w.metrics.Customers.WithLabelValues(metrics.StateLocated).Set(float64(result.Status.Located))
	w.metrics.Customers.WithLabelValues(metrics.StatePending).Set(float64(result.Status.Pending))
	w.metrics.Customers.WithLabelValues(metrics.StateUnresolvable).Set(float64(result.Status.Unresolvable))

	if visible && result.Status.Pending > 0 {
		if w.worker.Start(ctx) {
			w.log.InfoContext(ctx, "Geocoding queue started", "pending", result.Status.Pending)
		}
	}

	return w.Snapshot(), nil
}

// Snapshot returns the last rendered state without touching storage.
func (w *Widget) Snapshot() models.Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	status := w.last.Status
	status.Text = w.statusText
	status.Searching = w.searching

	markers := make([]models.Marker, len(w.last.Markers))
	copy(markers, w.last.Markers)

	snapshot := models.Snapshot{
		Visible:    w.visible,
		MapReady:   w.mapReady,
		Generation: w.generation,
		View:       w.view,
		Markers:    markers,
		Status:     status,
	}
	if !w.renderedAt.IsZero() {
		snapshot.RenderedAt = w.renderedAt.Format(time.RFC3339)
	}
	return snapshot
}

// Repair resets the coordinates of every customer so that all of them are
// geocoded again. It refuses to run without confirmation.
func (w *Widget) Repair(ctx context.Context, confirmed bool) (int, error) {
	if !confirmed {
		return 0, ErrNotConfirmed
	}

	w.worker.Stop()

	touched, err := w.repo.ResetCoordinates(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to reset coordinates: %w", err)
	}

	w.mu.Lock()
	w.statusText = TextLocating
	w.searching = false
	w.mu.Unlock()

	w.log.InfoContext(ctx, "Coordinates reset, customers will be geocoded again", "customers", touched)

	if _, err = w.Refresh(ctx); err != nil {
		return touched, err
	}
	return touched, nil
}

// Store replaces a collection on behalf of the host application and renders again.
func (w *Widget) Store(ctx context.Context, key string, raw []byte) (models.Snapshot, error) {
	if err := w.repo.Put(ctx, key, raw); err != nil {
		return w.Snapshot(), err
	}
	return w.Refresh(ctx)
}

// cycle is one run of the geocoding queue: exactly one customer per call.
func (w *Widget) cycle(ctx context.Context) (time.Duration, bool) {
	if !w.Visible() {
		return 0, false
	}

	delays := w.geo.Delays()

	customer, ok, err := w.geo.Next(ctx)
	if err != nil {
		w.log.ErrorContext(ctx, "Failed to read the geocoding queue", "error", err)
		return delays.Failure, true
	}
	if !ok {
		// The collection may have been replaced since the last render.
		if _, err = w.Refresh(ctx); err != nil {
			w.log.ErrorContext(ctx, "Failed to render finished queue", "error", err)
			w.setStatus(TextUpToDate, false)
		}
		return 0, false
	}

	w.setStatus(searchingText(customer), true)

	result := w.geo.Geocode(ctx, customer)
	if result.Updated() {
		if _, err = w.Refresh(ctx); err != nil {
			w.log.ErrorContext(ctx, "Failed to render after geocoding", "customer", customer.ID, "error", err)
		}
	}

	return result.Next, true
}

func (w *Widget) setStatus(text string, searching bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.statusText = text
	w.searching = searching
}

func searchingText(customer models.Customer) string {
	label := strings.TrimSpace(customer.Name)
	if label == "" {
		label = strings.TrimSpace(customer.Address)
	}
	runes := []rune(label)
	if len(runes) > searchingLength {
		runes = runes[:searchingLength]
	}
	return searchingPrefix + string(runes) + "..."
}
