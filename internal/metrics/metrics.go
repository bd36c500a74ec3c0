package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Customer state label values of the Customers gauge.
const (
	StateLocated      = "located"
	StatePending      = "pending"
	StateUnresolvable = "unresolvable"
)

type Metrics struct {
	CustomersProcessed *prometheus.CounterVec
	APIErrors          prometheus.Counter
	RequestSeconds     *prometheus.HistogramVec
	Customers          *prometheus.GaugeVec
	WidgetVisible      prometheus.Gauge
	WorkerRunning      prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		CustomersProcessed: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "mapa_geocoding_customers_processed_total",
			Help: "Total number of geocoding cycles by outcome.",
		}, []string{"outcome"}),
		APIErrors: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "mapa_geocoding_provider_api_errors_total",
			Help: "Total number of errors received from the geocoding provider API.",
		}),
		RequestSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mapa_geocoding_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		Customers: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "mapa_customers",
			Help: "Customers in the last render pass by geocoding state.",
		}, []string{"state"}),
		WidgetVisible: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "mapa_widget_visible",
			Help: "1 while the map widget is open.",
		}),
		WorkerRunning: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "mapa_geocoding_worker_running",
			Help: "1 while the geocoding queue worker is scheduled.",
		}),
	}
}
