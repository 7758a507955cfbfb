package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ImagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filtro_images_processed_total",
		Help: "Images transformed and stored successfully.",
	})

	ImagesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "filtro_images_failed_total",
		Help: "Images that failed to decode, transform or store.",
	})

	TransformDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "filtro_transform_duration_seconds",
		Help:    "Wall time of a single image transform.",
		Buckets: prometheus.DefBuckets,
	})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
