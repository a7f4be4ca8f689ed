package monitoring

import (
	"callview/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector implements the selector cache observer and the
// view lifecycle observer over a shared prometheus registry.
type PrometheusCollector struct {
	// Counters
	selectorHits   *prometheus.CounterVec
	selectorMisses *prometheus.CounterVec
	feedMessages   *prometheus.CounterVec
	evictionsTotal prometheus.Counter

	// View lifecycle
	viewsCreated   *prometheus.CounterVec
	viewsFailed    *prometheus.CounterVec
	viewsDisposed  *prometheus.CounterVec
	viewsRescaled  *prometheus.CounterVec
	viewsCancelled *prometheus.CounterVec
	viewsActive    *prometheus.GaugeVec

	// Snapshot metrics
	notificationsPublished prometheus.Counter
	snapshotGeneration     prometheus.Gauge
	participantsVisible    *prometheus.GaugeVec
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		selectorHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "callview_selector_cache_hits_total",
			Help: "Total number of selector invocations served from the memo cell",
		}, []string{"selector"}),

		selectorMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "callview_selector_cache_misses_total",
			Help: "Total number of selector invocations that recomputed",
		}, []string{"selector"}),

		feedMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "callview_feed_messages_total",
			Help: "Total number of state feed messages applied",
		}, []string{"type"}),

		evictionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "callview_gallery_evictions_total",
			Help: "Total number of tiles evicted by dominant speaker reconciliation",
		}),

		viewsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "callview_views_created_total",
			Help: "Total number of stream views created",
		}, []string{"kind"}),

		viewsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "callview_view_create_failures_total",
			Help: "Total number of stream view creations that failed",
		}, []string{"kind"}),

		viewsDisposed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "callview_views_disposed_total",
			Help: "Total number of stream views disposed",
		}, []string{"kind"}),

		viewsRescaled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "callview_views_rescaled_total",
			Help: "Total number of in-place scaling mode updates",
		}, []string{"kind"}),

		viewsCancelled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "callview_view_creations_cancelled_total",
			Help: "Total number of view creations superseded before commit",
		}, []string{"kind"}),

		viewsActive: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "callview_views_active",
			Help: "Number of stream views currently held",
		}, []string{"kind"}),

		notificationsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "callview_state_notifications_total",
			Help: "Total number of snapshot change notifications delivered",
		}),

		snapshotGeneration: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "callview_snapshot_generation",
			Help: "Generation counter of the latest published snapshot",
		}),

		participantsVisible: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "callview_participants_visible",
			Help: "Number of participants in the visible set per call",
		}, []string{"call_id"}),
	}
}

// RecordSelectorHit implements selectors.CacheObserver.
func (p *PrometheusCollector) RecordSelectorHit(selector string) {
	p.selectorHits.WithLabelValues(selector).Inc()
}

// RecordSelectorMiss implements selectors.CacheObserver.
func (p *PrometheusCollector) RecordSelectorMiss(selector string) {
	p.selectorMisses.WithLabelValues(selector).Inc()
}

// RecordViewCreated implements lifecycle.Observer.
func (p *PrometheusCollector) RecordViewCreated(kind domain.StreamKind) {
	p.viewsCreated.WithLabelValues(string(kind)).Inc()
	p.viewsActive.WithLabelValues(string(kind)).Inc()
}

// RecordViewCreateFailed implements lifecycle.Observer.
func (p *PrometheusCollector) RecordViewCreateFailed(kind domain.StreamKind) {
	p.viewsFailed.WithLabelValues(string(kind)).Inc()
}

// RecordViewDisposed implements lifecycle.Observer.
func (p *PrometheusCollector) RecordViewDisposed(kind domain.StreamKind) {
	p.viewsDisposed.WithLabelValues(string(kind)).Inc()
	p.viewsActive.WithLabelValues(string(kind)).Dec()
}

// RecordViewRescaled implements lifecycle.Observer.
func (p *PrometheusCollector) RecordViewRescaled(kind domain.StreamKind) {
	p.viewsRescaled.WithLabelValues(string(kind)).Inc()
}

// RecordViewCancelled implements lifecycle.Observer.
func (p *PrometheusCollector) RecordViewCancelled(kind domain.StreamKind) {
	p.viewsCancelled.WithLabelValues(string(kind)).Inc()
}

func (p *PrometheusCollector) RecordFeedMessage(messageType string) {
	p.feedMessages.WithLabelValues(messageType).Inc()
}

func (p *PrometheusCollector) RecordGalleryEviction() {
	p.evictionsTotal.Inc()
}

func (p *PrometheusCollector) RecordNotification(generation uint64) {
	p.notificationsPublished.Inc()
	p.snapshotGeneration.Set(float64(generation))
}

func (p *PrometheusCollector) UpdateVisibleCount(callID domain.CallID, count int) {
	p.participantsVisible.WithLabelValues(string(callID)).Set(float64(count))
}

func (p *PrometheusCollector) CallEnded(callID domain.CallID) {
	p.participantsVisible.DeleteLabelValues(string(callID))
}
