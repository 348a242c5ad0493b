package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements Collector backed by Prometheus.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	emissions    *prometheus.CounterVec
	emitErrors   *prometheus.CounterVec
	ticks        prometheus.Counter
	ticksSkipped *prometheus.CounterVec
	feedMessages *prometheus.CounterVec
	masterDeck   prometheus.Gauge
	playing      prometheus.Gauge
}

var _ Collector = (*PrometheusCollector)(nil)

// NewPrometheus creates a Prometheus-backed collector.
//
// reg defaults to prometheus.DefaultRegisterer and namespace to "deckbridge".
// Metrics are registered lazily on first use.
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "deckbridge"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.emissions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "emissions_total",
			Help:      "Events sent to the consumer by kind (track, clear, play_state).",
		}, []string{"kind"})

		p.emitErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      "emit_errors_total",
			Help:      "Failed sends to the consumer by kind.",
		}, []string{"kind"})

		p.ticks = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "poller",
			Name:      "ticks_total",
			Help:      "Poll ticks executed.",
		})

		p.ticksSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "poller",
			Name:      "ticks_skipped_total",
			Help:      "Poll ticks that produced no track evaluation, by reason.",
		}, []string{"reason"})

		p.feedMessages = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "feed",
			Name:      "messages_total",
			Help:      "Inbound feed messages by kind (deck, heartbeat, unknown, malformed).",
		}, []string{"kind"})

		p.masterDeck = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      "master_deck",
			Help:      "Current master deck index.",
		})

		p.playing = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      "playing",
			Help:      "Derived play state (1=playing, 0=paused).",
		})

		p.reg.MustRegister(p.emissions)
		p.reg.MustRegister(p.emitErrors)
		p.reg.MustRegister(p.ticks)
		p.reg.MustRegister(p.ticksSkipped)
		p.reg.MustRegister(p.feedMessages)
		p.reg.MustRegister(p.masterDeck)
		p.reg.MustRegister(p.playing)
	})
}

func (p *PrometheusCollector) IncrementEmission(kind string) {
	p.ensureRegistered()
	p.emissions.WithLabelValues(kind).Inc()
}

func (p *PrometheusCollector) IncrementEmitError(kind string) {
	p.ensureRegistered()
	p.emitErrors.WithLabelValues(kind).Inc()
}

func (p *PrometheusCollector) IncrementTick() {
	p.ensureRegistered()
	p.ticks.Inc()
}

func (p *PrometheusCollector) IncrementTickSkipped(reason string) {
	p.ensureRegistered()
	p.ticksSkipped.WithLabelValues(reason).Inc()
}

func (p *PrometheusCollector) IncrementFeedMessage(kind string) {
	p.ensureRegistered()
	p.feedMessages.WithLabelValues(kind).Inc()
}

func (p *PrometheusCollector) SetMasterDeck(deck int) {
	p.ensureRegistered()
	p.masterDeck.Set(float64(deck))
}

// SetPlaying sets the play state gauge (1 playing, 0 paused).
func (p *PrometheusCollector) SetPlaying(playing bool) {
	p.ensureRegistered()
	if playing {
		p.playing.Set(1)
	} else {
		p.playing.Set(0)
	}
}
