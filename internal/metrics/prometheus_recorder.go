package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

const namespace = "nscale"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once                sync.Once
	reg                 *prom.Registry
	pipelineDuration    *prom.HistogramVec
	pipelineResults     *prom.CounterVec
	stateTransitions    *prom.CounterVec
	gitDuration         *prom.HistogramVec
	descriptorWrites    *prom.CounterVec
	pipelineConcurrency prom.Gauge
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.once.Do(func() {
		pr.pipelineDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of per-container synchronization pipelines",
			Buckets:   prom.DefBuckets,
		}, []string{"result"})
		pr.pipelineResults = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_results_total",
			Help:      "Pipeline results by outcome",
		}, []string{"result"})
		pr.stateTransitions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "state_transitions_total",
			Help:      "Workspace entry state machine transitions",
		}, []string{"from", "to"})
		pr.gitDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "git_operation_duration_seconds",
			Help:      "Duration of individual git invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"operation", "result"})
		pr.descriptorWrites = prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "descriptor_writes_total",
			Help:      "Descriptor commit updates by result",
		}, []string{"result"})
		pr.pipelineConcurrency = prom.NewGauge(prom.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_concurrency",
			Help:      "Number of pipelines started by the last run",
		})
		reg.MustRegister(pr.pipelineDuration, pr.pipelineResults, pr.stateTransitions,
			pr.gitDuration, pr.descriptorWrites, pr.pipelineConcurrency)
	})
	return pr
}

// Registry returns the registry the recorder's collectors are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

func (p *PrometheusRecorder) ObservePipelineDuration(result ResultLabel, d time.Duration) {
	if p == nil || p.pipelineDuration == nil {
		return
	}
	p.pipelineDuration.WithLabelValues(string(result)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPipelineResult(result ResultLabel) {
	if p == nil || p.pipelineResults == nil {
		return
	}
	p.pipelineResults.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) IncStateTransition(from, to string) {
	if p == nil || p.stateTransitions == nil {
		return
	}
	p.stateTransitions.WithLabelValues(from, to).Inc()
}

func (p *PrometheusRecorder) ObserveGitOperation(op string, d time.Duration, success bool) {
	if p == nil || p.gitDuration == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.gitDuration.WithLabelValues(op, res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncDescriptorWrite(result string) {
	if p == nil || p.descriptorWrites == nil {
		return
	}
	p.descriptorWrites.WithLabelValues(result).Inc()
}

func (p *PrometheusRecorder) SetPipelineConcurrency(n int) {
	if p == nil || p.pipelineConcurrency == nil {
		return
	}
	p.pipelineConcurrency.Set(float64(n))
}

// WriteTextfile writes every registered metric in the text exposition format
// for node_exporter's textfile collector. The file is replaced atomically.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.reg)
}
