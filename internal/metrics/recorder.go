package metrics

import "time"

// ResultLabel enumerates pipeline result categories for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
	ResultRemoved ResultLabel = "removed" // container vanished from the descriptor mid-run
)

// Recorder defines observability hooks for synchronization runs. Implementations
// may forward to Prometheus, OpenTelemetry, etc. All methods must be safe for nil receivers
// when using the NoopRecorder (allowing optional injection).
type Recorder interface {
	ObservePipelineDuration(result ResultLabel, d time.Duration)
	IncPipelineResult(result ResultLabel)
	IncStateTransition(from, to string)
	ObserveGitOperation(op string, d time.Duration, success bool)
	IncDescriptorWrite(result string) // written|unchanged|container_removed|failed
	SetPipelineConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObservePipelineDuration(ResultLabel, time.Duration) {}
func (NoopRecorder) IncPipelineResult(ResultLabel)                      {}
func (NoopRecorder) IncStateTransition(string, string)                  {}
func (NoopRecorder) ObserveGitOperation(string, time.Duration, bool)    {}
func (NoopRecorder) IncDescriptorWrite(string)                          {}
func (NoopRecorder) SetPipelineConcurrency(int)                         {}
