package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prom.NewRegistry()
	pr := NewPrometheusRecorder(reg)
	pr.ObservePipelineDuration(ResultSuccess, 150*time.Millisecond)
	pr.IncPipelineResult(ResultSuccess)
	pr.IncPipelineResult(ResultSuccess)
	pr.IncPipelineResult(ResultFailed)
	pr.IncStateTransition("valid-clone", "fetching")
	pr.ObserveGitOperation("fetch", 20*time.Millisecond, false)
	pr.IncDescriptorWrite("written")
	pr.SetPipelineConcurrency(4)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if len(mfs) != 6 {
		t.Fatalf("expected 6 metric families, got %d", len(mfs))
	}
	results := findFamily(mfs, "nscale_pipeline_results_total")
	if results == nil {
		t.Fatal("missing nscale_pipeline_results_total")
	}
	for _, m := range results.GetMetric() {
		if m.GetLabel()[0].GetValue() == "success" && m.GetCounter().GetValue() != 2 {
			t.Fatalf("expected 2 successful pipelines, got %v", m.GetCounter().GetValue())
		}
	}
	gauge := findFamily(mfs, "nscale_pipeline_concurrency")
	if gauge == nil || gauge.GetMetric()[0].GetGauge().GetValue() != 4 {
		t.Fatalf("expected concurrency 4, got %v", gauge)
	}
}

func TestWriteTextfile(t *testing.T) {
	pr := NewPrometheusRecorder(nil)
	pr.IncDescriptorWrite("unchanged")

	path := filepath.Join(t.TempDir(), "nscale.prom")
	if err := pr.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `nscale_descriptor_writes_total{result="unchanged"} 1`) {
		t.Fatalf("unexpected textfile content:\n%s", data)
	}
}
