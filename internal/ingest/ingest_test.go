package ingest

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	collectormetrics "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonv1 "go.opentelemetry.io/proto/otlp/common/v1"
	metricsv1 "go.opentelemetry.io/proto/otlp/metrics/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/openclaw/clawmetry/internal/config"
	"github.com/openclaw/clawmetry/internal/metrics"
)

func testReceiver(t *testing.T) (*Receiver, *metrics.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.SnapshotFile = filepath.Join(t.TempDir(), "metrics.json")
	store := metrics.NewStore(cfg)
	return NewReceiver(store), store
}

func TestCategoryFor(t *testing.T) {
	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"openclaw.tokens", "tokens", true},
		{"openclaw.tokens.output", "tokens", true},
		{"openclaw.cost.total", "cost", true},
		{"openclaw.runs", "runs", true},
		{"openclaw.messages.inbound", "messages", true},
		{"openclaw.webhooks", "webhooks", true},
		{"openclaw.latency", "", false},
		{"host.cpu.usage", "", false},
		{"tokens", "", false},
	}
	for _, tt := range tests {
		got, ok := categoryFor(tt.name)
		if got != tt.want || ok != tt.ok {
			t.Errorf("categoryFor(%q) = %q,%v want %q,%v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func sumMetric(name string, value int64, ts time.Time, attrs map[string]string) *metricsv1.Metric {
	dp := &metricsv1.NumberDataPoint{
		TimeUnixNano: uint64(ts.UnixNano()),
		Value:        &metricsv1.NumberDataPoint_AsInt{AsInt: value},
	}
	for k, v := range attrs {
		dp.Attributes = append(dp.Attributes, &commonv1.KeyValue{
			Key:   k,
			Value: &commonv1.AnyValue{Value: &commonv1.AnyValue_StringValue{StringValue: v}},
		})
	}
	return &metricsv1.Metric{
		Name: name,
		Data: &metricsv1.Metric_Sum{Sum: &metricsv1.Sum{
			DataPoints: []*metricsv1.NumberDataPoint{dp},
		}},
	}
}

func exportRequest(ms ...*metricsv1.Metric) *collectormetrics.ExportMetricsServiceRequest {
	return &collectormetrics.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricsv1.ResourceMetrics{{
			ScopeMetrics: []*metricsv1.ScopeMetrics{{Metrics: ms}},
		}},
	}
}

func TestHandleRequestProtobuf(t *testing.T) {
	r, store := testReceiver(t)
	ts := time.Now().Truncate(time.Second)

	req := exportRequest(
		sumMetric("openclaw.tokens.output", 1200, ts, map[string]string{"model": "claude-opus-4-5", "channel": "discord"}),
		sumMetric("openclaw.cost", 1, ts, nil),
		sumMetric("process.cpu.time", 99, ts, nil), // not ours; skipped
	)
	data, err := proto.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.HandleRequest(bytes.NewReader(data), "application/x-protobuf"); err != nil {
		t.Fatal(err)
	}

	tokens := store.Entries(metrics.CategoryTokens)
	if len(tokens) != 1 {
		t.Fatalf("got %d token entries, want 1", len(tokens))
	}
	e := tokens[0]
	if e.Value != 1200 || e.Model != "claude-opus-4-5" || e.Channel != "discord" {
		t.Errorf("entry = %+v", e)
	}
	if !e.Time.Equal(ts) {
		t.Errorf("entry time = %v, want %v", e.Time, ts)
	}
	if got := store.Counts()[metrics.CategoryCost]; got != 1 {
		t.Errorf("cost entries = %d, want 1", got)
	}
}

func TestHandleRequestJSON(t *testing.T) {
	r, store := testReceiver(t)
	req := exportRequest(sumMetric("openclaw.runs", 1, time.Now(), nil))

	data, err := protojson.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}

	if err := r.HandleRequest(bytes.NewReader(data), "application/json"); err != nil {
		t.Fatal(err)
	}
	if got := store.Counts()[metrics.CategoryRuns]; got != 1 {
		t.Errorf("runs entries = %d, want 1", got)
	}
}

func TestHandleRequestGarbage(t *testing.T) {
	r, _ := testReceiver(t)
	if err := r.HandleRequest(bytes.NewReader([]byte("not otlp")), "application/json"); err == nil {
		t.Error("garbage body should error")
	}
}
