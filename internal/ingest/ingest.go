// Package ingest decodes OTLP metric export requests pushed by the agent
// and feeds the recognized series into the metrics store.
package ingest

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	collectormetrics "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonv1 "go.opentelemetry.io/proto/otlp/common/v1"
	metricsv1 "go.opentelemetry.io/proto/otlp/metrics/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"github.com/openclaw/clawmetry/internal/metrics"
)

// metricPrefix namespaces the agent's own series; everything else on the
// wire (runtime, host metrics) is ignored.
const metricPrefix = "openclaw."

// Receiver maps OTLP export requests onto store categories.
type Receiver struct {
	store *metrics.Store
}

func NewReceiver(store *metrics.Store) *Receiver {
	return &Receiver{store: store}
}

// HandleRequest decodes one export request body, protobuf or JSON depending
// on contentType, and ingests its recognized data points. Unrecognized
// series are skipped without failing the request.
func (r *Receiver) HandleRequest(body io.Reader, contentType string) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}

	var req collectormetrics.ExportMetricsServiceRequest
	if strings.HasPrefix(contentType, "application/json") {
		if err := protojson.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parsing JSON metrics: %w", err)
		}
	} else {
		if err := proto.Unmarshal(data, &req); err != nil {
			return fmt.Errorf("parsing protobuf metrics: %w", err)
		}
	}

	r.process(&req)
	return nil
}

func (r *Receiver) process(req *collectormetrics.ExportMetricsServiceRequest) {
	for _, rm := range req.GetResourceMetrics() {
		for _, sm := range rm.GetScopeMetrics() {
			for _, metric := range sm.GetMetrics() {
				category, ok := categoryFor(metric.GetName())
				if !ok {
					continue
				}
				r.ingestMetric(category, metric)
			}
		}
	}
}

// categoryFor maps a series name onto a store category: the first segment
// after the prefix decides ("openclaw.tokens.output" → tokens).
func categoryFor(name string) (string, bool) {
	if !strings.HasPrefix(name, metricPrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(name, metricPrefix)
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		rest = rest[:i]
	}
	switch rest {
	case metrics.CategoryTokens, metrics.CategoryCost, metrics.CategoryRuns,
		metrics.CategoryMessages, metrics.CategoryWebhooks:
		return rest, true
	}
	return "", false
}

// ingestMetric appends every Sum and Gauge data point of the metric.
// Histograms and summaries are not part of the agent's export surface.
func (r *Receiver) ingestMetric(category string, metric *metricsv1.Metric) {
	var points []*metricsv1.NumberDataPoint
	if sum := metric.GetSum(); sum != nil {
		points = append(points, sum.GetDataPoints()...)
	}
	if gauge := metric.GetGauge(); gauge != nil {
		points = append(points, gauge.GetDataPoints()...)
	}

	for _, dp := range points {
		entry := metrics.Entry{
			Time:  pointTime(dp),
			Value: pointValue(dp),
		}
		applyAttributes(&entry, dp.GetAttributes())
		if err := r.store.Append(category, entry); err != nil {
			log.Printf("ingest: dropping %s point: %v", metric.GetName(), err)
		}
	}
}

func pointValue(dp *metricsv1.NumberDataPoint) float64 {
	switch v := dp.GetValue().(type) {
	case *metricsv1.NumberDataPoint_AsDouble:
		return v.AsDouble
	case *metricsv1.NumberDataPoint_AsInt:
		return float64(v.AsInt)
	default:
		return 0
	}
}

func pointTime(dp *metricsv1.NumberDataPoint) time.Time {
	if ns := dp.GetTimeUnixNano(); ns > 0 {
		return time.Unix(0, int64(ns))
	}
	return time.Now()
}

func applyAttributes(entry *metrics.Entry, attrs []*commonv1.KeyValue) {
	for _, kv := range attrs {
		val := kv.GetValue()
		if val == nil {
			continue
		}
		s, ok := val.GetValue().(*commonv1.AnyValue_StringValue)
		if !ok {
			continue
		}
		switch kv.GetKey() {
		case "model":
			entry.Model = s.StringValue
		case "channel":
			entry.Channel = s.StringValue
		case "provider":
			entry.Provider = s.StringValue
		}
	}
}
