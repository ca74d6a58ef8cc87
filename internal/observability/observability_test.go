package observability

import (
	"bytes"
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func TestExpvarRecorder(t *testing.T) {
	rec := NewExpvarRecorder("")
	ctx := context.Background()
	rec.Observe(ctx, "experiment", true, 2*time.Millisecond)
	rec.Observe(ctx, "experiment", false, time.Millisecond)
	rec.Count(ctx, "experiment", "created")
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	if got := snap.DurationsMS["experiment"]; math.Abs(got-3.0) > 1e-9 {
		t.Fatalf("expected 3ms total, got %v", got)
	}
	for _, result := range []string{"success", "error", "created"} {
		if got := snap.Results["experiment"][result]; got != 1 {
			t.Errorf("expected one %s result, got %d", result, got)
		}
	}
	if _, ok := snap.DurationsMS[""]; ok {
		t.Fatalf("empty operation should not be recorded")
	}
	if rec.Name() == "" {
		t.Fatalf("expected a published name")
	}
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusRecorder(reg)
	if err != nil {
		t.Fatalf("new recorder: %v", err)
	}
	ctx := context.Background()
	rec.Observe(ctx, "run", true, 10*time.Millisecond)
	rec.Count(ctx, "run", "reused")
	rec.Count(ctx, "run", "reused")

	if got := counterValue(t, reg, "seqsubmit_step_results_total", "run", "reused"); got != 2 {
		t.Fatalf("expected 2 reused, got %v", got)
	}
	if got := counterValue(t, reg, "seqsubmit_step_results_total", "run", "success"); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if _, err := NewPrometheusRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
}

func TestMultiAndTracer(t *testing.T) {
	a, b := NewExpvarRecorder(""), NewExpvarRecorder("")
	m := Multi{a, b, NopRecorder{}}
	m.Count(context.Background(), "dataset", "created")
	if a.Snapshot().Results["dataset"]["created"] != 1 || b.Snapshot().Results["dataset"]["created"] != 1 {
		t.Fatalf("expected both recorders to count the dataset")
	}

	var buf bytes.Buffer
	tr := NewJSONTracer(&buf)
	_, span := tr.Start(context.Background(), "finalize")
	span.End(errors.New("boom"))
	entries := tr.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected one span, got %d", len(entries))
	}
	if entries[0].Status != "error" || entries[0].Error != "boom" {
		t.Fatalf("unexpected span %+v", entries[0])
	}
	if !strings.Contains(buf.String(), `"operation":"finalize"`) {
		t.Fatalf("trace output missing operation: %s", buf.String())
	}

	_, nop := NopTracer{}.Start(context.Background(), "x")
	nop.End(nil)
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, operation, result string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			labels := map[string]string{}
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			if labels["operation"] == operation && labels["result"] == result {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}
