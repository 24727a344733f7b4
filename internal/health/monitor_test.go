package health

import (
	"context"
	"testing"

	"github.com/tdngyn/skimmer/internal/collect"
	"github.com/tdngyn/skimmer/internal/core/domain"
	"github.com/tdngyn/skimmer/internal/pipeline"
)

type probeCollector struct {
	name      string
	reachable bool
	probes    int
}

func (p *probeCollector) SourceName() string { return p.name }

func (p *probeCollector) CollectBatch(ctx context.Context, maxItems int) ([]domain.Item, error) {
	return nil, nil
}

func (p *probeCollector) HealthCheck(ctx context.Context) (bool, string) {
	p.probes++
	if p.reachable {
		return true, p.name + " accessible"
	}
	return false, p.name + " health check failed: unreachable"
}

func (p *probeCollector) Close() error { return nil }

func probeSource(name string, reachable bool) (pipeline.Source, *probeCollector) {
	c := &probeCollector{name: name, reachable: reachable}
	return pipeline.Source{
		Collector: c,
		Strategy:  collect.NewStrategy(name, collect.ParamsFor("web")),
	}, c
}

func TestCheckHealthReport(t *testing.T) {
	up, _ := probeSource("up", true)
	down, _ := probeSource("down", false)

	m := NewMonitor([]pipeline.Source{up, down})
	report := m.CheckHealth(context.Background())

	if len(report) != 2 {
		t.Fatalf("report has %d entries, want 2", len(report))
	}
	if !report["up"].Reachable || report["down"].Reachable {
		t.Errorf("reachability wrong: %+v", report)
	}
	if report["up"].Status != domain.SourceHealthy {
		t.Errorf("fresh source status = %v, want healthy", report["up"].Status)
	}
	if report["down"].Message == "" {
		t.Error("unreachable source must carry a message")
	}
}

func TestCheckHealthCachesProbes(t *testing.T) {
	src, c := probeSource("cached", true)
	m := NewMonitor([]pipeline.Source{src})

	m.CheckHealth(context.Background())
	m.CheckHealth(context.Background())
	m.CheckHealth(context.Background())

	if c.probes != 1 {
		t.Errorf("probes = %d, want 1 inside the cache window", c.probes)
	}
}

func TestCheckHealthReflectsStrategy(t *testing.T) {
	src, _ := probeSource("flaky", true)
	for i := 0; i < 10; i++ {
		src.Strategy.RecordAttempt(i%2 == 0)
	}

	m := NewMonitor([]pipeline.Source{src})
	report := m.CheckHealth(context.Background())

	r := report["flaky"]
	if r.TotalRequests != 10 {
		t.Errorf("total_requests = %d, want 10", r.TotalRequests)
	}
	if r.SuccessRate != 0.5 {
		t.Errorf("success_rate = %v, want 0.5", r.SuccessRate)
	}
	if r.Status != domain.SourceDegraded {
		t.Errorf("status = %v, want degraded at 50%% success", r.Status)
	}
}

func TestAggregate(t *testing.T) {
	mk := func(reachable bool, status domain.SourceHealth) SourceReport {
		return SourceReport{Reachable: reachable, Status: status}
	}

	tests := []struct {
		name   string
		report map[string]SourceReport
		want   Status
	}{
		{"empty", map[string]SourceReport{}, StatusHealthy},
		{"all healthy", map[string]SourceReport{
			"a": mk(true, domain.SourceHealthy),
			"b": mk(true, domain.SourceHealthy),
		}, StatusHealthy},
		{"one degraded", map[string]SourceReport{
			"a": mk(true, domain.SourceHealthy),
			"b": mk(true, domain.SourceDegraded),
		}, StatusDegraded},
		{"one down", map[string]SourceReport{
			"a": mk(true, domain.SourceHealthy),
			"b": mk(false, domain.SourceHealthy),
		}, StatusDegraded},
		{"unhealthy counts as down", map[string]SourceReport{
			"a": mk(true, domain.SourceHealthy),
			"b": mk(true, domain.SourceUnhealthy),
		}, StatusDegraded},
		{"all down", map[string]SourceReport{
			"a": mk(false, domain.SourceHealthy),
			"b": mk(true, domain.SourceUnhealthy),
		}, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Aggregate(tt.report); got != tt.want {
				t.Errorf("Aggregate() = %v, want %v", got, tt.want)
			}
		})
	}
}
