package analytics

import (
	"reflect"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
}

func newTestGenerator() *Generator {
	g := NewGenerator(map[string]Baseline{
		"company1": {ActiveUsers: 100, Revenue: 50000, Engagement: 0.6},
		"company2": {ActiveUsers: 75, Revenue: 35000, Engagement: 0.5},
	})
	g.Now = fixedNow
	return g
}

func TestSeriesShape(t *testing.T) {
	g := newTestGenerator()

	series := g.Series("company1", 30)
	if len(series) != 30 {
		t.Fatalf("len = %d, want 30", len(series))
	}

	// Oldest first, ending today.
	if series[0].Date != "2025-05-17" {
		t.Errorf("first date = %q, want 2025-05-17", series[0].Date)
	}
	if series[29].Date != "2025-06-15" {
		t.Errorf("last date = %q, want 2025-06-15", series[29].Date)
	}

	for _, d := range series {
		if d.Metrics.DailyActiveUsers < 10 {
			t.Errorf("%s: DailyActiveUsers = %d, want >= 10", d.Date, d.Metrics.DailyActiveUsers)
		}
		if d.Metrics.NewUserSignups < 2 {
			t.Errorf("%s: NewUserSignups = %d, want >= 2", d.Date, d.Metrics.NewUserSignups)
		}
	}
}

func TestSeriesDeterministic(t *testing.T) {
	g := newTestGenerator()

	first := g.Series("company1", 14)
	second := g.Series("company1", 14)

	if !reflect.DeepEqual(first, second) {
		t.Error("repeated series differ")
	}
}

func TestSeriesVariesByTenant(t *testing.T) {
	g := newTestGenerator()

	c1 := g.Series("company1", 7)
	c2 := g.Series("company2", 7)

	if reflect.DeepEqual(c1, c2) {
		t.Error("different tenants produced identical series")
	}
}

func TestUnknownTenantUsesDefaultBaseline(t *testing.T) {
	g := newTestGenerator()

	series := g.Series("company9", 3)
	if len(series) != 3 {
		t.Fatalf("len = %d, want 3", len(series))
	}
}

func TestLatest(t *testing.T) {
	g := newTestGenerator()

	latest := g.Latest("company1")
	if latest.Date != "2025-06-15" {
		t.Errorf("Date = %q, want 2025-06-15", latest.Date)
	}

	series := g.Series("company1", 30)
	if !reflect.DeepEqual(series[29], latest) {
		t.Error("Latest differs from the final series entry")
	}
}

func TestZeroDays(t *testing.T) {
	g := newTestGenerator()
	if got := g.Series("company1", 0); got != nil {
		t.Errorf("Series(0) = %v, want nil", got)
	}
}
