// Package analytics produces per-tenant daily activity series for the
// dashboard. Values are synthesized deterministically from the tenant id
// and date, so repeated reads of the same range return identical data and
// no per-tenant time-series storage is needed.
package analytics

import (
	"hash/fnv"
	"math"
	"math/rand"
	"time"
)

// Baseline anchors a tenant's synthesized metrics.
type Baseline struct {
	ActiveUsers int
	Revenue     int
	Engagement  float64
}

// DefaultBaseline is used for tenants without an explicit baseline.
var DefaultBaseline = Baseline{ActiveUsers: 100, Revenue: 50000, Engagement: 0.6}

// Engagement summarizes per-day user engagement.
type Engagement struct {
	AverageSessionDuration float64 `json:"averageSessionDuration"`
	PageViews              int     `json:"pageViews"`
	BounceRate             float64 `json:"bounceRate"`
}

// Metrics is one day of tenant activity.
type Metrics struct {
	DailyActiveUsers int        `json:"dailyActiveUsers"`
	NewUserSignups   int        `json:"newUserSignups"`
	Revenue          int        `json:"revenue"`
	UserEngagement   Engagement `json:"userEngagement"`
	Retention        float64    `json:"retention"`
}

// Daily pairs a date (YYYY-MM-DD) with its metrics.
type Daily struct {
	Date    string  `json:"date"`
	Metrics Metrics `json:"metrics"`
}

// Generator synthesizes daily series per tenant.
type Generator struct {
	baselines map[string]Baseline

	// Now is overridable for tests. Defaults to time.Now.
	Now func() time.Time
}

// NewGenerator creates a generator with per-tenant baselines. Tenants not
// in the map fall back to DefaultBaseline.
func NewGenerator(baselines map[string]Baseline) *Generator {
	return &Generator{baselines: baselines, Now: time.Now}
}

// Series returns the last `days` days of metrics for the tenant, oldest
// first, ending today.
func (g *Generator) Series(tenantID string, days int) []Daily {
	if days <= 0 {
		return nil
	}

	base, ok := g.baselines[tenantID]
	if !ok {
		base = DefaultBaseline
	}

	today := g.Now().UTC().Truncate(24 * time.Hour)
	series := make([]Daily, 0, days)
	for offset := days - 1; offset >= 0; offset-- {
		date := today.AddDate(0, 0, -offset)
		series = append(series, Daily{
			Date:    date.Format("2006-01-02"),
			Metrics: dayMetrics(tenantID, base, date, offset),
		})
	}
	return series
}

// Latest returns today's metrics for the tenant.
func (g *Generator) Latest(tenantID string) Daily {
	s := g.Series(tenantID, 1)
	return s[0]
}

// dayMetrics synthesizes one day. The jitter source is seeded from the
// tenant id and date, which is what makes the series reproducible.
func dayMetrics(tenantID string, base Baseline, date time.Time, offset int) Metrics {
	h := fnv.New64a()
	h.Write([]byte(tenantID))
	h.Write([]byte(date.Format("2006-01-02")))
	rng := rand.New(rand.NewSource(int64(h.Sum64())))

	idx := float64(offset)

	activeUsers := int(math.Round(float64(base.ActiveUsers) +
		math.Sin(idx*0.5)*20 +
		(rng.Float64()-0.5)*15))
	if activeUsers < 10 {
		activeUsers = 10
	}

	signups := int(math.Round(float64(activeUsers)*0.1 + math.Sin(idx*0.3)*5))
	if signups < 2 {
		signups = 2
	}

	revenue := int(math.Round(float64(base.Revenue) +
		math.Sin(idx*0.4)*5000 +
		(rng.Float64()-0.5)*2000))

	session := 3 + math.Sin(idx*0.2)*1.5
	if session < 1 {
		session = 1
	}

	return Metrics{
		DailyActiveUsers: activeUsers,
		NewUserSignups:   signups,
		Revenue:          revenue,
		UserEngagement: Engagement{
			AverageSessionDuration: round2(session),
			PageViews:              int(math.Round(float64(activeUsers) * (1.5 + math.Sin(idx*0.3)*0.5))),
			BounceRate:             round2(0.4 + math.Sin(idx*0.1)*0.15),
		},
		Retention: round2(base.Engagement + math.Sin(idx*0.2)*0.2),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
