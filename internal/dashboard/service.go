// Package dashboard aggregates sales and repair activity for the landing
// screen.
package dashboard

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/shopmanager/shopmanager/internal/payments"
	"github.com/shopmanager/shopmanager/internal/repairs"
)

const months = 6

// Payments lists recorded payments in a window.
type Payments interface {
	List(ctx context.Context, f payments.ListFilter) ([]payments.Payment, error)
}

// Jobs counts repair jobs by status.
type Jobs interface {
	CountByStatus(ctx context.Context) (map[string]int, error)
}

// Summary is the dashboard payload.
type Summary struct {
	DailyIncome    float64   `json:"dailyIncome"`
	DailyCost      float64   `json:"dailyCost"`
	DailyProfit    float64   `json:"dailyProfit"`
	CompletedJobs  int       `json:"completedJobs"`
	PendingJobs    int       `json:"pendingJobs"`
	InProgressJobs int       `json:"inProgressJobs"`
	SixMonthMonths []string  `json:"sixMonthMonths"`
	SixMonthIncome []float64 `json:"sixMonthIncome"`
	SixMonthCost   []float64 `json:"sixMonthCost"`
	SixMonthProfit []float64 `json:"sixMonthProfit"`
}

// Service builds and caches the dashboard summary.
type Service struct {
	payments Payments
	jobs     Jobs
	cache    *Cache
	group    singleflight.Group
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs Service. cache may be nil.
func NewService(p Payments, jobs Jobs, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		payments: p,
		jobs:     jobs,
		cache:    cache,
		logger:   logger.With(slog.String("module", "dashboard")),
		now:      time.Now,
	}
}

// Summary returns today's figures, repair job counts and the trailing
// six-month series. Concurrent callers for the same day share one build.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	now := s.now()
	day := now.Format(time.DateOnly)
	key, err := s.cache.BuildKey(ctx, "dashboard", "summary", day)
	if err != nil {
		s.logger.Warn("dashboard cache unavailable", slog.Any("error", err))
		return s.build(ctx, now)
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		var out Summary
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.build(ctx, now)
		})
		return out, err
	})
	if err != nil {
		return Summary{}, err
	}
	return v.(Summary), nil
}

func (s *Service) build(ctx context.Context, now time.Time) (Summary, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	first := time.Date(now.Year(), now.Month()-months+1, 1, 0, 0, 0, 0, now.Location())

	var (
		daily  []payments.Payment
		recent []payments.Payment
		counts map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		daily, err = s.payments.List(gctx, payments.ListFilter{From: dayStart, To: dayStart.AddDate(0, 0, 1)})
		return err
	})
	g.Go(func() error {
		var err error
		recent, err = s.payments.List(gctx, payments.ListFilter{From: first})
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.jobs.CountByStatus(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	out := Summary{
		CompletedJobs:  counts[repairs.StatusCompleted],
		PendingJobs:    counts[repairs.StatusPending],
		InProgressJobs: counts[repairs.StatusInProgress],
		SixMonthMonths: make([]string, months),
		SixMonthIncome: make([]float64, months),
		SixMonthCost:   make([]float64, months),
		SixMonthProfit: make([]float64, months),
	}
	for _, p := range daily {
		income, cost := totals(p)
		out.DailyIncome += income
		out.DailyCost += cost
	}
	out.DailyProfit = out.DailyIncome - out.DailyCost

	for i := range months {
		out.SixMonthMonths[i] = first.AddDate(0, i, 0).Format("Jan 2006")
	}
	for _, p := range recent {
		d := p.Date.In(now.Location())
		i := (d.Year()-first.Year())*12 + int(d.Month()) - int(first.Month())
		if i < 0 || i >= months {
			continue
		}
		income, cost := totals(p)
		out.SixMonthIncome[i] += income
		out.SixMonthCost[i] += cost
	}
	for i := range months {
		out.SixMonthProfit[i] = out.SixMonthIncome[i] - out.SixMonthCost[i]
	}
	return out, nil
}

// totals sums price and buying price over the items. Returns count negative.
func totals(p payments.Payment) (income, cost float64) {
	for _, it := range p.Items {
		q := float64(it.Quantity)
		income += it.Price * q
		cost += it.BuyingPrice * q
	}
	if p.Kind == payments.KindReturn {
		return -income, -cost
	}
	return income, cost
}
