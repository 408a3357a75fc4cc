// Package engine keeps the driver's derived figures consistent with the ledger.
//
// Mutations validate their input, then write through one ledger transaction.
// Reads compute from one ledger snapshot using the pure rules in package
// finance. The long-lived views (dashboard, cost per kilometre, report and
// forecast) recompute automatically when a committed change touches the
// records they depend on.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"gitlab.com/yelinaung/taxi-ledger/internal/finance"
	"gitlab.com/yelinaung/taxi-ledger/internal/ledger"
	"gitlab.com/yelinaung/taxi-ledger/internal/logger"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// Options configure an Engine. Zero values use UTC, the system clock and the
// literal day-of-year forecast matching.
type Options struct {
	Location    *time.Location
	Now         func() time.Time
	YearlyMatch finance.YearlyMatch
}

// Dashboard is the live shift view plus the all-time balances shown with it.
type Dashboard struct {
	finance.ShiftSnapshot
	InstallmentDebt decimal.Decimal
	Receivables     decimal.Decimal
	CurrencySymbol  string
}

// Receivables lists unpaid jobs and their total revenue.
type Receivables struct {
	Jobs  []models.Job
	Total decimal.Decimal
}

// Overview is a set of views refreshed together.
type Overview struct {
	Dashboard Dashboard
	Report    finance.ReportSnapshot
	Forecast  []finance.MonthForecast
}

// Engine exposes the ledger operations and derived views.
type Engine struct {
	store       ledger.Store
	loc         *time.Location
	clock       func() time.Time
	forecastOpt finance.ForecastOptions
	inst        *instruments

	dashboard *View[Dashboard]
	cost      *View[decimal.Decimal]
	forecast  *View[[]finance.MonthForecast]
	report    *ReportView
}

// New creates an engine over store.
func New(store ledger.Store, opts Options) *Engine {
	e := &Engine{
		store:       store,
		loc:         opts.Location,
		clock:       opts.Now,
		forecastOpt: finance.ForecastOptions{YearlyMatch: opts.YearlyMatch},
		inst:        newInstruments(),
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.forecastOpt.YearlyMatch == "" {
		e.forecastOpt.YearlyMatch = finance.YearlyMatchDayOfYear
	}

	e.dashboard = newView("dashboard", store,
		[]ledger.Topic{ledger.TopicShifts, ledger.TopicJobs, ledger.TopicExpenses, ledger.TopicInstallments, ledger.TopicSettings},
		e.computeDashboard, e.inst)
	e.cost = newView("cost_per_distance", store,
		[]ledger.Topic{ledger.TopicShifts, ledger.TopicJobs, ledger.TopicExpenses, ledger.TopicSettings},
		computeCostPerDistance, e.inst)
	e.forecast = newView("forecast", store,
		[]ledger.Topic{ledger.TopicRecurring, ledger.TopicInstallments},
		e.computeForecast, e.inst)
	e.report = newReportView(e, finance.PeriodMonthly, e.now())

	return e
}

func (e *Engine) now() time.Time {
	return e.clock().In(e.loc)
}

// Location returns the engine's calendar location.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// Now returns the engine clock in its calendar location.
func (e *Engine) Now() time.Time {
	return e.now()
}

// DashboardView returns the live dashboard view.
func (e *Engine) DashboardView() *View[Dashboard] { return e.dashboard }

// CostView returns the live cost-per-kilometre view.
func (e *Engine) CostView() *View[decimal.Decimal] { return e.cost }

// ForecastView returns the live forecast view.
func (e *Engine) ForecastView() *View[[]finance.MonthForecast] { return e.forecast }

// ReportView returns the navigable period report view.
func (e *Engine) ReportView() *ReportView { return e.report }

// Run keeps every view up to date until ctx is cancelled. The forecast is
// also invalidated when the calendar month changes, since it is anchored on
// the current date rather than on ledger records.
func (e *Engine) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { e.dashboard.Run(gctx); return nil })
	g.Go(func() error { e.cost.Run(gctx); return nil })
	g.Go(func() error { e.forecast.Run(gctx); return nil })
	g.Go(func() error { e.report.view.Run(gctx); return nil })
	g.Go(func() error {
		e.watchMonth(gctx, time.Minute)
		return nil
	})
	return g.Wait()
}

func (e *Engine) watchMonth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	month := finance.MonthStart(e.now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m := finance.MonthStart(e.now()); !m.Equal(month) {
				month = m
				logger.Log.Debug().Time("month", m).Msg("Month changed, refreshing forecast")
				e.forecast.Invalidate()
			}
		}
	}
}

// read runs fn on one snapshot inside a span.
func (e *Engine) read(ctx context.Context, op string, fn func(ctx context.Context, r ledger.Reader) error) (err error) {
	ctx, span := e.inst.tracer.Start(ctx, "engine."+op)
	defer func() { endSpan(span, err) }()
	return e.store.View(ctx, func(r ledger.Reader) error { return fn(ctx, r) })
}

// update runs fn in one transaction inside a span.
func (e *Engine) update(ctx context.Context, op string, fn func(ctx context.Context, w ledger.Writer) error) (err error) {
	ctx, span := e.inst.tracer.Start(ctx, "engine."+op)
	defer func() { endSpan(span, err) }()
	return e.store.Update(ctx, func(w ledger.Writer) error { return fn(ctx, w) })
}

// Dashboard computes the dashboard from the current ledger.
func (e *Engine) Dashboard(ctx context.Context) (Dashboard, error) {
	var out Dashboard
	err := e.read(ctx, "Dashboard", func(ctx context.Context, r ledger.Reader) error {
		var err error
		out, err = e.computeDashboard(ctx, r)
		return err
	})
	return out, err
}

// CostPerDistance computes the blended cost per kilometre.
func (e *Engine) CostPerDistance(ctx context.Context) (decimal.Decimal, error) {
	var out decimal.Decimal
	err := e.read(ctx, "CostPerDistance", func(ctx context.Context, r ledger.Reader) error {
		var err error
		out, err = computeCostPerDistance(ctx, r)
		return err
	})
	return out, err
}

// Forecast projects the next twelve months from the engine clock.
func (e *Engine) Forecast(ctx context.Context) ([]finance.MonthForecast, error) {
	var out []finance.MonthForecast
	err := e.read(ctx, "Forecast", func(ctx context.Context, r ledger.Reader) error {
		var err error
		out, err = e.computeForecast(ctx, r)
		return err
	})
	return out, err
}

// Report aggregates the period of the given kind containing anchor.
func (e *Engine) Report(ctx context.Context, kind finance.PeriodKind, anchor time.Time) (finance.ReportSnapshot, error) {
	period := finance.ResolvePeriod(kind, anchor.In(e.loc))
	var out finance.ReportSnapshot
	err := e.read(ctx, "Report", func(ctx context.Context, r ledger.Reader) error {
		var err error
		out, err = computeReport(ctx, r, period)
		return err
	})
	return out, err
}

// ReportData returns the raw rows of [start, end] for exporters.
func (e *Engine) ReportData(ctx context.Context, start, end time.Time) ([]models.ShiftSummary, []models.Expense, error) {
	var shifts []models.ShiftSummary
	var expenses []models.Expense
	err := e.read(ctx, "ReportData", func(ctx context.Context, r ledger.Reader) error {
		var err error
		if shifts, err = r.ShiftSummariesInRange(ctx, start, end); err != nil {
			return err
		}
		expenses, err = r.ExpensesInRange(ctx, start, end)
		return err
	})
	return shifts, expenses, err
}

// Receivables lists unpaid jobs.
func (e *Engine) Receivables(ctx context.Context) (Receivables, error) {
	var out Receivables
	err := e.read(ctx, "Receivables", func(ctx context.Context, r ledger.Reader) error {
		jobs, err := r.UnpaidJobs(ctx)
		if err != nil {
			return err
		}
		out = Receivables{Jobs: jobs, Total: finance.Receivables(jobs)}
		return nil
	})
	return out, err
}

// Settings returns the stored preferences.
func (e *Engine) Settings(ctx context.Context) (models.Settings, error) {
	var out models.Settings
	err := e.read(ctx, "Settings", func(ctx context.Context, r ledger.Reader) error {
		var err error
		out, err = r.Settings(ctx)
		return err
	})
	return out, err
}

// Overview refreshes the dashboard, the report of the period containing
// anchor and the forecast concurrently.
func (e *Engine) Overview(ctx context.Context, kind finance.PeriodKind, anchor time.Time) (Overview, error) {
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Dashboard, err = e.Dashboard(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Report, err = e.Report(gctx, kind, anchor)
		return err
	})
	g.Go(func() error {
		var err error
		out.Forecast, err = e.Forecast(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return out, nil
}

func costInputs(ctx context.Context, r ledger.Reader) (finance.CostInputs, []models.Expense, models.Settings, error) {
	settings, err := r.Settings(ctx)
	if err != nil {
		return finance.CostInputs{}, nil, settings, err
	}
	expenses, err := r.Expenses(ctx)
	if err != nil {
		return finance.CostInputs{}, nil, settings, err
	}
	shifts, err := r.ShiftSummaries(ctx)
	if err != nil {
		return finance.CostInputs{}, nil, settings, err
	}
	return finance.CostInputsFrom(settings, expenses, shifts), expenses, settings, nil
}

func computeCostPerDistance(ctx context.Context, r ledger.Reader) (decimal.Decimal, error) {
	in, _, _, err := costInputs(ctx, r)
	if err != nil {
		return decimal.Zero, err
	}
	return finance.CostPerDistance(in), nil
}

func (e *Engine) computeDashboard(ctx context.Context, r ledger.Reader) (Dashboard, error) {
	in, expenses, settings, err := costInputs(ctx, r)
	if err != nil {
		return Dashboard{}, err
	}

	active, err := r.ActiveShift(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	var jobs []models.Job
	if active != nil {
		if jobs, err = r.JobsForShift(ctx, active.ID); err != nil {
			return Dashboard{}, err
		}
	}

	installments, err := r.Installments(ctx)
	if err != nil {
		return Dashboard{}, err
	}
	unpaid, err := r.UnpaidJobs(ctx)
	if err != nil {
		return Dashboard{}, err
	}

	return Dashboard{
		ShiftSnapshot:   finance.ShiftEconomics(active, jobs, finance.CostPerDistance(in), finance.TotalDeductibleVAT(expenses)),
		InstallmentDebt: finance.InstallmentDebt(installments),
		Receivables:     finance.Receivables(unpaid),
		CurrencySymbol:  settings.CurrencySymbol,
	}, nil
}

func (e *Engine) computeForecast(ctx context.Context, r ledger.Reader) ([]finance.MonthForecast, error) {
	recurring, err := r.RecurringExpenses(ctx)
	if err != nil {
		return nil, err
	}
	installments, err := r.Installments(ctx)
	if err != nil {
		return nil, err
	}
	return finance.Forecast(e.now(), recurring, installments, e.forecastOpt), nil
}

func computeReport(ctx context.Context, r ledger.Reader, period finance.Period) (finance.ReportSnapshot, error) {
	shifts, err := r.ShiftSummariesInRange(ctx, period.Start, period.End)
	if err != nil {
		return finance.ReportSnapshot{}, err
	}
	expenses, err := r.ExpensesInRange(ctx, period.Start, period.End)
	if err != nil {
		return finance.ReportSnapshot{}, err
	}
	return finance.Report(period, shifts, expenses), nil
}

// ReportView is the period report with navigation state. Changing the period
// invalidates the view; ledger changes to shifts, jobs or expenses do too.
//
// Navigation counts months away from the last anchor set, so stepping through
// short months does not pull the day of month down for good.
type ReportView struct {
	mu     sync.Mutex
	kind   finance.PeriodKind
	origin time.Time
	offset int
	view   *View[finance.ReportSnapshot]
}

func newReportView(e *Engine, kind finance.PeriodKind, anchor time.Time) *ReportView {
	rv := &ReportView{kind: kind, origin: anchor}
	rv.view = newView("report", e.store,
		[]ledger.Topic{ledger.TopicShifts, ledger.TopicJobs, ledger.TopicExpenses},
		func(ctx context.Context, r ledger.Reader) (finance.ReportSnapshot, error) {
			return computeReport(ctx, r, rv.Period())
		}, e.inst)
	return rv
}

// View returns the underlying view for subscriptions.
func (rv *ReportView) View() *View[finance.ReportSnapshot] {
	return rv.view
}

// Period returns the currently selected period.
func (rv *ReportView) Period() finance.Period {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return finance.ResolvePeriod(rv.kind, rv.anchorLocked())
}

// Anchor returns the date the selected period was resolved from.
func (rv *ReportView) Anchor() time.Time {
	rv.mu.Lock()
	defer rv.mu.Unlock()
	return rv.anchorLocked()
}

func (rv *ReportView) anchorLocked() time.Time {
	return finance.AddMonthsClamped(rv.origin, rv.offset)
}

// SetKind switches between monthly and yearly reports.
func (rv *ReportView) SetKind(kind finance.PeriodKind) {
	rv.mu.Lock()
	rv.kind = kind
	rv.mu.Unlock()
	rv.view.Invalidate()
}

// SetAnchor selects the period containing anchor.
func (rv *ReportView) SetAnchor(anchor time.Time) {
	rv.mu.Lock()
	rv.origin = anchor
	rv.offset = 0
	rv.mu.Unlock()
	rv.view.Invalidate()
}

// Next moves to the following period.
func (rv *ReportView) Next() { rv.navigate(1) }

// Previous moves to the preceding period.
func (rv *ReportView) Previous() { rv.navigate(-1) }

func (rv *ReportView) navigate(delta int) {
	rv.mu.Lock()
	if rv.kind == finance.PeriodYearly {
		delta *= 12
	}
	rv.offset += delta
	rv.mu.Unlock()
	rv.view.Invalidate()
}
