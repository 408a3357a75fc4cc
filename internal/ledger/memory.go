package ledger

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"gitlab.com/yelinaung/taxi-ledger/internal/models"
)

// Memory is an in-process Store for tests and local runs.
// Updates run under an exclusive lock against a snapshot that is restored
// when the update function fails.
type Memory struct {
	mu     sync.RWMutex
	state  memoryState
	broker *Broker
}

type memoryState struct {
	lastID       int64
	shifts       map[int64]models.Shift
	jobs         map[int64]models.Job
	expenses     map[int64]models.Expense
	recurring    map[int64]models.RecurringExpense
	installments map[int64]models.Installment
	settings     models.Settings
}

// NewMemory creates an empty memory store with default settings.
func NewMemory() *Memory {
	return &Memory{
		state: memoryState{
			shifts:       make(map[int64]models.Shift),
			jobs:         make(map[int64]models.Job),
			expenses:     make(map[int64]models.Expense),
			recurring:    make(map[int64]models.RecurringExpense),
			installments: make(map[int64]models.Installment),
			settings:     models.DefaultSettings(),
		},
		broker: NewBroker(),
	}
}

var _ Store = (*Memory)(nil)

// Changes returns the store's broker.
func (m *Memory) Changes() *Broker {
	return m.broker
}

// View runs fn under a read lock.
func (m *Memory) View(ctx context.Context, fn func(Reader) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memoryTx{state: &m.state})
}

// Update runs fn under the write lock. On error the previous state is
// restored and nothing is published.
func (m *Memory) Update(ctx context.Context, fn func(Writer) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.state.clone()
	tx := &memoryTx{state: &m.state, topics: make(topicSet)}
	if err := fn(tx); err != nil {
		m.state = snapshot
		return err
	}
	if len(tx.topics) > 0 {
		m.broker.Publish(tx.topics.list())
	}
	return nil
}

func (s memoryState) clone() memoryState {
	return memoryState{
		lastID:       s.lastID,
		shifts:       maps.Clone(s.shifts),
		jobs:         maps.Clone(s.jobs),
		expenses:     maps.Clone(s.expenses),
		recurring:    maps.Clone(s.recurring),
		installments: maps.Clone(s.installments),
		settings:     s.settings,
	}
}

// memoryTx implements Writer over the locked state. Records are stored and
// returned by value; pointer fields are copied on the way in and out.
type memoryTx struct {
	state  *memoryState
	topics topicSet
}

func (tx *memoryTx) nextID() int64 {
	tx.state.lastID++
	return tx.state.lastID
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyShift(s models.Shift) models.Shift {
	s.EndTime = copyPtr(s.EndTime)
	s.EndOdometer = copyPtr(s.EndOdometer)
	s.VehicleCost = copyPtr(s.VehicleCost)
	return s
}

func copyJob(j models.Job) models.Job {
	j.ReceiptAmount = copyPtr(j.ReceiptAmount)
	j.Notes = copyPtr(j.Notes)
	j.Odometer = copyPtr(j.Odometer)
	return j
}

func copyExpense(e models.Expense) models.Expense {
	e.InstallmentID = copyPtr(e.InstallmentID)
	return e
}

func copyInstallment(i models.Installment) models.Installment {
	i.LastPaymentDate = copyPtr(i.LastPaymentDate)
	return i
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}

// Reader

func (tx *memoryTx) ActiveShift(_ context.Context) (*models.Shift, error) {
	for _, s := range tx.state.shifts {
		if s.Active {
			out := copyShift(s)
			return &out, nil
		}
	}
	return nil, nil
}

func (tx *memoryTx) Shift(_ context.Context, id int64) (*models.Shift, error) {
	s, ok := tx.state.shifts[id]
	if !ok {
		return nil, fmt.Errorf("shift %d: %w", id, ErrNotFound)
	}
	out := copyShift(s)
	return &out, nil
}

func (tx *memoryTx) Job(_ context.Context, id int64) (*models.Job, error) {
	j, ok := tx.state.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	out := copyJob(j)
	return &out, nil
}

func (tx *memoryTx) jobs(keep func(models.Job) bool) []models.Job {
	var out []models.Job
	for _, j := range tx.state.jobs {
		if keep(j) {
			out = append(out, copyJob(j))
		}
	}
	slices.SortFunc(out, func(a, b models.Job) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (tx *memoryTx) JobsForShift(_ context.Context, shiftID int64) ([]models.Job, error) {
	return tx.jobs(func(j models.Job) bool { return j.ShiftID == shiftID }), nil
}

func (tx *memoryTx) UnpaidJobs(_ context.Context) ([]models.Job, error) {
	return tx.jobs(func(j models.Job) bool { return !j.Paid }), nil
}

func (tx *memoryTx) summaries(keep func(models.Shift) bool) []models.ShiftSummary {
	byShift := make(map[int64]*models.ShiftSummary)
	var out []*models.ShiftSummary
	for _, s := range tx.state.shifts {
		if !keep(s) {
			continue
		}
		sum := &models.ShiftSummary{Shift: copyShift(s)}
		byShift[s.ID] = sum
		out = append(out, sum)
	}
	for _, j := range tx.state.jobs {
		sum, ok := byShift[j.ShiftID]
		if !ok {
			continue
		}
		sum.JobCount++
		sum.TotalRevenue = sum.TotalRevenue.Add(j.Revenue)
		sum.TotalReceipts = sum.TotalReceipts.Add(j.Receipt())
		if j.Odometer != nil && (sum.MaxJobOdometer == nil || j.Odometer.GreaterThan(*sum.MaxJobOdometer)) {
			sum.MaxJobOdometer = copyPtr(j.Odometer)
		}
	}
	slices.SortFunc(out, func(a, b *models.ShiftSummary) int {
		if c := b.Shift.StartTime.Compare(a.Shift.StartTime); c != 0 {
			return c
		}
		return cmp.Compare(b.Shift.ID, a.Shift.ID)
	})
	result := make([]models.ShiftSummary, len(out))
	for i, s := range out {
		result[i] = *s
	}
	return result
}

func (tx *memoryTx) ShiftSummaries(_ context.Context) ([]models.ShiftSummary, error) {
	return tx.summaries(func(models.Shift) bool { return true }), nil
}

func (tx *memoryTx) ShiftSummariesInRange(_ context.Context, start, end time.Time) ([]models.ShiftSummary, error) {
	return tx.summaries(func(s models.Shift) bool { return within(s.StartTime, start, end) }), nil
}

func (tx *memoryTx) Expense(_ context.Context, id int64) (*models.Expense, error) {
	e, ok := tx.state.expenses[id]
	if !ok {
		return nil, fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	out := copyExpense(e)
	return &out, nil
}

func (tx *memoryTx) expenses(keep func(models.Expense) bool) []models.Expense {
	var out []models.Expense
	for _, e := range tx.state.expenses {
		if keep(e) {
			out = append(out, copyExpense(e))
		}
	}
	slices.SortFunc(out, func(a, b models.Expense) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out
}

func (tx *memoryTx) Expenses(_ context.Context) ([]models.Expense, error) {
	return tx.expenses(func(models.Expense) bool { return true }), nil
}

func (tx *memoryTx) ExpensesInRange(_ context.Context, start, end time.Time) ([]models.Expense, error) {
	return tx.expenses(func(e models.Expense) bool { return within(e.Timestamp, start, end) }), nil
}

func (tx *memoryTx) RecurringExpense(_ context.Context, id int64) (*models.RecurringExpense, error) {
	r, ok := tx.state.recurring[id]
	if !ok {
		return nil, fmt.Errorf("recurring expense %d: %w", id, ErrNotFound)
	}
	return &r, nil
}

func (tx *memoryTx) RecurringExpenses(_ context.Context) ([]models.RecurringExpense, error) {
	out := slices.Collect(maps.Values(tx.state.recurring))
	slices.SortFunc(out, func(a, b models.RecurringExpense) int {
		if c := cmp.Compare(a.Description, b.Description); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (tx *memoryTx) Installment(_ context.Context, id int64) (*models.Installment, error) {
	i, ok := tx.state.installments[id]
	if !ok {
		return nil, fmt.Errorf("installment %d: %w", id, ErrNotFound)
	}
	out := copyInstallment(i)
	return &out, nil
}

func (tx *memoryTx) Installments(_ context.Context) ([]models.Installment, error) {
	out := make([]models.Installment, 0, len(tx.state.installments))
	for _, i := range tx.state.installments {
		out = append(out, copyInstallment(i))
	}
	slices.SortFunc(out, func(a, b models.Installment) int {
		if c := a.NextPaymentDate.Compare(b.NextPaymentDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (tx *memoryTx) Settings(_ context.Context) (models.Settings, error) {
	return tx.state.settings, nil
}

// Writer

func (tx *memoryTx) checkSingleActive(shift *models.Shift) error {
	if !shift.Active {
		return nil
	}
	for _, s := range tx.state.shifts {
		if s.Active && s.ID != shift.ID {
			return fmt.Errorf("shift %d is already active: %w", s.ID, ErrConflict)
		}
	}
	return nil
}

func (tx *memoryTx) InsertShift(_ context.Context, shift *models.Shift) error {
	if err := tx.checkSingleActive(shift); err != nil {
		return err
	}
	shift.ID = tx.nextID()
	tx.state.shifts[shift.ID] = copyShift(*shift)
	tx.topics.add(TopicShifts)
	return nil
}

func (tx *memoryTx) UpdateShift(_ context.Context, shift *models.Shift) error {
	if _, ok := tx.state.shifts[shift.ID]; !ok {
		return fmt.Errorf("shift %d: %w", shift.ID, ErrNotFound)
	}
	if err := tx.checkSingleActive(shift); err != nil {
		return err
	}
	tx.state.shifts[shift.ID] = copyShift(*shift)
	tx.topics.add(TopicShifts)
	return nil
}

func (tx *memoryTx) DeleteShift(_ context.Context, id int64) error {
	if _, ok := tx.state.shifts[id]; !ok {
		return fmt.Errorf("shift %d: %w", id, ErrNotFound)
	}
	delete(tx.state.shifts, id)
	for jobID, j := range tx.state.jobs {
		if j.ShiftID == id {
			delete(tx.state.jobs, jobID)
		}
	}
	tx.topics.add(TopicShifts, TopicJobs)
	return nil
}

func (tx *memoryTx) InsertJob(_ context.Context, job *models.Job) error {
	if _, ok := tx.state.shifts[job.ShiftID]; !ok {
		return fmt.Errorf("shift %d: %w", job.ShiftID, ErrNotFound)
	}
	job.ID = tx.nextID()
	tx.state.jobs[job.ID] = copyJob(*job)
	tx.topics.add(TopicJobs)
	return nil
}

func (tx *memoryTx) UpdateJob(_ context.Context, job *models.Job) error {
	if _, ok := tx.state.jobs[job.ID]; !ok {
		return fmt.Errorf("job %d: %w", job.ID, ErrNotFound)
	}
	if _, ok := tx.state.shifts[job.ShiftID]; !ok {
		return fmt.Errorf("shift %d: %w", job.ShiftID, ErrNotFound)
	}
	tx.state.jobs[job.ID] = copyJob(*job)
	tx.topics.add(TopicJobs)
	return nil
}

func (tx *memoryTx) DeleteJob(_ context.Context, id int64) error {
	if _, ok := tx.state.jobs[id]; !ok {
		return fmt.Errorf("job %d: %w", id, ErrNotFound)
	}
	delete(tx.state.jobs, id)
	tx.topics.add(TopicJobs)
	return nil
}

func (tx *memoryTx) checkInstallmentLink(expense *models.Expense) error {
	if expense.InstallmentID == nil {
		return nil
	}
	if _, ok := tx.state.installments[*expense.InstallmentID]; !ok {
		return fmt.Errorf("installment %d: %w", *expense.InstallmentID, ErrNotFound)
	}
	return nil
}

func (tx *memoryTx) InsertExpense(_ context.Context, expense *models.Expense) error {
	if err := tx.checkInstallmentLink(expense); err != nil {
		return err
	}
	expense.ID = tx.nextID()
	tx.state.expenses[expense.ID] = copyExpense(*expense)
	tx.topics.add(TopicExpenses)
	return nil
}

func (tx *memoryTx) UpdateExpense(_ context.Context, expense *models.Expense) error {
	if _, ok := tx.state.expenses[expense.ID]; !ok {
		return fmt.Errorf("expense %d: %w", expense.ID, ErrNotFound)
	}
	if err := tx.checkInstallmentLink(expense); err != nil {
		return err
	}
	tx.state.expenses[expense.ID] = copyExpense(*expense)
	tx.topics.add(TopicExpenses)
	return nil
}

func (tx *memoryTx) DeleteExpense(_ context.Context, id int64) error {
	if _, ok := tx.state.expenses[id]; !ok {
		return fmt.Errorf("expense %d: %w", id, ErrNotFound)
	}
	delete(tx.state.expenses, id)
	tx.topics.add(TopicExpenses)
	return nil
}

func (tx *memoryTx) InsertRecurringExpense(_ context.Context, rec *models.RecurringExpense) error {
	rec.ID = tx.nextID()
	tx.state.recurring[rec.ID] = *rec
	tx.topics.add(TopicRecurring)
	return nil
}

func (tx *memoryTx) UpdateRecurringExpense(_ context.Context, rec *models.RecurringExpense) error {
	if _, ok := tx.state.recurring[rec.ID]; !ok {
		return fmt.Errorf("recurring expense %d: %w", rec.ID, ErrNotFound)
	}
	tx.state.recurring[rec.ID] = *rec
	tx.topics.add(TopicRecurring)
	return nil
}

func (tx *memoryTx) DeleteRecurringExpense(_ context.Context, id int64) error {
	if _, ok := tx.state.recurring[id]; !ok {
		return fmt.Errorf("recurring expense %d: %w", id, ErrNotFound)
	}
	delete(tx.state.recurring, id)
	tx.topics.add(TopicRecurring)
	return nil
}

func (tx *memoryTx) InsertInstallment(_ context.Context, inst *models.Installment) error {
	inst.ID = tx.nextID()
	tx.state.installments[inst.ID] = copyInstallment(*inst)
	tx.topics.add(TopicInstallments)
	return nil
}

func (tx *memoryTx) UpdateInstallment(_ context.Context, inst *models.Installment) error {
	if _, ok := tx.state.installments[inst.ID]; !ok {
		return fmt.Errorf("installment %d: %w", inst.ID, ErrNotFound)
	}
	tx.state.installments[inst.ID] = copyInstallment(*inst)
	tx.topics.add(TopicInstallments)
	return nil
}

// DeleteInstallment removes a plan and unlinks the expenses charged against it.
func (tx *memoryTx) DeleteInstallment(_ context.Context, id int64) error {
	if _, ok := tx.state.installments[id]; !ok {
		return fmt.Errorf("installment %d: %w", id, ErrNotFound)
	}
	delete(tx.state.installments, id)
	tx.topics.add(TopicInstallments)
	for expID, e := range tx.state.expenses {
		if e.InstallmentID != nil && *e.InstallmentID == id {
			e.InstallmentID = nil
			tx.state.expenses[expID] = e
			tx.topics.add(TopicExpenses)
		}
	}
	return nil
}

func (tx *memoryTx) SaveSettings(_ context.Context, settings models.Settings) error {
	tx.state.settings = settings
	tx.topics.add(TopicSettings)
	return nil
}
