package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"gitlab.com/yelinaung/taxi-ledger/internal/database"
	"gitlab.com/yelinaung/taxi-ledger/internal/models"
	"gitlab.com/yelinaung/taxi-ledger/internal/repository"
)

// Postgres is a Store backed by the repositories.
//
// Updates are serialized in-process so that broker versions follow commit
// order. Views run in read-only repeatable-read transactions and never block
// on updates.
type Postgres struct {
	db     database.TxBeginner
	broker *Broker
	mu     sync.Mutex
}

// NewPostgres creates a store on top of a pool.
func NewPostgres(db database.TxBeginner) *Postgres {
	return &Postgres{db: db, broker: NewBroker()}
}

var _ Store = (*Postgres)(nil)

// Changes returns the store's broker.
func (p *Postgres) Changes() *Broker {
	return p.broker
}

// View runs fn inside a read-only snapshot transaction.
func (p *Postgres) View(ctx context.Context, fn func(Reader) error) error {
	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(newPostgresTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit read transaction: %w", err)
	}
	return nil
}

// Update runs fn inside a read-write transaction and publishes the touched
// topics after commit.
func (p *Postgres) Update(ctx context.Context, fn func(Writer) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, err := p.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	w := newPostgresTx(tx)
	w.topics = make(topicSet)
	if err := fn(w); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", mapConstraint(err))
	}
	if len(w.topics) > 0 {
		p.broker.Publish(w.topics.list())
	}
	return nil
}

// mapConstraint turns unique and check violations into ErrConflict.
func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "23514":
			return fmt.Errorf("%w: %w", ErrConflict, err)
		case "23503":
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		}
	}
	return err
}

type postgresTx struct {
	shifts       *repository.ShiftRepository
	jobs         *repository.JobRepository
	expenses     *repository.ExpenseRepository
	recurring    *repository.RecurringExpenseRepository
	installments *repository.InstallmentRepository
	settings     *repository.SettingsRepository
	topics       topicSet
}

func newPostgresTx(tx pgx.Tx) *postgresTx {
	return &postgresTx{
		shifts:       repository.NewShiftRepository(tx),
		jobs:         repository.NewJobRepository(tx),
		expenses:     repository.NewExpenseRepository(tx),
		recurring:    repository.NewRecurringExpenseRepository(tx),
		installments: repository.NewInstallmentRepository(tx),
		settings:     repository.NewSettingsRepository(tx),
	}
}

// touch records topics when err is nil and maps constraint errors.
func (t *postgresTx) touch(err error, topics ...Topic) error {
	if err != nil {
		return mapConstraint(err)
	}
	t.topics.add(topics...)
	return nil
}

func (t *postgresTx) ActiveShift(ctx context.Context) (*models.Shift, error) {
	return t.shifts.GetActive(ctx)
}

func (t *postgresTx) Shift(ctx context.Context, id int64) (*models.Shift, error) {
	return t.shifts.GetByID(ctx, id)
}

func (t *postgresTx) Job(ctx context.Context, id int64) (*models.Job, error) {
	return t.jobs.GetByID(ctx, id)
}

func (t *postgresTx) JobsForShift(ctx context.Context, shiftID int64) ([]models.Job, error) {
	return t.jobs.GetByShiftID(ctx, shiftID)
}

func (t *postgresTx) UnpaidJobs(ctx context.Context) ([]models.Job, error) {
	return t.jobs.GetUnpaid(ctx)
}

func (t *postgresTx) ShiftSummaries(ctx context.Context) ([]models.ShiftSummary, error) {
	return t.shifts.GetSummaries(ctx)
}

func (t *postgresTx) ShiftSummariesInRange(ctx context.Context, start, end time.Time) ([]models.ShiftSummary, error) {
	return t.shifts.GetSummariesByDateRange(ctx, start, end)
}

func (t *postgresTx) Expense(ctx context.Context, id int64) (*models.Expense, error) {
	return t.expenses.GetByID(ctx, id)
}

func (t *postgresTx) Expenses(ctx context.Context) ([]models.Expense, error) {
	return t.expenses.GetAll(ctx)
}

func (t *postgresTx) ExpensesInRange(ctx context.Context, start, end time.Time) ([]models.Expense, error) {
	return t.expenses.GetByDateRange(ctx, start, end)
}

func (t *postgresTx) RecurringExpense(ctx context.Context, id int64) (*models.RecurringExpense, error) {
	return t.recurring.GetByID(ctx, id)
}

func (t *postgresTx) RecurringExpenses(ctx context.Context) ([]models.RecurringExpense, error) {
	return t.recurring.GetAll(ctx)
}

func (t *postgresTx) Installment(ctx context.Context, id int64) (*models.Installment, error) {
	return t.installments.GetByID(ctx, id)
}

func (t *postgresTx) Installments(ctx context.Context) ([]models.Installment, error) {
	return t.installments.GetAll(ctx)
}

func (t *postgresTx) Settings(ctx context.Context) (models.Settings, error) {
	return t.settings.Get(ctx)
}

func (t *postgresTx) InsertShift(ctx context.Context, shift *models.Shift) error {
	return t.touch(t.shifts.Create(ctx, shift), TopicShifts)
}

func (t *postgresTx) UpdateShift(ctx context.Context, shift *models.Shift) error {
	return t.touch(t.shifts.Update(ctx, shift), TopicShifts)
}

func (t *postgresTx) DeleteShift(ctx context.Context, id int64) error {
	return t.touch(t.shifts.Delete(ctx, id), TopicShifts, TopicJobs)
}

func (t *postgresTx) InsertJob(ctx context.Context, job *models.Job) error {
	return t.touch(t.jobs.Create(ctx, job), TopicJobs)
}

func (t *postgresTx) UpdateJob(ctx context.Context, job *models.Job) error {
	return t.touch(t.jobs.Update(ctx, job), TopicJobs)
}

func (t *postgresTx) DeleteJob(ctx context.Context, id int64) error {
	return t.touch(t.jobs.Delete(ctx, id), TopicJobs)
}

func (t *postgresTx) InsertExpense(ctx context.Context, expense *models.Expense) error {
	return t.touch(t.expenses.Create(ctx, expense), TopicExpenses)
}

func (t *postgresTx) UpdateExpense(ctx context.Context, expense *models.Expense) error {
	return t.touch(t.expenses.Update(ctx, expense), TopicExpenses)
}

func (t *postgresTx) DeleteExpense(ctx context.Context, id int64) error {
	return t.touch(t.expenses.Delete(ctx, id), TopicExpenses)
}

func (t *postgresTx) InsertRecurringExpense(ctx context.Context, rec *models.RecurringExpense) error {
	return t.touch(t.recurring.Create(ctx, rec), TopicRecurring)
}

func (t *postgresTx) UpdateRecurringExpense(ctx context.Context, rec *models.RecurringExpense) error {
	return t.touch(t.recurring.Update(ctx, rec), TopicRecurring)
}

func (t *postgresTx) DeleteRecurringExpense(ctx context.Context, id int64) error {
	return t.touch(t.recurring.Delete(ctx, id), TopicRecurring)
}

func (t *postgresTx) InsertInstallment(ctx context.Context, inst *models.Installment) error {
	return t.touch(t.installments.Create(ctx, inst), TopicInstallments)
}

func (t *postgresTx) UpdateInstallment(ctx context.Context, inst *models.Installment) error {
	return t.touch(t.installments.Update(ctx, inst), TopicInstallments)
}

// DeleteInstallment also touches expenses because the foreign key unlinks them.
func (t *postgresTx) DeleteInstallment(ctx context.Context, id int64) error {
	return t.touch(t.installments.Delete(ctx, id), TopicInstallments, TopicExpenses)
}

func (t *postgresTx) SaveSettings(ctx context.Context, settings models.Settings) error {
	return t.touch(t.settings.Save(ctx, settings), TopicSettings)
}
