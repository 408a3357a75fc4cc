// Package ledger is the record store behind the engine.
//
// A Store offers two entry points. View runs a read function against one
// consistent snapshot, and Update runs a write function inside one
// transaction. Every committed Update publishes a Change on the store's
// Broker naming the topics it touched, with versions increasing in commit
// order. Derived views subscribe to the Broker and recompute from a fresh
// View when a relevant topic changes.
package ledger

import (
	"context"
	"errors"
	"slices"
	"time"

	"gitlab.com/yelinaung/taxi-ledger/internal/models"
	"gitlab.com/yelinaung/taxi-ledger/internal/repository"
)

// Topic names a family of records a Change can touch.
type Topic string

// Record topics.
const (
	TopicShifts       Topic = "shifts"
	TopicJobs         Topic = "jobs"
	TopicExpenses     Topic = "expenses"
	TopicRecurring    Topic = "recurring"
	TopicInstallments Topic = "installments"
	TopicSettings     Topic = "settings"
)

// AllTopics lists every topic.
var AllTopics = []Topic{TopicShifts, TopicJobs, TopicExpenses, TopicRecurring, TopicInstallments, TopicSettings}

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = repository.ErrNotFound

	// ErrConflict is returned when a write would break a store constraint,
	// such as a second active shift.
	ErrConflict = errors.New("ledger constraint violated")
)

// Change describes one committed Update.
type Change struct {
	Version uint64
	Topics  []Topic
}

// Touches reports whether the change affected any of the given topics.
func (c Change) Touches(topics ...Topic) bool {
	for _, t := range topics {
		if slices.Contains(c.Topics, t) {
			return true
		}
	}
	return false
}

// merge folds a newer change into c.
func (c Change) merge(newer Change) Change {
	out := Change{Version: max(c.Version, newer.Version)}
	set := make(topicSet)
	set.add(c.Topics...)
	set.add(newer.Topics...)
	out.Topics = set.list()
	return out
}

// Reader is read access to one consistent snapshot.
type Reader interface {
	// ActiveShift returns the running shift, or nil when there is none.
	ActiveShift(ctx context.Context) (*models.Shift, error)
	Shift(ctx context.Context, id int64) (*models.Shift, error)
	Job(ctx context.Context, id int64) (*models.Job, error)
	JobsForShift(ctx context.Context, shiftID int64) ([]models.Job, error)
	UnpaidJobs(ctx context.Context) ([]models.Job, error)
	// ShiftSummaries returns every shift with job totals, newest first.
	ShiftSummaries(ctx context.Context) ([]models.ShiftSummary, error)
	// ShiftSummariesInRange filters by shift start time, inclusive on both ends.
	ShiftSummariesInRange(ctx context.Context, start, end time.Time) ([]models.ShiftSummary, error)
	Expense(ctx context.Context, id int64) (*models.Expense, error)
	// Expenses returns every expense, newest first.
	Expenses(ctx context.Context) ([]models.Expense, error)
	ExpensesInRange(ctx context.Context, start, end time.Time) ([]models.Expense, error)
	RecurringExpense(ctx context.Context, id int64) (*models.RecurringExpense, error)
	RecurringExpenses(ctx context.Context) ([]models.RecurringExpense, error)
	Installment(ctx context.Context, id int64) (*models.Installment, error)
	Installments(ctx context.Context) ([]models.Installment, error)
	Settings(ctx context.Context) (models.Settings, error)
}

// Writer is read and write access inside one transaction. Insert methods set
// the record's ID.
type Writer interface {
	Reader

	InsertShift(ctx context.Context, shift *models.Shift) error
	UpdateShift(ctx context.Context, shift *models.Shift) error
	DeleteShift(ctx context.Context, id int64) error

	InsertJob(ctx context.Context, job *models.Job) error
	UpdateJob(ctx context.Context, job *models.Job) error
	DeleteJob(ctx context.Context, id int64) error

	InsertExpense(ctx context.Context, expense *models.Expense) error
	UpdateExpense(ctx context.Context, expense *models.Expense) error
	DeleteExpense(ctx context.Context, id int64) error

	InsertRecurringExpense(ctx context.Context, rec *models.RecurringExpense) error
	UpdateRecurringExpense(ctx context.Context, rec *models.RecurringExpense) error
	DeleteRecurringExpense(ctx context.Context, id int64) error

	InsertInstallment(ctx context.Context, inst *models.Installment) error
	UpdateInstallment(ctx context.Context, inst *models.Installment) error
	DeleteInstallment(ctx context.Context, id int64) error

	SaveSettings(ctx context.Context, settings models.Settings) error
}

// Store is a transactional ledger with change notification.
// Functions passed to View and Update must not call back into the store.
type Store interface {
	View(ctx context.Context, fn func(Reader) error) error
	Update(ctx context.Context, fn func(Writer) error) error
	Changes() *Broker
}

type topicSet map[Topic]struct{}

func (s topicSet) add(topics ...Topic) {
	for _, t := range topics {
		s[t] = struct{}{}
	}
}

// list returns the topics in AllTopics order.
func (s topicSet) list() []Topic {
	out := make([]Topic, 0, len(s))
	for _, t := range AllTopics {
		if _, ok := s[t]; ok {
			out = append(out, t)
		}
	}
	return out
}
