// Package importer adds a list of family candidates one by one.
package importer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

// DefaultPacing is the delay inserted between two consecutive items.
const DefaultPacing = 1500 * time.Millisecond

// Status is the outcome of one import item.
type Status string

const (
	StatusAdded     Status = "added"
	StatusDuplicate Status = "duplicate"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Adder adds one identifier to the family and runs its enrichment.  The
// family service implements it.
type Adder interface {
	AddMember(ctx context.Context, raw string) (rec family.Record, added bool, err error)
}

// SessionLock admits one import per session.  redis.DistributedLock and
// LocalLock implement it.
type SessionLock interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// ProgressPublisher receives one event per finished item.
type ProgressPublisher interface {
	PublishProgress(ctx context.Context, e *family.ImportProgressEvent) error
}

// JobStore keeps finished reports for lookup by job id.
type JobStore interface {
	SaveReport(ctx context.Context, r *Report) error
	Report(ctx context.Context, jobID string) (*Report, error)
}

// Outcome records what happened to one identifier.
type Outcome struct {
	Identifier   string `json:"identifier"`
	Status       Status `json:"status"`
	RecordID     string `json:"record_id,omitempty"`
	PatentNumber string `json:"patent_number,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	Error        string `json:"error,omitempty"`
}

// Report summarizes one ImportMany call.
type Report struct {
	JobID      string    `json:"job_id"`
	Total      int       `json:"total"`
	Added      int       `json:"added"`
	Duplicates int       `json:"duplicates"`
	Failed     int       `json:"failed"`
	Skipped    int       `json:"skipped"`
	Cancelled  bool      `json:"cancelled"`
	Outcomes   []Outcome `json:"outcomes"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

func (r *Report) record(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusAdded:
		r.Added++
	case StatusDuplicate:
		r.Duplicates++
	case StatusFailed:
		r.Failed++
	case StatusSkipped:
		r.Skipped++
	}
}

// Importer runs batch imports for one session.
type Importer struct {
	adder     Adder
	lock      SessionLock
	store     family.Store
	publisher ProgressPublisher
	jobs      JobStore
	session   string
	pacing    atomic.Int64
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
	sleep     func(context.Context, time.Duration) error

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Option configures an Importer.
type Option func(*Importer)

// WithPacing overrides DefaultPacing.  Zero disables the delay.
func WithPacing(d time.Duration) Option { return func(i *Importer) { i.pacing.Store(int64(d)) } }

// WithLock replaces the in-process lock, e.g. with a Redis lock shared by
// several workers.
func WithLock(l SessionLock) Option { return func(i *Importer) { i.lock = l } }

// WithClearWatch makes the importer reload s before every item and stop when
// the family was cleared after the import started.
func WithClearWatch(s family.Store) Option { return func(i *Importer) { i.store = s } }

func WithProgressPublisher(p ProgressPublisher) Option {
	return func(i *Importer) { i.publisher = p }
}

// WithJobStore records every finished report in js.
func WithJobStore(js JobStore) Option { return func(i *Importer) { i.jobs = js } }

func WithSession(key string) Option { return func(i *Importer) { i.session = key } }

func WithMetrics(m *prometheus.AppMetrics) Option { return func(i *Importer) { i.metrics = m } }

// New creates an Importer.
func New(adder Adder, logger logging.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	i := &Importer{
		adder:   adder,
		lock:    NewLocalLock(),
		session: "default",
		logger:  logger.Named("importer"),
		sleep:   sleepCtx,
	}
	i.pacing.Store(int64(DefaultPacing))
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// SetPacing changes the inter-item delay for imports started afterwards and
// for the remaining items of a running one.
func (i *Importer) SetPacing(d time.Duration) {
	if d < 0 {
		d = 0
	}
	i.pacing.Store(int64(d))
}

// Pacing returns the current inter-item delay.
func (i *Importer) Pacing() time.Duration { return time.Duration(i.pacing.Load()) }

// Cancel stops the running import, if any, before its next item.
func (i *Importer) Cancel() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cancel == nil {
		return false
	}
	i.cancel()
	return true
}

// ImportMany adds ids strictly in order.  Item failures are recorded and do
// not stop the batch.  progress, when non-nil, is called after every item.
// Items not attempted because of cancellation are reported as skipped.
//
// A second import for the same session fails with PAT_012 while one is
// running.
func (i *Importer) ImportMany(ctx context.Context, ids []string, progress func(done, total int)) (*Report, error) {
	return i.ImportJob(ctx, uuid.New().String(), ids, progress)
}

// ImportJob is ImportMany with a caller-chosen job id.
func (i *Importer) ImportJob(ctx context.Context, jobID string, ids []string, progress func(done, total int)) (*Report, error) {
	ok, err := i.lock.TryLock(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeCacheError, "failed to acquire import lock")
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeImportInProgress, "an import is already running for this family").
			WithDetail("session=" + i.session)
	}
	defer func() {
		if err := i.lock.Unlock(context.Background()); err != nil {
			i.logger.Warn("failed to release import lock", logging.Err(err))
		}
	}()

	ctx, cancel := context.WithCancel(ctx)
	i.mu.Lock()
	i.cancel = cancel
	i.mu.Unlock()
	defer func() {
		i.mu.Lock()
		i.cancel = nil
		i.mu.Unlock()
		cancel()
	}()

	done := i.metrics.ImportStarted(i.session)
	defer done()

	report := &Report{JobID: jobID, Total: len(ids), Outcomes: make([]Outcome, 0, len(ids)), StartedAt: time.Now().UTC()}
	epoch, err := i.clearEpoch(ctx)
	if err != nil {
		return nil, err
	}
	log := i.logger.With(logging.String("job_id", jobID), logging.Int("total", len(ids)))
	log.Info("import started")

	for n, raw := range ids {
		if n > 0 && !i.stopped(ctx, epoch) {
			// a cancelled sleep is picked up by the check below
			_ = i.sleep(ctx, i.Pacing())
		}
		if i.stopped(ctx, epoch) {
			i.skipRest(report, ids[n:])
			break
		}

		o := i.importOne(ctx, raw)
		report.record(o)
		i.metrics.RecordImportItem(string(o.Status))
		if o.Status == StatusFailed {
			log.Warn("import item failed", logging.String("identifier", raw),
				logging.String("error_code", o.ErrorCode), logging.String("error", o.Error))
		}
		if progress != nil {
			progress(n+1, len(ids))
		}
		i.publish(ctx, jobID, o, n+1, len(ids))
	}

	report.FinishedAt = time.Now().UTC()
	log.Info("import finished", logging.Int("added", report.Added), logging.Int("failed", report.Failed),
		logging.Int("skipped", report.Skipped), logging.Bool("cancelled", report.Cancelled))
	if i.jobs != nil {
		if err := i.jobs.SaveReport(context.WithoutCancel(ctx), report); err != nil {
			log.Warn("failed to record import report", logging.Err(err))
		}
	}
	return report, nil
}

// Report returns the recorded report of a finished job.  Without a job store
// every job is unknown.
func (i *Importer) Report(ctx context.Context, jobID string) (*Report, error) {
	if i.jobs == nil {
		return nil, errors.NotFound("import job not found").WithDetail("job_id=" + jobID)
	}
	return i.jobs.Report(ctx, jobID)
}

func (i *Importer) skipRest(report *Report, rest []string) {
	report.Cancelled = true
	for _, raw := range rest {
		report.record(Outcome{Identifier: raw, Status: StatusSkipped})
		i.metrics.RecordImportItem(string(StatusSkipped))
	}
}

func (i *Importer) importOne(ctx context.Context, raw string) Outcome {
	rec, added, err := i.adder.AddMember(ctx, raw)
	if err != nil {
		return Outcome{Identifier: raw, Status: StatusFailed, ErrorCode: string(errors.GetCode(err)), Error: err.Error()}
	}
	o := Outcome{Identifier: raw, Status: StatusAdded, RecordID: rec.ID, PatentNumber: rec.PatentNumber.String()}
	switch {
	case !added:
		o.Status = StatusDuplicate
	case rec.Errored():
		// The record stays in the family for a later retry.
		o.Status = StatusFailed
		o.ErrorCode = string(errors.CodeClaimAnalysisFailed)
		o.Error = "enrichment failed at " + rec.FailedAt.String()
		if rec.LastError != nil {
			o.Error += ": " + *rec.LastError
		}
	}
	return o
}

func (i *Importer) publish(ctx context.Context, jobID string, o Outcome, done, total int) {
	if i.publisher == nil {
		return
	}
	number := o.PatentNumber
	if number == "" {
		number = o.Identifier
	}
	e := family.NewImportProgressEvent(jobID, number, string(o.Status), done, total)
	if err := i.publisher.PublishProgress(ctx, e); err != nil {
		i.logger.Warn("failed to publish import progress", logging.String("job_id", jobID), logging.Err(err))
	}
}

func (i *Importer) clearEpoch(ctx context.Context) (time.Time, error) {
	if i.store == nil {
		return time.Time{}, nil
	}
	c, err := i.store.Load(ctx)
	if err != nil {
		return time.Time{}, err
	}
	return c.ClearedAt, nil
}

func (i *Importer) stopped(ctx context.Context, epoch time.Time) bool {
	if ctx.Err() != nil {
		return true
	}
	if i.store == nil {
		return false
	}
	c, err := i.store.Load(ctx)
	if err != nil {
		i.logger.Warn("failed to check for family reset", logging.Err(err))
		return false
	}
	return !c.ClearedAt.Equal(epoch)
}

// ─────────────────────────────────────────────────────────────────────────────
// In-process job store
// ─────────────────────────────────────────────────────────────────────────────

// MemoryJobStore keeps reports in memory.
type MemoryJobStore struct {
	mu      sync.RWMutex
	reports map[string]*Report
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{reports: make(map[string]*Report)}
}

func (m *MemoryJobStore) SaveReport(_ context.Context, r *Report) error {
	cp := *r
	cp.Outcomes = append([]Outcome(nil), r.Outcomes...)
	m.mu.Lock()
	m.reports[r.JobID] = &cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryJobStore) Report(_ context.Context, jobID string) (*Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reports[jobID]
	if !ok {
		return nil, errors.NotFound("import job not found").WithDetail("job_id=" + jobID)
	}
	cp := *r
	return &cp, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// In-process lock
// ─────────────────────────────────────────────────────────────────────────────

// LocalLock is a SessionLock for a single process.
type LocalLock struct{ mu sync.Mutex }

func NewLocalLock() *LocalLock { return &LocalLock{} }

func (l *LocalLock) TryLock(context.Context) (bool, error) { return l.mu.TryLock(), nil }

func (l *LocalLock) Unlock(context.Context) error {
	l.mu.Unlock()
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

//Personal.AI order the ending
