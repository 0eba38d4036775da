package postgres

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/FamilyScope/internal/application/importer"
	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

// queryExecutor is the subset of *pgxpool.Pool used here.
type queryExecutor interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Ping(ctx context.Context) error
}

// ─────────────────────────────────────────────────────────────────────────────
// Family sessions
// ─────────────────────────────────────────────────────────────────────────────

const (
	selectSessionSQL = `SELECT data, version FROM family_sessions WHERE session_key = $1`
	insertSessionSQL = `INSERT INTO family_sessions (session_key, version, data, updated_at)
		VALUES ($1, 1, $2, $3) ON CONFLICT (session_key) DO NOTHING`
	updateSessionSQL = `UPDATE family_sessions SET data = $2, version = version + 1, updated_at = $3
		WHERE session_key = $1 AND version = $4`
)

// FamilyStore keeps each session's collection as one JSONB row in
// family_sessions.  Save is a conditional insert or update on the version
// column.
type FamilyStore struct {
	db      queryExecutor
	session string
	metrics *prometheus.AppMetrics
	logger  logging.Logger
}

func NewFamilyStore(db queryExecutor, session string, metrics *prometheus.AppMetrics, log logging.Logger) *FamilyStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FamilyStore{db: db, session: session, metrics: metrics, logger: log.Named("postgres_family_store")}
}

func (s *FamilyStore) Ping(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "database health check failed")
	}
	return nil
}

func (s *FamilyStore) Load(ctx context.Context) (*family.Collection, error) {
	start := time.Now()
	defer func() { s.metrics.RecordStoreOp("postgres", "load", time.Since(start)) }()

	var (
		data    []byte
		version int64
	)
	err := s.db.QueryRow(ctx, selectSessionSQL, s.session).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return family.NewCollection(), nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load family collection")
	}
	c := family.NewCollection()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "stored family collection is corrupt").
			WithDetail("session=" + s.session)
	}
	if c.Records == nil {
		c.Records = []family.Record{}
	}
	c.Version = version
	return c, nil
}

func (s *FamilyStore) Save(ctx context.Context, c *family.Collection) error {
	start := time.Now()
	defer func() { s.metrics.RecordStoreOp("postgres", "save", time.Since(start)) }()

	next := c.Clone()
	next.Version = c.Version + 1
	next.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(next)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode family collection")
	}

	var tag pgconn.CommandTag
	if c.Version == 0 {
		tag, err = s.db.Exec(ctx, insertSessionSQL, s.session, data, next.UpdatedAt)
	} else {
		tag, err = s.db.Exec(ctx, updateSessionSQL, s.session, data, next.UpdatedAt, c.Version)
	}
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save family collection")
	}
	if tag.RowsAffected() == 0 {
		return errors.Conflict("family collection version mismatch").
			WithDetail("session=" + s.session)
	}

	c.Version = next.Version
	c.UpdatedAt = next.UpdatedAt
	s.logger.Debug("saved family collection", logging.Int("records", c.Len()), logging.Int64("version", c.Version))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Import jobs
// ─────────────────────────────────────────────────────────────────────────────

const (
	upsertJobSQL = `INSERT INTO import_jobs
		(job_id, session_key, total, added, duplicates, failed, skipped, cancelled, report, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (job_id) DO UPDATE SET
			added = EXCLUDED.added, duplicates = EXCLUDED.duplicates, failed = EXCLUDED.failed,
			skipped = EXCLUDED.skipped, cancelled = EXCLUDED.cancelled, report = EXCLUDED.report,
			finished_at = EXCLUDED.finished_at`
	selectJobSQL = `SELECT report FROM import_jobs WHERE job_id = $1`
)

// JobStore keeps finished import reports in import_jobs.
type JobStore struct {
	db      queryExecutor
	session string
}

func NewJobStore(db queryExecutor, session string) *JobStore {
	return &JobStore{db: db, session: session}
}

var _ importer.JobStore = (*JobStore)(nil)

func (s *JobStore) SaveReport(ctx context.Context, r *importer.Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode import report")
	}
	_, err = s.db.Exec(ctx, upsertJobSQL, r.JobID, s.session, r.Total, r.Added, r.Duplicates, r.Failed,
		r.Skipped, r.Cancelled, data, r.StartedAt, r.FinishedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save import report").WithDetail("job_id=" + r.JobID)
	}
	return nil
}

func (s *JobStore) Report(ctx context.Context, jobID string) (*importer.Report, error) {
	var data []byte
	err := s.db.QueryRow(ctx, selectJobSQL, jobID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errors.NotFound("import job not found").WithDetail("job_id=" + jobID)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to load import report")
	}
	var r importer.Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "stored import report is corrupt")
	}
	return &r, nil
}

//Personal.AI order the ending
