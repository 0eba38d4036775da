// Package family provides the application service behind the CLI, the HTTP
// API and the worker: add, update, remove, clear, list and import family
// members.  Handlers call this package; it coordinates acquisition,
// enrichment and the collection store.
package family

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/FamilyScope/internal/application/acquisition"
	"github.com/turtacn/FamilyScope/internal/application/importer"
	domainFamily "github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

// Acquirer resolves a raw identifier.  acquisition.Orchestrator implements
// it.
type Acquirer interface {
	Acquire(ctx context.Context, raw string, existing domainFamily.Membership) (*acquisition.Result, error)
}

// Enricher drives records through their stages.  enrichment.Machine
// implements it.
type Enricher interface {
	Run(ctx context.Context, id string) (domainFamily.Record, error)
	Retry(ctx context.Context, id string) (domainFamily.Record, error)
}

// AddResult is the answer to Add.
type AddResult struct {
	Record     domainFamily.Record `json:"record"`
	Added      bool                `json:"added"`
	Candidates []ptypes.Number     `json:"candidates"`
	Degraded   bool                `json:"degraded"`
}

// Service is the family application service.
type Service struct {
	store    domainFamily.Store
	acquirer Acquirer
	enricher Enricher
	importer *importer.Importer
	session  string
	newID    func() string
	metrics  *prometheus.AppMetrics
	logger   logging.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithImporterOptions passes options to the importer the service owns.
func WithImporterOptions(opts ...importer.Option) Option {
	return func(s *Service) { s.importer = importer.New(s, s.logger, opts...) }
}

func WithSession(key string) Option { return func(s *Service) { s.session = key } }

func WithMetrics(m *prometheus.AppMetrics) Option { return func(s *Service) { s.metrics = m } }

// WithIDGenerator replaces uuid-based record ids.
func WithIDGenerator(fn func() string) Option { return func(s *Service) { s.newID = fn } }

// NewService creates a Service.  Unless WithImporterOptions is given the
// service owns an importer with default pacing that watches store for
// clears.
func NewService(store domainFamily.Store, acquirer Acquirer, enricher Enricher, logger logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	s := &Service{
		store:    store,
		acquirer: acquirer,
		enricher: enricher,
		session:  "patent_family",
		newID:    func() string { return uuid.New().String() },
		logger:   logger.Named("family_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.importer == nil {
		s.importer = importer.New(s, s.logger, importer.WithClearWatch(store),
			importer.WithSession(s.session), importer.WithMetrics(s.metrics))
	}
	return s
}

// Importer exposes the owned importer, e.g. for hot-reloading its pacing.
func (s *Service) Importer() *importer.Importer { return s.importer }

// ─────────────────────────────────────────────────────────────────────────────
// Add
// ─────────────────────────────────────────────────────────────────────────────

// Add acquires raw, stores it at stage raw and runs its enrichment.
//
// An identifier already in the family is a no-op: the stored record is
// returned with Added false and nothing is fetched.  Acquisition failures
// create no record.  When enrichment is interrupted (context or store
// failure) the record stays in the family at its last completed stage and
// the error is returned.
func (s *Service) Add(ctx context.Context, raw string) (*AddResult, error) {
	number, err := ptypes.Normalize(raw)
	if err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if existing, ok := c.FindByNumber(number); ok {
		s.logger.Debug("patent already in family", logging.PatentNumber(number.String()), logging.RecordID(existing.ID))
		return &AddResult{Record: existing, Added: false, Candidates: []ptypes.Number{}}, nil
	}

	res, err := s.acquirer.Acquire(ctx, raw, c)
	if err != nil {
		return nil, err
	}

	rec := res.NewRecord(s.newID())
	added := true
	c, err = domainFamily.Mutate(ctx, s.store, func(c *domainFamily.Collection) error {
		if existing, ok := c.FindByNumber(rec.PatentNumber); ok {
			rec, added = existing, false
			return nil
		}
		if err := c.Add(rec); err != nil {
			return err
		}
		rec, _ = c.Get(rec.ID)
		added = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.SetFamilySize(s.session, c.Len())

	out := &AddResult{Record: rec, Added: added, Candidates: res.Candidates, Degraded: res.Degraded}
	if !added {
		out.Candidates = []ptypes.Number{}
		return out, nil
	}
	s.logger.Info("patent added to family", logging.PatentNumber(rec.PatentNumber.String()),
		logging.RecordID(rec.ID), logging.Int("candidates", len(res.Candidates)), logging.Bool("degraded", res.Degraded))

	final, err := s.enricher.Run(ctx, rec.ID)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnknown, "enrichment interrupted").
			WithDetail("record_id=" + rec.ID)
	}
	out.Record = final
	return out, nil
}

// AddMember implements importer.Adder.
func (s *Service) AddMember(ctx context.Context, raw string) (domainFamily.Record, bool, error) {
	res, err := s.Add(ctx, raw)
	if err != nil {
		return domainFamily.Record{}, false, err
	}
	return res.Record, res.Added, nil
}

// Candidates acquires raw without adding it and returns the filtered
// candidate set.
func (s *Service) Candidates(ctx context.Context, raw string) (*acquisition.Result, error) {
	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return s.acquirer.Acquire(ctx, raw, c)
}

// ─────────────────────────────────────────────────────────────────────────────
// Members
// ─────────────────────────────────────────────────────────────────────────────

// List returns the current collection.
func (s *Service) List(ctx context.Context) (*domainFamily.Collection, error) {
	c, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.metrics.SetFamilySize(s.session, c.Len())
	return c, nil
}

// Get returns one member by record id or, failing that, by patent number.
func (s *Service) Get(ctx context.Context, ref string) (domainFamily.Record, error) {
	c, err := s.store.Load(ctx)
	if err != nil {
		return domainFamily.Record{}, err
	}
	return Resolve(c, ref)
}

// Update merges patch into the member with the given id.
func (s *Service) Update(ctx context.Context, id string, patch domainFamily.Patch) (domainFamily.Record, error) {
	if patch.IsEmpty() {
		return domainFamily.Record{}, errors.InvalidParam("update carries no fields")
	}
	var updated domainFamily.Record
	_, err := domainFamily.Mutate(ctx, s.store, func(c *domainFamily.Collection) error {
		r, err := c.Update(id, patch)
		updated = r
		return err
	})
	if err != nil {
		return domainFamily.Record{}, err
	}
	s.logger.Info("family member updated", logging.RecordID(id))
	return updated, nil
}

// Remove deletes one member.  Other members keep their relationships.
func (s *Service) Remove(ctx context.Context, id string) (domainFamily.Record, error) {
	var removed domainFamily.Record
	c, err := domainFamily.Mutate(ctx, s.store, func(c *domainFamily.Collection) error {
		r, err := c.Remove(id)
		removed = r
		return err
	})
	if err != nil {
		return domainFamily.Record{}, err
	}
	s.metrics.SetFamilySize(s.session, c.Len())
	s.logger.Info("family member removed", logging.RecordID(id), logging.PatentNumber(removed.PatentNumber.String()))
	return removed, nil
}

// Clear empties the family and stops a running import before its next item.
func (s *Service) Clear(ctx context.Context) error {
	cancelled := s.importer.Cancel()
	_, err := domainFamily.Mutate(ctx, s.store, func(c *domainFamily.Collection) error {
		c.Clear()
		return nil
	})
	if err != nil {
		return err
	}
	s.metrics.SetFamilySize(s.session, 0)
	s.logger.Info("family cleared", logging.Bool("import_cancelled", cancelled))
	return nil
}

// Retry re-runs the failed stage of an errored member, or continues one
// left mid-way by an interrupted run.
func (s *Service) Retry(ctx context.Context, id string) (domainFamily.Record, error) {
	return s.enricher.Retry(ctx, id)
}

// ─────────────────────────────────────────────────────────────────────────────
// Import
// ─────────────────────────────────────────────────────────────────────────────

// Import adds ids one by one through the owned importer.
func (s *Service) Import(ctx context.Context, ids []string, progress func(done, total int)) (*importer.Report, error) {
	start := time.Now()
	report, err := s.importer.ImportMany(ctx, ids, progress)
	if err != nil {
		return nil, err
	}
	logging.LogOperationDuration(s.logger, "import", start, logging.Int("items", len(ids)))
	return report, nil
}

// ImportJob is Import under a caller-chosen job id, used by the worker.
func (s *Service) ImportJob(ctx context.Context, jobID string, ids []string) (*importer.Report, error) {
	return s.importer.ImportJob(ctx, jobID, ids, nil)
}

// ImportReport returns the recorded report of a finished import job.
func (s *Service) ImportReport(ctx context.Context, jobID string) (*importer.Report, error) {
	return s.importer.Report(ctx, jobID)
}

// Resolve finds a member by record id or by any raw form of its patent
// number.
func Resolve(c *domainFamily.Collection, ref string) (domainFamily.Record, error) {
	if r, ok := c.Get(ref); ok {
		return r, nil
	}
	if n, err := ptypes.Normalize(ref); err == nil {
		if r, ok := c.FindByNumber(n); ok {
			return r, nil
		}
	}
	return domainFamily.Record{}, errors.New(errors.CodeFamilyMemberNotFound, "family member not found").
		WithDetail("ref=" + ref)
}

//Personal.AI order the ending
