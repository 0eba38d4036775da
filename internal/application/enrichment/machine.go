// Package enrichment drives a family record through its analysis stages.
// The transition rules live in the family domain; this package supplies the
// capability calls, persistence and publication around each step.
package enrichment

import (
	"context"
	"time"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

// Capability is the analysis surface the machine needs.  family_llm.Engine
// implements it.
type Capability interface {
	ExtractFirstClaim(ctx context.Context, claimsText string) (string, error)
	InventiveConcept(ctx context.Context, title, claim string) (string, error)
	Relationship(ctx context.Context, r family.Record, existing []family.Record) (family.Relationship, error)
}

// Observer receives the partial record after every applied transition.
type Observer interface {
	OnStage(ctx context.Context, from family.Stage, r family.Record) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, from family.Stage, r family.Record) error

func (f ObserverFunc) OnStage(ctx context.Context, from family.Stage, r family.Record) error {
	return f(ctx, from, r)
}

// Machine runs enrichment for records held in a family.Store.
type Machine struct {
	store      family.Store
	capability Capability
	observers  []Observer
	metrics    *prometheus.AppMetrics
	logger     logging.Logger
}

// Option configures a Machine.
type Option func(*Machine)

// WithObserver registers o.  Observers run in registration order.
func WithObserver(o Observer) Option {
	return func(m *Machine) { m.observers = append(m.observers, o) }
}

func WithMetrics(metrics *prometheus.AppMetrics) Option {
	return func(m *Machine) { m.metrics = metrics }
}

// NewMachine creates a Machine.
func NewMachine(store family.Store, capability Capability, logger logging.Logger, opts ...Option) *Machine {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	m := &Machine{store: store, capability: capability, logger: logger.Named("enrichment")}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Run advances the record with the given id until it reaches a terminal
// stage and returns its final state.
//
// A capability failure is not an error of Run: the record moves to errored
// and is returned.  Run fails only when the store fails, the record
// disappears, or ctx ends.  On cancellation the record keeps the last stage
// it completed so Resume can pick it up again.
func (m *Machine) Run(ctx context.Context, id string) (family.Record, error) {
	for {
		rec, done, err := m.step(ctx, id)
		if err != nil || done {
			return rec, err
		}
	}
}

// Resume is Run for a record left mid-way by an earlier process.  Errored
// records are returned unchanged; use Retry for those.
func (m *Machine) Resume(ctx context.Context, id string) (family.Record, error) {
	return m.Run(ctx, id)
}

// Retry rewinds an errored record to its last good stage and runs it again.
// A record left mid-way by an interrupted run is resumed as it is.
func (m *Machine) Retry(ctx context.Context, id string) (family.Record, error) {
	var rewound family.Record
	_, err := family.Mutate(ctx, m.store, func(c *family.Collection) error {
		rec, ok := c.Get(id)
		if !ok {
			return memberNotFound(id)
		}
		if rec.InProgress() {
			rewound = rec
			return nil
		}
		out, err := family.Rewind(rec)
		if err != nil {
			return err
		}
		rewound = out
		return c.Replace(out)
	})
	if err != nil {
		return family.Record{}, err
	}
	m.logger.Info("retrying enrichment", logging.RecordID(id), logging.Stage(rewound.Stage.String()))
	return m.Resume(ctx, id)
}

// ResumeAll runs every non-terminal record of the collection in order.  It
// returns the first store or context error; capability failures only mark
// their record.  Records removed or advanced by another process meanwhile
// are skipped.
func (m *Machine) ResumeAll(ctx context.Context) (int, error) {
	c, err := m.store.Load(ctx)
	if err != nil {
		return 0, err
	}
	resumed := 0
	for _, r := range c.Records {
		if !r.InProgress() {
			continue
		}
		if _, err := m.Resume(ctx, r.ID); err != nil {
			if errors.IsCode(err, errors.CodeFamilyMemberNotFound) || errors.IsCode(err, errors.ErrCodeEnrichmentStageInvalid) {
				continue
			}
			return resumed, err
		}
		resumed++
	}
	if resumed > 0 {
		m.logger.Info("resumed interrupted records", logging.Int("count", resumed))
	}
	return resumed, nil
}

// step performs one transition.  done is true once the record is terminal.
func (m *Machine) step(ctx context.Context, id string) (family.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return family.Record{}, false, errors.Wrap(err, errors.ErrCodeCancelled, "enrichment cancelled")
	}

	c, err := m.store.Load(ctx)
	if err != nil {
		return family.Record{}, false, err
	}
	rec, ok := c.Get(id)
	if !ok {
		return family.Record{}, false, memberNotFound(id)
	}
	next, ok := rec.Stage.Next()
	if !ok {
		return rec, true, nil
	}

	start := time.Now()
	res := m.execute(ctx, c, rec, next)
	if res.Err != nil && ctx.Err() != nil {
		return rec, false, errors.Wrap(ctx.Err(), errors.ErrCodeCancelled, "enrichment cancelled")
	}

	var updated family.Record
	_, err = family.Mutate(ctx, m.store, func(c *family.Collection) error {
		cur, ok := c.Get(id)
		if !ok {
			return memberNotFound(id)
		}
		out, err := family.Transition(cur, res)
		if err != nil {
			return err
		}
		updated = out
		return c.Replace(out)
	})
	if err != nil {
		return rec, false, err
	}

	m.metrics.RecordStageTransition(rec.Stage.String(), updated.Stage.String())
	if updated.Errored() {
		m.metrics.RecordError("enrichment", string(errors.GetCode(res.Err)))
		m.logger.Warn("enrichment stage failed",
			logging.RecordID(id), logging.PatentNumber(rec.PatentNumber.String()),
			logging.Stage(next.String()), logging.Err(res.Err))
	} else {
		m.logger.Debug("enrichment stage completed",
			logging.RecordID(id), logging.Stage(updated.Stage.String()),
			logging.Duration("elapsed", time.Since(start)))
	}
	m.publish(ctx, rec.Stage, updated)
	return updated, updated.Stage.IsTerminal(), nil
}

// execute calls the capability for the step that leads to next.
func (m *Machine) execute(ctx context.Context, c *family.Collection, rec family.Record, next family.Stage) family.StageResult {
	res := family.StageResult{Stage: next}
	switch next {
	case family.StageClaimExtracted:
		res.FirstIndependentClaim, res.Err = m.capability.ExtractFirstClaim(ctx, rec.AllClaimsText)
	case family.StageConceptGenerated:
		res.InventiveConcept, res.Err = m.capability.InventiveConcept(ctx, rec.Title, rec.FirstIndependentClaim)
	case family.StageRelationshipResolved:
		if rec.Founding {
			res.Relationship = family.RelationshipOriginal
			return res
		}
		existing := make([]family.Record, 0, c.Len())
		for _, r := range c.Records {
			if r.ID != rec.ID {
				existing = append(existing, r)
			}
		}
		res.Relationship, res.Err = m.capability.Relationship(ctx, rec, existing)
	}
	return res
}

func (m *Machine) publish(ctx context.Context, from family.Stage, r family.Record) {
	for _, o := range m.observers {
		if err := o.OnStage(ctx, from, r); err != nil {
			m.logger.Warn("stage observer failed", logging.RecordID(r.ID),
				logging.Stage(r.Stage.String()), logging.Err(err))
		}
	}
}

func memberNotFound(id string) error {
	return errors.New(errors.CodeFamilyMemberNotFound, "family member not found").WithDetail("record_id=" + id)
}

//Personal.AI order the ending
