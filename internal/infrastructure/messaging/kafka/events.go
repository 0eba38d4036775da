package kafka

import (
	"context"

	"github.com/google/uuid"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/pkg/errors"
	"github.com/turtacn/FamilyScope/pkg/types/common"
)

// EventPublisher turns family events into envelopes on their topics.  It
// serves as an enrichment observer, as the importer's progress publisher,
// and as the API's import request producer.
type EventPublisher struct {
	producer publisher
	topics   Topics
	source   string
	logger   logging.Logger
}

func NewEventPublisher(p *Producer, topics Topics, source string, log logging.Logger) *EventPublisher {
	return newEventPublisher(p, topics, source, log)
}

func newEventPublisher(p publisher, topics Topics, source string, log logging.Logger) *EventPublisher {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &EventPublisher{producer: p, topics: topics, source: source, logger: log.Named("event_publisher")}
}

// OnStage publishes a StageChangedEvent keyed by record id.
func (p *EventPublisher) OnStage(ctx context.Context, from family.Stage, r family.Record) error {
	return p.publish(ctx, p.topics.Stage, r.ID, family.NewStageChangedEvent(from, r))
}

// PublishProgress publishes e keyed by job id.
func (p *EventPublisher) PublishProgress(ctx context.Context, e *family.ImportProgressEvent) error {
	return p.publish(ctx, p.topics.Progress, e.JobID, e)
}

// RequestImport queues a batch import for a worker and returns its job id.
// Requests are keyed by session so one session's imports stay in order.
func (p *EventPublisher) RequestImport(ctx context.Context, session string, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", errors.InvalidParam("no identifiers to import")
	}
	jobID := uuid.New().String()
	if err := p.publish(ctx, p.topics.Import, session, family.NewImportRequestedEvent(jobID, session, ids)); err != nil {
		return "", err
	}
	p.logger.Info("import requested", logging.String("job_id", jobID),
		logging.String("session", session), logging.Int("total", len(ids)))
	return jobID, nil
}

// Close closes the underlying producer.
func (p *EventPublisher) Close() error { return p.producer.Close() }

func (p *EventPublisher) publish(ctx context.Context, topic, key string, e common.DomainEvent) error {
	env, err := NewEventEnvelope(e, p.source)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(topic, key)
	if err != nil {
		return err
	}
	return p.producer.Publish(ctx, msg)
}

// ─────────────────────────────────────────────────────────────────────────────
// Import request consumption
// ─────────────────────────────────────────────────────────────────────────────

// ImportRunner executes one queued import.
type ImportRunner func(ctx context.Context, req *family.ImportRequestedEvent) error

// NewImportHandler decodes import requests and hands them to run.  Messages
// of another event type and malformed payloads are logged and dropped; only
// errors from run are returned for retry.
func NewImportHandler(run ImportRunner, log logging.Logger) MessageHandler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	log = log.Named("import_handler")
	return func(ctx context.Context, msg *Message) error {
		env, err := MessageToEventEnvelope(msg)
		if err != nil {
			log.Warn("dropping undecodable message", logging.Int64("offset", msg.Offset), logging.Err(err))
			return nil
		}
		if env.EventType != family.EventImportRequested {
			log.Debug("ignoring event", logging.String("event_type", env.EventType))
			return nil
		}
		var req family.ImportRequestedEvent
		if err := env.DecodePayload(&req); err != nil {
			log.Warn("dropping malformed import request", logging.String("event_id", env.EventID), logging.Err(err))
			return nil
		}
		if req.JobID == "" || len(req.Identifiers) == 0 {
			log.Warn("dropping empty import request", logging.String("event_id", env.EventID))
			return nil
		}
		return run(ctx, &req)
	}
}

//Personal.AI order the ending
