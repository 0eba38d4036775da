package importer

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/pkg/errors"
)

// JobRunner runs one import job to completion.  family.Service.ImportJob
// has this shape.
type JobRunner func(ctx context.Context, jobID string, ids []string) (*Report, error)

// LocalQueue runs queued imports on goroutines of the current process.  It
// backs async imports when no broker is configured.
type LocalQueue struct {
	run    JobRunner
	logger logging.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewLocalQueue creates a LocalQueue.
func NewLocalQueue(run JobRunner, logger logging.Logger) *LocalQueue {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &LocalQueue{run: run, logger: logger.Named("import_queue"), ctx: ctx, cancel: cancel}
}

// RequestImport starts the job and returns its id at once.  The job outlives
// the request that queued it.  session is accepted for parity with the
// broker-backed queue; the runner already knows its session.
func (q *LocalQueue) RequestImport(_ context.Context, session string, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", errors.InvalidParam("import request carries no identifiers")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", errors.New(errors.ErrCodeServiceUnavailable, "import queue is closed")
	}

	jobID := uuid.New().String()
	ids = append([]string(nil), ids...)
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		log := q.logger.With(logging.String("job_id", jobID), logging.String("session", session))
		if _, err := q.run(q.ctx, jobID, ids); err != nil {
			log.Warn("queued import failed", logging.Err(err))
			return
		}
		log.Debug("queued import done")
	}()
	return jobID, nil
}

// Close cancels running jobs and waits for them to return.
func (q *LocalQueue) Close() error {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cancel()
	q.wg.Wait()
	return nil
}

//Personal.AI order the ending
