package importer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/infrastructure/storage/local"
	"github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

// fakeAdder adds records to a memory store; identifiers listed in fail are
// rejected with the mapped error.
type fakeAdder struct {
	mu    sync.Mutex
	store family.Store
	fail  map[string]error
	calls []string
	hook  func(raw string)
}

func (a *fakeAdder) AddMember(ctx context.Context, raw string) (family.Record, bool, error) {
	a.mu.Lock()
	a.calls = append(a.calls, raw)
	a.mu.Unlock()
	if a.hook != nil {
		a.hook(raw)
	}
	if err := a.fail[raw]; err != nil {
		return family.Record{}, false, err
	}
	number, err := ptypes.Normalize(raw)
	if err != nil {
		return family.Record{}, false, err
	}
	var rec family.Record
	added := false
	_, err = family.Mutate(ctx, a.store, func(c *family.Collection) error {
		if existing, ok := c.FindByNumber(number); ok {
			rec, added = existing, false
			return nil
		}
		rec = family.NewRecord("id-"+number.String(), number, "", "")
		added = true
		return c.Add(rec)
	})
	return rec, added, err
}

type recordedSleep struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (s *recordedSleep) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	s.mu.Unlock()
	return ctx.Err()
}

type capturePublisher struct{ events []*family.ImportProgressEvent }

func (p *capturePublisher) PublishProgress(_ context.Context, e *family.ImportProgressEvent) error {
	p.events = append(p.events, e)
	return nil
}

func newTestImporter(adder Adder, opts ...Option) (*Importer, *recordedSleep) {
	imp := New(adder, nil, opts...)
	s := &recordedSleep{}
	imp.sleep = s.sleep
	return imp, s
}

func TestImportMany_IsolatesFailures(t *testing.T) {
	store := local.NewMemoryStore()
	adder := &fakeAdder{store: store, fail: map[string]error{"US 222,222": errors.PatentNotFound("222222")}}
	pub := &capturePublisher{}
	imp, sleeps := newTestImporter(adder, WithProgressPublisher(pub))

	var progress [][2]int
	report, err := imp.ImportMany(context.Background(), []string{"111111", "US 222,222", "333333"},
		func(done, total int) { progress = append(progress, [2]int{done, total}) })
	require.NoError(t, err)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Added)
	assert.Equal(t, 1, report.Failed)
	assert.False(t, report.Cancelled)
	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, StatusFailed, report.Outcomes[1].Status)
	assert.Equal(t, string(errors.ErrCodePatentNotFound), report.Outcomes[1].ErrorCode)

	c, _ := store.Load(context.Background())
	assert.Equal(t, 2, c.Len())

	assert.Equal(t, [][2]int{{1, 3}, {2, 3}, {3, 3}}, progress)
	assert.Equal(t, []time.Duration{DefaultPacing, DefaultPacing}, sleeps.waits, "pacing only between items")
	require.Len(t, pub.events, 3)
	assert.Equal(t, "failed", pub.events[1].Outcome)
	assert.Equal(t, report.JobID, pub.events[2].JobID)
}

func TestImportMany_Duplicates(t *testing.T) {
	store := local.NewMemoryStore()
	imp, _ := newTestImporter(&fakeAdder{store: store}, WithPacing(0))

	report, err := imp.ImportMany(context.Background(), []string{"111111", "US111111", "111,111"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 2, report.Duplicates)
}

func TestImportMany_ContextCancelSkipsRest(t *testing.T) {
	store := local.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	adder := &fakeAdder{store: store, hook: func(raw string) {
		if raw == "222222" {
			cancel()
		}
	}}
	imp, _ := newTestImporter(adder)

	report, err := imp.ImportMany(ctx, []string{"111111", "222222", "333333", "444444"}, nil)
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, StatusSkipped, report.Outcomes[3].Status)
	assert.Equal(t, []string{"111111", "222222"}, adder.calls)
}

func TestImportMany_ClearStopsImport(t *testing.T) {
	store := local.NewMemoryStore()
	adder := &fakeAdder{store: store}
	adder.hook = func(raw string) {
		if raw == "222222" {
			_, err := family.Mutate(context.Background(), store, func(c *family.Collection) error {
				c.Clear()
				return nil
			})
			require.NoError(t, err)
		}
	}
	imp, _ := newTestImporter(adder, WithClearWatch(store))

	report, err := imp.ImportMany(context.Background(), []string{"111111", "222222", "333333"}, nil)
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, []string{"111111", "222222"}, adder.calls)
}

func TestImportMany_CancelMethod(t *testing.T) {
	imp, _ := newTestImporter(&fakeAdder{store: local.NewMemoryStore()})

	report, err := imp.ImportMany(context.Background(), []string{"111111", "222222"}, func(done, _ int) {
		if done == 1 {
			assert.True(t, imp.Cancel())
		}
	})
	require.NoError(t, err)
	assert.True(t, report.Cancelled)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Skipped)
	assert.False(t, imp.Cancel(), "nothing left to cancel")
}

func TestImportMany_OnePerSession(t *testing.T) {
	store := local.NewMemoryStore()
	var imp *Importer
	var nested error
	adder := &fakeAdder{store: store, hook: func(string) {
		_, nested = imp.ImportMany(context.Background(), []string{"999999"}, nil)
	}}
	imp, _ = newTestImporter(adder)

	_, err := imp.ImportMany(context.Background(), []string{"111111"}, nil)
	require.NoError(t, err)
	assert.True(t, errors.IsCode(nested, errors.ErrCodeImportInProgress))

	// the lock is released afterwards
	adder.hook = nil
	_, err = imp.ImportMany(context.Background(), []string{"222222"}, nil)
	assert.NoError(t, err)
}

func TestImportJob_RecordsReport(t *testing.T) {
	jobs := NewMemoryJobStore()
	imp, _ := newTestImporter(&fakeAdder{store: local.NewMemoryStore()}, WithPacing(0), WithJobStore(jobs))

	_, err := imp.Report(context.Background(), "job-1")
	assert.True(t, errors.IsNotFound(err))

	report, err := imp.ImportJob(context.Background(), "job-1", []string{"111111", "111111"}, nil)
	require.NoError(t, err)

	got, err := imp.Report(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, report.Added, got.Added)
	assert.Equal(t, 1, got.Duplicates)
	assert.Len(t, got.Outcomes, 2)

	_, err = New(&fakeAdder{}, nil).Report(context.Background(), "job-1")
	assert.True(t, errors.IsNotFound(err), "no job store configured")
}

func TestSetPacing(t *testing.T) {
	imp := New(&fakeAdder{}, nil)
	assert.Equal(t, DefaultPacing, imp.Pacing())
	imp.SetPacing(-time.Second)
	assert.Equal(t, time.Duration(0), imp.Pacing())
	imp.SetPacing(250 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, imp.Pacing())
}

func TestSleepCtx(t *testing.T) {
	assert.NoError(t, sleepCtx(context.Background(), 0))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleepCtx(ctx, time.Hour), context.Canceled)
}

//Personal.AI order the ending
