package bootstrap

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FamilyScope/internal/config"
	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/internal/domain/patent"
	"github.com/turtacn/FamilyScope/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/internal/infrastructure/storage/local"
	"github.com/turtacn/FamilyScope/internal/intelligence/family_llm"
	"github.com/turtacn/FamilyScope/internal/testutil"
	"github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

type stubRegistry struct{ calls int }

func (s *stubRegistry) Name() string { return "registry" }

func (s *stubRegistry) FetchByID(_ context.Context, n ptypes.Number) (*patent.RegistryRecord, error) {
	s.calls++
	if n == "404" {
		return nil, errors.PatentNotFound(n.String())
	}
	return &patent.RegistryRecord{Number: n, Title: "Widget", Date: "2019-05-01", ClaimsText: "1. A widget."}, nil
}

type noDocuments struct{}

func (noDocuments) Name() string { return "documents" }

func (noDocuments) FetchDocument(context.Context, ptypes.Number) (*patent.Document, error) {
	return nil, nil
}

func echoAnalyzer() family_llm.Analyzer {
	return family_llm.AnalyzerFunc(func(context.Context, string, string) (string, error) {
		return "A widget with a lever.", nil
	})
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Store.Backend = config.BackendMemory
	cfg.Metrics.Enabled = true
	config.ApplyDefaults(cfg)
	cfg.Importer.PacingDelay = 0
	require.NoError(t, cfg.Validate())
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	opts = append([]Option{
		WithRegistrySource(&stubRegistry{}),
		WithDocumentSource(noDocuments{}),
		WithAnalyzer(echoAnalyzer()),
	}, opts...)
	app, err := New(context.Background(), cfg, logging.NewNopLogger(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNew_MemoryPipelineAddsMember(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	require.NotNil(t, app.Metrics)
	assert.Nil(t, app.Publisher)
	assert.Nil(t, app.Registry, "injected source replaces the adapter")

	res, err := app.Family.Add(context.Background(), "US 10,123,456 B2")
	require.NoError(t, err)
	assert.True(t, res.Added)
	assert.True(t, res.Degraded)
	assert.Equal(t, family.StageRelationshipResolved, res.Record.Stage)
	assert.Equal(t, family.RelationshipOriginal, res.Record.Relationship)

	c, err := app.Store.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
}

func TestNew_BuildsConfiguredAdapters(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Enabled = false
	app, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	assert.NotNil(t, app.Registry)
	assert.NotNil(t, app.Documents)
	assert.NotNil(t, app.Analyzer)
	assert.Nil(t, app.Metrics)
	assert.Empty(t, app.Pingers())
}

func TestNew_FileBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = config.BackendFile
	cfg.Store.FilePath = filepath.Join(t.TempDir(), "family.json")

	app := newTestApp(t, cfg)
	fs, ok := app.Store.(*local.FileStore)
	require.True(t, ok)
	assert.Equal(t, cfg.Store.FilePath, fs.Path())
}

func TestNew_BadSectionPattern(t *testing.T) {
	cfg := testConfig(t)
	cfg.Documents.ExcludePatterns = []string{"("}
	_, err := New(context.Background(), cfg, nil,
		WithRegistrySource(&stubRegistry{}), WithAnalyzer(echoAnalyzer()))
	assert.Error(t, err)
}

func TestNew_RedisBackendWithCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Store.Backend = config.BackendRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.Cache.Enabled = true
	cfg.Cache.RegistryTTL = time.Minute

	registry := &stubRegistry{}
	app := newTestApp(t, cfg, WithRegistrySource(registry))

	pingers := app.Pingers()
	assert.Contains(t, pingers, "store")
	assert.Contains(t, pingers, "redis")
	for name, p := range pingers {
		assert.NoError(t, p.Ping(context.Background()), name)
	}

	ctx := context.Background()
	_, err := app.Family.Candidates(ctx, "10123456")
	require.NoError(t, err)
	_, err = app.Family.Candidates(ctx, "10123456")
	require.NoError(t, err)
	assert.Equal(t, 1, registry.calls, "second lookup is served from the cache")
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Backend = config.BackendRedis
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.DialTimeout = 200 * time.Millisecond

	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	cfg := testConfig(t)
	app, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	next := *cfg
	next.Importer.PacingDelay = 3 * time.Second
	next.Log.Level = "debug"
	app.Reload(&next)

	assert.Equal(t, 3*time.Second, app.Family.Importer().Pacing())
}

func TestImportRunner(t *testing.T) {
	logger := testutil.NewRecordingLogger()
	app, err := New(context.Background(), testConfig(t), logger,
		WithRegistrySource(&stubRegistry{}), WithDocumentSource(noDocuments{}), WithAnalyzer(echoAnalyzer()))
	require.NoError(t, err)
	defer app.Close()
	run := app.ImportRunner()
	ctx := context.Background()

	require.NoError(t, run(ctx, family.NewImportRequestedEvent("job-other", "another_session", []string{"10123456"})))
	_, err = app.Family.ImportReport(ctx, "job-other")
	assert.Error(t, err, "requests for another session are dropped")
	dropped := logger.Find("warn", "another session")
	require.Len(t, dropped, 1)
	assert.Equal(t, "job-other", dropped[0].StringField("job_id"))

	require.NoError(t, run(ctx, family.NewImportRequestedEvent("job-1", app.Config.Store.SessionKey, []string{"10123456", "404"})))
	report, err := app.Family.ImportReport(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, 1, report.Failed)
	assert.True(t, logger.Has("info", "import job finished"))
}

func TestProducerAndConsumerConfig(t *testing.T) {
	kc := config.KafkaConfig{
		Brokers:       []string{"b1:9092"},
		GroupID:       "g",
		ImportTopic:   "family.import.requested",
		SASLMechanism: "PLAIN",
		SASLUsername:  "u",
		TLSEnabled:    true,
		TLSCAFile:     "/ca.pem",
	}
	p := ProducerConfig(kc)
	assert.True(t, p.SASLEnabled)
	assert.Equal(t, "/ca.pem", p.TLSCertPath)

	c := ConsumerConfig(kc, kafka.TopicsFromConfig(kc))
	assert.Equal(t, []string{"family.import.requested"}, c.Topics)
	assert.Equal(t, "family.import.requested.dlq", c.RetryConfig.DeadLetterTopic)
	assert.True(t, c.SASLEnabled)

	kc.SASLMechanism = ""
	assert.False(t, ProducerConfig(kc).SASLEnabled)
}

//Personal.AI order the ending
