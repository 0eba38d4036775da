package redis

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/turtacn/FamilyScope/pkg/errors"
)

type CacheTestSuite struct {
	suite.Suite
	mock  redismock.ClientMock
	cache Cache
}

func (s *CacheTestSuite) SetupTest() {
	db, mock := redismock.NewClientMock()
	s.mock = mock
	client := NewClientFromUniversal(db, "test:", logging.NewNopLogger())
	s.cache = NewRedisCache(client, nil, WithPrefix("c:"), WithDefaultTTL(0), WithNullCacheTTL(time.Minute))
}

func (s *CacheTestSuite) TearDownTest() {
	assert.NoError(s.T(), s.mock.ExpectationsWereMet())
}

type testStruct struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func (s *CacheTestSuite) TestGet_Hit() {
	data, _ := json.Marshal(testStruct{Name: "John", Age: 30})
	s.mock.ExpectGet("test:c:k").SetVal(string(data))

	var out testStruct
	s.Require().NoError(s.cache.Get(context.Background(), "k", &out))
	s.Equal("John", out.Name)
}

func (s *CacheTestSuite) TestGet_Miss() {
	s.mock.ExpectGet("test:c:k").RedisNil()
	var out testStruct
	s.ErrorIs(s.cache.Get(context.Background(), "k", &out), ErrCacheMiss)
}

func (s *CacheTestSuite) TestGet_Null() {
	s.mock.ExpectGet("test:c:k").SetVal(nullMarker)
	var out testStruct
	s.ErrorIs(s.cache.Get(context.Background(), "k", &out), ErrCachedNull)
}

func (s *CacheTestSuite) TestGet_Error() {
	s.mock.ExpectGet("test:c:k").SetErr(assert.AnError)
	var out testStruct
	err := s.cache.Get(context.Background(), "k", &out)
	s.True(pkgerrors.IsCode(err, pkgerrors.ErrCodeCacheError))
}

func (s *CacheTestSuite) TestSetNull() {
	s.mock.ExpectSet("test:c:k", nullMarker, time.Minute).SetVal("OK")
	s.NoError(s.cache.SetNull(context.Background(), "k"))
}

func (s *CacheTestSuite) TestDelete() {
	s.mock.ExpectDel("test:c:a", "test:c:b").SetVal(2)
	s.NoError(s.cache.Delete(context.Background(), "a", "b"))
	s.NoError(s.cache.Delete(context.Background()))
}

func TestCacheTestSuite(t *testing.T) {
	suite.Run(t, new(CacheTestSuite))
}

func TestGetOrSet_LoadsOnceAndCaches(t *testing.T) {
	client, mr := newMiniClient(t)
	cache := NewRedisCache(client, nil)
	ctx := context.Background()

	var loads int32
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		return testStruct{Name: "Ada", Age: 36}, nil
	}

	var out testStruct
	require.NoError(t, cache.GetOrSet(ctx, "person", &out, time.Hour, loader))
	assert.Equal(t, "Ada", out.Name)
	assert.True(t, mr.Exists("famscope:cache:person"))

	var again testStruct
	require.NoError(t, cache.GetOrSet(ctx, "person", &again, time.Hour, loader))
	assert.Equal(t, out, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestGetOrSet_NilCachesNegative(t *testing.T) {
	client, mr := newMiniClient(t)
	cache := NewRedisCache(client, nil)

	var out testStruct
	err := cache.GetOrSet(context.Background(), "ghost", &out, 0, func(context.Context) (interface{}, error) { return nil, nil })
	assert.ErrorIs(t, err, ErrCachedNull)
	v, _ := mr.Get("famscope:cache:ghost")
	assert.Equal(t, nullMarker, v)
}

func TestGetOrSet_LoaderErrorNotCached(t *testing.T) {
	client, mr := newMiniClient(t)
	cache := NewRedisCache(client, nil)

	var out testStruct
	err := cache.GetOrSet(context.Background(), "k", &out, 0, func(context.Context) (interface{}, error) { return nil, assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)
	assert.False(t, mr.Exists("famscope:cache:k"))
}

func TestGetOrSet_ConcurrentCallersShareLoad(t *testing.T) {
	client, _ := newMiniClient(t)
	cache := NewRedisCache(client, nil)

	var loads int32
	release := make(chan struct{})
	loader := func(context.Context) (interface{}, error) {
		atomic.AddInt32(&loads, 1)
		<-release
		return testStruct{Name: "x"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out testStruct
			assert.NoError(t, cache.GetOrSet(context.Background(), "shared", &out, 0, loader))
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	assert.Equal(t, int32(1), atomic.LoadInt32(&loads))
}

func TestDeleteByPrefix(t *testing.T) {
	client, mr := newMiniClient(t)
	cache := NewRedisCache(client, nil)
	ctx := context.Background()
	for _, k := range []string{"registry:1", "registry:2", "other"} {
		require.NoError(t, cache.Set(ctx, k, "v", time.Hour))
	}
	n, err := cache.DeleteByPrefix(ctx, "registry:")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.True(t, mr.Exists("famscope:cache:other"))
}

//Personal.AI order the ending
