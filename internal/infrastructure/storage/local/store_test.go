package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/FamilyScope/internal/domain/family"
	"github.com/turtacn/FamilyScope/pkg/errors"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

func stores(t *testing.T) map[string]family.Store {
	return map[string]family.Store{
		"memory": NewMemoryStore(),
		"file":   NewFileStore(filepath.Join(t.TempDir(), "nested", "family.json"), nil),
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			c, err := s.Load(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 0, c.Len())
			assert.NotNil(t, c.Records)
			assert.Equal(t, int64(0), c.Version)
		})
	}
}

func TestStore_SaveAndReload(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c, err := s.Load(ctx)
			require.NoError(t, err)
			require.NoError(t, c.Add(family.NewRecord("a", ptypes.MustNormalize("10123456"), "Gear", "2019")))
			require.NoError(t, s.Save(ctx, c))
			assert.Equal(t, int64(1), c.Version)

			again, err := s.Load(ctx)
			require.NoError(t, err)
			require.Equal(t, 1, again.Len())
			assert.Equal(t, "Gear", again.Records[0].Title)
			assert.True(t, again.Records[0].Founding)
			assert.Equal(t, int64(1), again.Version)
		})
	}
}

func TestStore_VersionConflict(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			first, _ := s.Load(ctx)
			second, _ := s.Load(ctx)

			require.NoError(t, s.Save(ctx, first))
			err := s.Save(ctx, second)
			assert.True(t, errors.IsCode(err, errors.CodeConflict))
		})
	}
}

func TestStore_MutateRetriesConflicts(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			calls := 0
			_, err := family.Mutate(ctx, s, func(c *family.Collection) error {
				calls++
				if calls == 1 {
					// a concurrent writer lands between load and save
					other, _ := s.Load(ctx)
					require.NoError(t, s.Save(ctx, other))
				}
				return c.Add(family.NewRecord("a", "123456", "", ""))
			})
			require.NoError(t, err)
			assert.Equal(t, 2, calls)

			c, _ := s.Load(ctx)
			assert.Equal(t, int64(2), c.Version)
			assert.Equal(t, 1, c.Len())
		})
	}
}

func TestStore_CancelledContext(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := s.Load(ctx)
			assert.ErrorIs(t, err, context.Canceled)
		})
	}
}

func TestFileStore_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "family.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := NewFileStore(path, nil).Load(context.Background())
	assert.True(t, errors.IsCode(err, errors.ErrCodeSerialization))
}

//Personal.AI order the ending
