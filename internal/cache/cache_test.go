package cache_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccdsync/internal/cache"
)

func TestMemoryDates(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemoryDates()

	_, found, err := c.Get(ctx, "repo:ATP.cif")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Put(ctx, "repo:ATP.cif", "2024-01-02"))
	require.NoError(t, c.Put(ctx, "repo:XXX.cif", ""))

	date, found, err := c.Get(ctx, "repo:ATP.cif")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2024-01-02", date)

	date, found, err = c.Get(ctx, "repo:XXX.cif")
	require.NoError(t, err)
	assert.True(t, found, "misses are remembered")
	assert.Empty(t, date)
	assert.Equal(t, 2, c.Len())
}

func TestSQLiteDates_PersistsAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dates.db")

	c, err := cache.OpenSQLiteDates(path)
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "k", "2023-05-01"))
	require.NoError(t, c.Put(ctx, "k", "2023-06-01"))
	require.NoError(t, c.Close())

	c, err = cache.OpenSQLiteDates(path)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	date, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "2023-06-01", date)

	_, found, err = c.Get(ctx, "other")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNewDateStore_EmptyPathIsMemory(t *testing.T) {
	store, err := cache.NewDateStore("")
	require.NoError(t, err)
	assert.IsType(t, &cache.MemoryDates{}, store)
	assert.NoError(t, store.Close())
}

func TestDocumentCache_ParsesOnce(t *testing.T) {
	c := cache.NewDocumentCache(2)
	text := []byte("data_ACN\n_chem_comp.name ACETONE\n")

	first := c.Parse(text)
	second := c.Parse(text)

	assert.Same(t, first, second)
	name, _ := first.Lookup("_chem_comp.name")
	assert.Equal(t, "ACETONE", name)
	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)
}

func TestDocumentCache_Evicts(t *testing.T) {
	c := cache.NewDocumentCache(1)
	c.Parse([]byte("_chem_comp.name A\n"))
	c.Parse([]byte("_chem_comp.name B\n"))
	assert.Equal(t, 1, c.Len())
}

func TestDocumentCache_Concurrent(t *testing.T) {
	c := cache.NewDocumentCache(0)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc := c.Parse([]byte("_chem_comp.name SHARED\n"))
			name, _ := doc.Lookup("_chem_comp.name")
			assert.Equal(t, "SHARED", name)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, c.Len())
}
