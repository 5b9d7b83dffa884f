package registry

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/soltixdb/decompose/internal/config"
	"github.com/soltixdb/decompose/internal/logging"
	"github.com/soltixdb/decompose/internal/metrics"
	"github.com/soltixdb/decompose/internal/timeseries"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEntry() *Entry {
	return &Entry{
		Model:  timeseries.NewModel(timeseries.NewConstant(timeseries.ConstantConfig{})),
		Method: "map",
		Rows:   10,
	}
}

func TestRegistry_PutGetDelete(t *testing.T) {
	m := metrics.New()
	r := New(config.RegistryConfig{MaxModels: 4, TTL: time.Hour}, logging.Nop(), m)

	id := r.Put(newEntry())
	require.NotEmpty(t, id)

	e, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, e.ID)
	assert.False(t, e.CreatedAt.IsZero())
	assert.Equal(t, e.CreatedAt.Add(time.Hour), r.ExpiresAt(e))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelsActive))

	assert.True(t, r.Delete(id))
	assert.False(t, r.Delete(id))
	_, err = r.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ModelsActive))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ModelsEvicted), "an explicit delete is not an eviction")
}

func TestRegistry_DeleteAmongEvictions(t *testing.T) {
	m := metrics.New()
	r := New(config.RegistryConfig{MaxModels: 2}, logging.Nop(), m)

	first := r.Put(newEntry())
	second := r.Put(newEntry())
	r.Put(newEntry()) // evicts first

	assert.True(t, r.Delete(second))
	_, err := r.Get(first)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelsEvicted))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelsActive))
}

func TestRegistry_EvictsLeastRecentlyUsed(t *testing.T) {
	m := metrics.New()
	r := New(config.RegistryConfig{MaxModels: 2}, logging.Nop(), m)

	first := r.Put(newEntry())
	second := r.Put(newEntry())
	_, err := r.Get(first)
	require.NoError(t, err)

	third := r.Put(newEntry())
	assert.Equal(t, 2, r.Len())

	_, err = r.Get(second)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = r.Get(first)
	assert.NoError(t, err)
	_, err = r.Get(third)
	assert.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ModelsEvicted))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ModelsActive))
}

func TestRegistry_Expiry(t *testing.T) {
	m := metrics.New()
	r := New(config.RegistryConfig{MaxModels: 2, TTL: 20 * time.Millisecond}, logging.Nop(), m)
	id := r.Put(newEntry())

	time.Sleep(60 * time.Millisecond)
	_, err := r.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.ModelsEvicted) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.ModelsActive))
}

func TestRegistry_List(t *testing.T) {
	r := New(config.RegistryConfig{MaxModels: 8}, logging.Nop(), nil)
	older := newEntry()
	older.CreatedAt = time.Now().Add(-time.Minute)
	r.Put(older)
	newer := r.Put(newEntry())

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, newer, list[0].ID)
	assert.True(t, r.ExpiresAt(list[0]).IsZero())
}
