package intake

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateAndLookup(t *testing.T) {
	r := NewRegistry(nil)

	session := r.Create()
	require.NotEmpty(t, session.ID)
	assert.True(t, r.IsActive(session.ID))

	got, ok := r.Lookup(session.ID)
	require.True(t, ok)
	assert.Same(t, session, got)

	_, ok = r.Lookup("nope")
	assert.False(t, ok)
}

func TestRegistryLookupSelfHeals(t *testing.T) {
	r := NewRegistry(nil)
	session := r.Create()

	r.MarkInactive(session.ID)
	assert.False(t, r.IsActive(session.ID))

	got, ok := r.Lookup(session.ID)
	require.True(t, ok)
	assert.Same(t, session, got)
	assert.True(t, r.IsActive(session.ID), "lookup should repair the active index")
}

func TestRegistryEnsureActive(t *testing.T) {
	r := NewRegistry(nil)
	session := r.Create()

	r.MarkInactive(session.ID)
	assert.True(t, r.EnsureActive(session.ID))
	assert.True(t, r.IsActive(session.ID))

	assert.False(t, r.EnsureActive("unknown"))
}

func TestRegistryRemove(t *testing.T) {
	r := NewRegistry(nil)
	session := r.Create()

	r.Remove(session.ID)
	_, ok := r.Lookup(session.ID)
	assert.False(t, ok)
	assert.False(t, r.IsActive(session.ID))
}

func TestRegistryCleanupExpired(t *testing.T) {
	r := NewRegistry(nil)

	stale := r.Create()
	stale.setLastActivity(time.Now().UTC().Add(-48 * time.Hour))
	fresh := r.Create()

	removed := r.CleanupExpired(24 * time.Hour)
	assert.Equal(t, 1, removed)

	_, ok := r.Lookup(stale.ID)
	assert.False(t, ok)
	_, ok = r.Lookup(fresh.ID)
	assert.True(t, ok)
}

func TestRegistryCleanupConcurrentWithTurns(t *testing.T) {
	r := NewRegistry(nil)
	session := r.Create()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			session.Lock()
			session.AddTurn(TurnRoleUser, "it still hurts", nil)
			session.Unlock()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			r.CleanupExpired(24 * time.Hour)
		}
	}()
	wg.Wait()

	_, ok := r.Lookup(session.ID)
	assert.True(t, ok, "an active session must survive the sweep")
	assert.Len(t, session.Turns, 200)
}

func TestRegistryCounts(t *testing.T) {
	r := NewRegistry(nil)
	a := r.Create()
	r.Create()
	r.MarkInactive(a.ID)

	total, active := r.Counts()
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, active)
}
