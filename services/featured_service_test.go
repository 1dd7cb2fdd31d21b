package services_test

import (
	"testing"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func boolPtr(b bool) *bool { return &b }

// activeOrder returns the server ids of active slots in position order and
// checks the positions are exactly 1..N.
func activeOrder(t *testing.T, env *testEnv) []int64 {
	t.Helper()
	all, err := env.featured.List(t.Context())
	require.NoError(t, err)

	var ids []int64
	for _, f := range all {
		if !f.Active {
			assert.Zero(t, f.Position, "inactive slot %d keeps a position", f.ID)
			continue
		}
		ids = append(ids, f.ServerID)
		assert.Equal(t, len(ids), f.Position, "positions must be dense")
	}
	return ids
}

func TestFeaturedPositionsStayDense(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	a := env.createServer(t, "A", true)
	b := env.createServer(t, "B", true)
	c := env.createServer(t, "C", true)
	d := env.createServer(t, "D", true)

	add := func(serverID int64, pos *int) *models.FeaturedServer {
		t.Helper()
		f, err := env.featured.Add(t.Context(), &models.AddFeaturedRequest{ServerID: serverID, Position: pos})
		require.NoError(t, err)
		return f
	}

	fa := add(a.ID, nil)
	fb := add(b.ID, nil)
	fc := add(c.ID, intPtr(1))
	assert.Equal(t, []int64{c.ID, a.ID, b.ID}, activeOrder(t, env))

	// Past the end clamps to N+1.
	fd := add(d.ID, intPtr(99))
	assert.Equal(t, 4, fd.Position)
	assert.Equal(t, []int64{c.ID, a.ID, b.ID, d.ID}, activeOrder(t, env))

	t.Run("move down", func(t *testing.T) {
		_, err := env.featured.Update(t.Context(), fc.ID, &models.UpdateFeaturedRequest{Position: intPtr(3)})
		require.NoError(t, err)
		assert.Equal(t, []int64{a.ID, b.ID, c.ID, d.ID}, activeOrder(t, env))
	})

	t.Run("move up", func(t *testing.T) {
		_, err := env.featured.Update(t.Context(), fd.ID, &models.UpdateFeaturedRequest{Position: intPtr(1)})
		require.NoError(t, err)
		assert.Equal(t, []int64{d.ID, a.ID, b.ID, c.ID}, activeOrder(t, env))
	})

	t.Run("deactivate closes the gap", func(t *testing.T) {
		f, err := env.featured.Update(t.Context(), fa.ID, &models.UpdateFeaturedRequest{Active: boolPtr(false)})
		require.NoError(t, err)
		assert.False(t, f.Active)
		assert.Equal(t, []int64{d.ID, b.ID, c.ID}, activeOrder(t, env))
	})

	t.Run("inactive slot has no position", func(t *testing.T) {
		_, err := env.featured.Update(t.Context(), fa.ID, &models.UpdateFeaturedRequest{Position: intPtr(1)})
		require.ErrorIs(t, err, pkg.ErrBadRequest)
	})

	t.Run("reactivate at position", func(t *testing.T) {
		_, err := env.featured.Update(t.Context(), fa.ID, &models.UpdateFeaturedRequest{
			Active:   boolPtr(true),
			Position: intPtr(2),
		})
		require.NoError(t, err)
		assert.Equal(t, []int64{d.ID, a.ID, b.ID, c.ID}, activeOrder(t, env))
	})

	t.Run("remove", func(t *testing.T) {
		require.NoError(t, env.featured.Remove(t.Context(), fb.ID))
		assert.Equal(t, []int64{d.ID, a.ID, c.ID}, activeOrder(t, env))

		err := env.featured.Remove(t.Context(), fb.ID)
		require.ErrorIs(t, err, pkg.ErrNotFound)
	})

	t.Run("server delete renumbers", func(t *testing.T) {
		require.NoError(t, env.servers.Delete(t.Context(), d.ID))
		assert.Equal(t, []int64{a.ID, c.ID}, activeOrder(t, env))
	})
}

func TestFeaturedAddRules(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	active := env.createServer(t, "Live", true)
	pending := env.createServer(t, "Waiting", false)

	_, err := env.featured.Add(t.Context(), &models.AddFeaturedRequest{ServerID: pending.ID})
	require.ErrorIs(t, err, pkg.ErrBadRequest)

	past := time.Now().Add(-time.Hour)
	_, err = env.featured.Add(t.Context(), &models.AddFeaturedRequest{ServerID: active.ID, EndDate: &past})
	require.ErrorIs(t, err, pkg.ErrBadRequest)

	_, err = env.featured.Add(t.Context(), &models.AddFeaturedRequest{ServerID: active.ID})
	require.NoError(t, err)

	_, err = env.featured.Add(t.Context(), &models.AddFeaturedRequest{ServerID: active.ID})
	require.ErrorIs(t, err, pkg.ErrAlreadyExists)

	_, err = env.featured.Update(t.Context(), 9999, &models.UpdateFeaturedRequest{Active: boolPtr(false)})
	require.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestFeaturedPublicListing(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	first := env.createServer(t, "First", true)
	second := env.createServer(t, "Second", true)
	hidden := env.createServer(t, "Hidden", true)

	for _, id := range []int64{first.ID, second.ID, hidden.ID} {
		_, err := env.featured.Add(t.Context(), &models.AddFeaturedRequest{ServerID: id})
		require.NoError(t, err)
	}
	all, err := env.featured.List(t.Context())
	require.NoError(t, err)
	_, err = env.featured.Update(t.Context(), all[2].ID, &models.UpdateFeaturedRequest{Active: boolPtr(false)})
	require.NoError(t, err)

	measure(t, env, second.ID, time.Now().UTC().Add(-time.Minute), true, 42)

	listing, err := env.servers.ListFeatured(t.Context(), 0)
	require.NoError(t, err)
	require.Len(t, listing, 2)
	assert.Equal(t, first.ID, listing[0].ID)
	assert.Equal(t, 1, listing[0].Position)
	assert.False(t, listing[0].IsOnline)
	assert.Equal(t, second.ID, listing[1].ID)
	assert.Equal(t, 42, listing[1].CurrentPlayers)
	assert.True(t, listing[1].IsOnline)
}
