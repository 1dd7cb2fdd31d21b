package services_test

import (
	"errors"
	"testing"
	"time"

	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerCreateDuplicate(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	original := env.createServer(t, "Original", false)
	assert.False(t, original.IsActive)

	tests := []struct {
		name     string
		ip       string
		hostname string
	}{
		{name: "same ip", ip: original.IP, hostname: "fresh.example.com"},
		{name: "same hostname", ip: "192.168.1.1", hostname: original.Hostname},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.servers.Create(t.Context(), &models.CreateServerRequest{
				Name:       "Copy",
				IP:         tt.ip,
				Hostname:   tt.hostname,
				Country:    "GB",
				Gamemode:   models.StringList{"creative"},
				MaxPlayers: 10,
			})
			require.ErrorIs(t, err, pkg.ErrAlreadyExists)

			var conflict *pkg.ConflictError
			require.True(t, errors.As(err, &conflict))
			assert.Equal(t, map[string]int64{"server_id": original.ID}, conflict.Data)
		})
	}
}

func TestServerCreateValidation(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	_, err := env.servers.Create(t.Context(), &models.CreateServerRequest{
		Name:     "",
		IP:       "not an ip",
		Hostname: "-bad-",
		Country:  "usa",
	})
	require.ErrorIs(t, err, pkg.ErrBadRequest)

	var v *pkg.ValidationError
	require.True(t, errors.As(err, &v))
	assert.GreaterOrEqual(t, len(v.Fields), 5)
}

func TestServerListFilters(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	create := func(name, ip, country string, gamemodes ...string) *models.Server {
		t.Helper()
		s, err := env.servers.Create(t.Context(), &models.CreateServerRequest{
			Name:       name,
			IP:         ip,
			Hostname:   ip + ".nip.io",
			Country:    country,
			Gamemode:   gamemodes,
			MaxPlayers: 50,
		})
		require.NoError(t, err)
		_, err = env.admin.ApproveServer(t.Context(), s.ID)
		require.NoError(t, err)
		return s
	}

	create("Skyblock Heaven", "172.16.0.1", "US", "skyblock")
	create("Factions Forever", "172.16.0.2", "DE", "factions", "pvp")
	create("Survival Land", "172.16.0.3", "US", "survival", "PvP")
	env.createServer(t, "Still Pending", false)

	tests := []struct {
		name  string
		query models.ServerListQuery
		want  []string
	}{
		{
			name:  "active only sorted by name",
			query: models.ServerListQuery{ActiveOnly: true},
			want:  []string{"Factions Forever", "Skyblock Heaven", "Survival Land"},
		},
		{
			name:  "search",
			query: models.ServerListQuery{ActiveOnly: true, Search: "sky"},
			want:  []string{"Skyblock Heaven"},
		},
		{
			name:  "gamemode is case insensitive",
			query: models.ServerListQuery{ActiveOnly: true, Gamemodes: []string{"pvp"}},
			want:  []string{"Factions Forever", "Survival Land"},
		},
		{
			name:  "country",
			query: models.ServerListQuery{ActiveOnly: true, Country: "us", Order: "desc"},
			want:  []string{"Survival Land", "Skyblock Heaven"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := tt.query
			servers, page, err := env.servers.List(t.Context(), &q)
			require.NoError(t, err)

			names := make([]string, len(servers))
			for i, s := range servers {
				names[i] = s.Name
			}
			assert.Equal(t, tt.want, names)
			assert.Equal(t, len(tt.want), page.Total)
		})
	}

	t.Run("pagination", func(t *testing.T) {
		servers, page, err := env.servers.List(t.Context(), &models.ServerListQuery{ActiveOnly: true, Limit: 2, Page: 2})
		require.NoError(t, err)
		require.Len(t, servers, 1)
		assert.Equal(t, 3, page.Total)
		assert.Equal(t, 2, page.Pages)
	})

	t.Run("invalid sort", func(t *testing.T) {
		_, _, err := env.servers.List(t.Context(), &models.ServerListQuery{Sort: "ip"})
		require.ErrorIs(t, err, pkg.ErrBadRequest)
	})
}

func TestServerApprovalLifecycle(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	server := env.createServer(t, "Lifecycle", false)

	count, err := env.servers.CountActive(t.Context())
	require.NoError(t, err)
	assert.Zero(t, count)

	pending, err := env.admin.ListPendingServers(t.Context())
	require.NoError(t, err)
	require.Len(t, pending, 1)

	_, err = env.admin.ApproveServer(t.Context(), server.ID)
	require.NoError(t, err)

	// The cached count must see the approval.
	count, err = env.servers.CountActive(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = env.admin.ApproveServer(t.Context(), server.ID)
	require.ErrorIs(t, err, pkg.ErrAlreadyExists)

	err = env.admin.RejectServer(t.Context(), server.ID)
	require.ErrorIs(t, err, pkg.ErrAlreadyExists)

	t.Run("reject deletes the submission", func(t *testing.T) {
		other := env.createServer(t, "Rejected", false)
		require.NoError(t, env.admin.RejectServer(t.Context(), other.ID))

		_, err := env.servers.GetByID(t.Context(), other.ID)
		require.ErrorIs(t, err, pkg.ErrNotFound)
	})
}

func TestServerUpdateAndDelete(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	server := env.createServer(t, "Before", true)

	// Prime the cache so the update has something to invalidate.
	_, err := env.servers.GetByID(t.Context(), server.ID)
	require.NoError(t, err)

	name, players := "After", 250
	updated, err := env.servers.Update(t.Context(), server.ID, &models.UpdateServerRequest{
		Name:       &name,
		MaxPlayers: &players,
	})
	require.NoError(t, err)
	assert.Equal(t, "After", updated.Name)

	got, err := env.servers.GetByID(t.Context(), server.ID)
	require.NoError(t, err)
	assert.Equal(t, "After", got.Name)
	assert.Equal(t, 250, got.MaxPlayers)

	_, err = env.servers.Update(t.Context(), server.ID, &models.UpdateServerRequest{})
	require.ErrorIs(t, err, pkg.ErrBadRequest)

	require.NoError(t, env.servers.Delete(t.Context(), server.ID))
	_, err = env.servers.GetByID(t.Context(), server.ID)
	require.ErrorIs(t, err, pkg.ErrNotFound)

	err = env.servers.Delete(t.Context(), server.ID)
	require.ErrorIs(t, err, pkg.ErrNotFound)
}

func TestServerDetailsAndStats(t *testing.T) {
	t.Parallel()
	env, cleanup := setupTest(t)
	defer cleanup()

	quiet := env.createServer(t, "Quiet", true)
	busy := env.createServer(t, "Busy", true)
	now := time.Now().UTC()

	measure(t, env, busy.ID, now.Add(-2*time.Minute), true, 30)
	measure(t, env, quiet.ID, now.Add(-2*time.Minute), true, 5)

	details, err := env.servers.GetDetails(t.Context(), busy.ID)
	require.NoError(t, err)
	require.NotNil(t, details.Stats)
	assert.Equal(t, 30, details.Stats.CurrentPlayers)
	assert.Equal(t, 100.0, details.Stats.UptimePercentage)

	details, err = env.servers.GetDetails(t.Context(), env.createServer(t, "Unprobed", true).ID)
	require.NoError(t, err)
	assert.Nil(t, details.Stats)

	stats, err := env.servers.GlobalStats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalServers)
	assert.Equal(t, 35, stats.TotalPlayers)
	require.Len(t, stats.TopServers, 2)
	assert.Equal(t, busy.ID, stats.TopServers[0].ID)

	admin, err := env.admin.Stats(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, admin.ActiveServers)
	assert.Zero(t, admin.PendingServers)

	found, err := env.servers.GetByIdentifier(t.Context(), " "+busy.Hostname+" ")
	require.NoError(t, err)
	assert.Equal(t, busy.ID, found.ID)
}
