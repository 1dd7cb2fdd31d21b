package services_test

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brekfst/mcdirectory/database"
	"github.com/brekfst/mcdirectory/models"
	"github.com/brekfst/mcdirectory/pkg/cache"
	"github.com/brekfst/mcdirectory/repository"
	"github.com/brekfst/mcdirectory/services"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sentMail struct {
	To         string
	Username   string
	ServerName string
	Token      string
}

// fakeMailer records every send on buffered channels so tests can wait for
// the background goroutines.
type fakeMailer struct {
	resets  chan sentMail
	invites chan sentMail
}

func newFakeMailer() *fakeMailer {
	return &fakeMailer{
		resets:  make(chan sentMail, 16),
		invites: make(chan sentMail, 16),
	}
}

func (m *fakeMailer) SendPasswordReset(_ context.Context, to, token string) error {
	m.resets <- sentMail{To: to, Token: token}
	return nil
}

func (m *fakeMailer) SendClaimInvitation(_ context.Context, to, username, serverName, token string) error {
	m.invites <- sentMail{To: to, Username: username, ServerName: serverName, Token: token}
	return nil
}

func waitMail(t *testing.T, ch <-chan sentMail) sentMail {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for mail")
		return sentMail{}
	}
}

type testEnv struct {
	db     *database.DB
	repos  testRepos
	mailer *fakeMailer

	servers      services.ServerService
	measurements services.MeasurementService
	predictions  services.PredictionService
	claims       services.ClaimService
	featured     services.FeaturedService
	admin        services.AdminService
	auth         services.AuthService
}

type testRepos struct {
	user        repository.UserRepository
	token       repository.PasswordResetRepository
	server      repository.ServerRepository
	owner       repository.OwnerRepository
	measurement repository.MeasurementRepository
	prediction  repository.PredictionRepository
	claim       repository.ClaimRepository
	featured    repository.FeaturedRepository
}

func setupTest(t *testing.T) (*testEnv, func()) {
	t.Helper()

	logger := zap.NewNop()
	db, err := database.New(filepath.Join(t.TempDir(), "test.db"), database.Migrations(), logger, 0)
	require.NoError(t, err)

	c := cache.New(cache.NewMemoryStore(), logger)
	q := db.Query
	repos := testRepos{
		user:        repository.NewSQLiteUserRepo(q),
		token:       repository.NewSQLiteResetTokenRepo(q),
		server:      repository.NewSQLiteServerRepo(q),
		owner:       repository.NewSQLiteOwnerRepo(q),
		measurement: repository.NewSQLiteMeasurementRepo(q),
		prediction:  repository.NewSQLitePredictionRepo(q),
		claim:       repository.NewSQLiteClaimRepo(q),
		featured:    repository.NewSQLiteFeaturedRepo(q),
	}
	mailer := newFakeMailer()

	measurements := services.NewMeasurementService(repos.measurement, repos.server, c, logger)
	predictions := services.NewPredictionService(repos.prediction, repos.server, c)

	env := &testEnv{
		db:           db,
		repos:        repos,
		mailer:       mailer,
		measurements: measurements,
		predictions:  predictions,
		servers: services.NewServerService(
			repos.server, repos.owner, repos.featured, measurements, predictions, c),
		claims: services.NewClaimService(
			db, repos.claim, repos.server, repos.owner, mailer, c, logger),
		featured: services.NewFeaturedService(db, repos.featured, repos.server, c, logger),
		admin: services.NewAdminService(
			repos.server, repos.claim, repos.featured, measurements, c, logger),
		auth: services.NewAuthService(
			db, repos.user, repos.token, repos.server, repos.claim, mailer,
			"test-secret", time.Hour, logger),
	}

	cleanup := func() {
		c.Close()
		db.Close()
	}
	return env, cleanup
}

var serverSeq atomic.Int64

// createServer submits a server and, when active is set, approves it.
func (e *testEnv) createServer(t *testing.T, name string, active bool) *models.Server {
	t.Helper()
	n := serverSeq.Add(1)

	server, err := e.servers.Create(t.Context(), &models.CreateServerRequest{
		Name:       name,
		IP:         fmt.Sprintf("10.0.%d.%d", n/250, n%250+1),
		Hostname:   fmt.Sprintf("play%d.example.com", n),
		Country:    "US",
		Gamemode:   models.StringList{"survival"},
		MaxPlayers: 100,
	})
	require.NoError(t, err)

	if active {
		server, err = e.admin.ApproveServer(t.Context(), server.ID)
		require.NoError(t, err)
	}
	return server
}

func measure(t *testing.T, e *testEnv, serverID int64, at time.Time, online bool, players int) {
	t.Helper()
	motd, version := "A Minecraft Server", "1.21"
	_, err := e.measurements.Create(t.Context(), &models.CreateMeasurementRequest{
		ServerID:    serverID,
		Timestamp:   &at,
		IsOnline:    &online,
		PlayerCount: &players,
		MOTD:        &motd,
		Version:     &version,
	})
	require.NoError(t, err)
}

// sha256Hex mirrors how reset tokens are stored.
func sha256Hex(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
