package service

import (
	"context"
	"testing"
	"time"

	"github.com/Skotchmaster/group_buy/internal/events"
	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/Skotchmaster/group_buy/internal/querycache"
	"github.com/Skotchmaster/group_buy/internal/repo"
	"github.com/Skotchmaster/group_buy/internal/repo/repotest"
	"github.com/Skotchmaster/group_buy/internal/session"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	Deps           *Deps
	Events         *events.Recorder
	Broker         *session.Broker
	Tracker        *session.Tracker
	Auth           *AuthService
	Campaigns      *CampaignService
	Participations *ParticipationService
	Profiles       *ProfileService
	Dashboard      *DashboardService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	rec := &events.Recorder{}
	deps := &Deps{
		Repo:   &repo.GormRepo{DB: repotest.InitTestDB(t)},
		Cache:  querycache.New(true),
		Events: rec,
	}
	profiles := &ProfileService{Deps: deps}
	parts := &ParticipationService{Deps: deps}
	campaigns := &CampaignService{Deps: deps, Participations: parts}
	broker := session.NewBroker()
	tracker := session.NewTracker(broker, deps.Cache, profiles)
	t.Cleanup(tracker.Close)

	return &testEnv{
		Deps:           deps,
		Events:         rec,
		Broker:         broker,
		Tracker:        tracker,
		Profiles:       profiles,
		Participations: parts,
		Campaigns:      campaigns,
		Dashboard:      &DashboardService{Campaigns: campaigns, Participations: parts},
		Auth: &AuthService{
			Deps:          deps,
			Profiles:      profiles,
			Broker:        broker,
			Tracker:       tracker,
			JWTSecret:     []byte("test-jwt-secret"),
			RefreshSecret: []byte("test-refresh-secret"),
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    24 * time.Hour,
		},
	}
}

// newUser stores a user and profile directly, skipping password hashing.
func (env *testEnv) newUser(t *testing.T, username string) uuid.UUID {
	t.Helper()
	u := &models.User{Email: username + "@example.com", PasswordHash: "unused"}
	p := &models.Profile{Username: username}
	require.NoError(t, env.Deps.Repo.CreateUserWithProfile(context.Background(), u, p))
	return u.ID
}

func (env *testEnv) newCampaign(t *testing.T, owner uuid.UUID, name string, moq int) uuid.UUID {
	t.Helper()
	view, err := env.Campaigns.Create(context.Background(), owner, CreateCampaignInput{
		ProductName: name,
		UnitPrice:   decimal.RequireFromString("10.00"),
		MOQ:         moq,
	})
	require.NoError(t, err)
	return view.ID
}

func strPtr(s string) *string { return &s }
