package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Skotchmaster/group_buy/internal/domain"
	"github.com/Skotchmaster/group_buy/internal/events"
	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeIndexer struct {
	mu      sync.Mutex
	indexed map[uuid.UUID]string
	deleted []uuid.UUID
	result  []uuid.UUID
	err     error
}

func (f *fakeIndexer) IndexCampaign(_ context.Context, c *models.Campaign) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexed == nil {
		f.indexed = map[uuid.UUID]string{}
	}
	f.indexed[c.ID] = string(c.Status)
	return nil
}

func (f *fakeIndexer) DeleteCampaign(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeIndexer) Search(_ context.Context, _ string, _, _ int) (int64, []uuid.UUID, error) {
	if f.err != nil {
		return 0, nil, f.err
	}
	return int64(len(f.result)), f.result, nil
}

func TestCreateCampaign_Validation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "owner")

	valid := func() CreateCampaignInput {
		return CreateCampaignInput{
			ProductName: "Kettle",
			UnitPrice:   decimal.RequireFromString("19.99"),
			MOQ:         10,
		}
	}

	cases := []struct {
		name  string
		edit  func(in *CreateCampaignInput)
		field string
	}{
		{"blank name", func(in *CreateCampaignInput) { in.ProductName = "   " }, "product_name"},
		{"zero price", func(in *CreateCampaignInput) { in.UnitPrice = decimal.Zero }, "unit_price"},
		{"negative price", func(in *CreateCampaignInput) { in.UnitPrice = decimal.RequireFromString("-1") }, "unit_price"},
		{"three decimals", func(in *CreateCampaignInput) { in.UnitPrice = decimal.RequireFromString("1.005") }, "unit_price"},
		{"zero moq", func(in *CreateCampaignInput) { in.MOQ = 0 }, "moq"},
		{"bad link", func(in *CreateCampaignInput) { in.ProductLink = strPtr("ftp://x") }, "product_link"},
		{"bad image", func(in *CreateCampaignInput) { in.ProductImage = strPtr("not a url") }, "product_image"},
		{"negative initial", func(in *CreateCampaignInput) { in.InitialQuantity = -1 }, "initial_quantity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid()
			tc.edit(&in)
			_, err := env.Campaigns.Create(ctx, owner, in)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve), "got %v", err)
			assert.Equal(t, tc.field, ve.Field)
		})
	}

	total, _, err := env.Campaigns.ListActive(ctx, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCreateCampaign_InitialQuantityJoinsOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "owner")
	idx := &fakeIndexer{}
	env.Campaigns.Search = idx

	view, err := env.Campaigns.Create(ctx, owner, CreateCampaignInput{
		ProductName:     "  Kettle  ",
		Description:     strPtr("  "),
		UnitPrice:       decimal.RequireFromString("19.99"),
		MOQ:             10,
		InitialQuantity: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kettle", view.ProductName)
	assert.Nil(t, view.Description)
	assert.Equal(t, models.CampaignStatusOpen, view.Status)
	assert.Equal(t, 4, view.TotalQuantity)
	assert.InDelta(t, 40.0, view.Progress, 1e-9)

	p, err := env.Participations.GetUserParticipation(ctx, owner, view.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 4, p.Quantity)

	assert.Contains(t, idx.indexed, view.ID)
	require.Len(t, env.Events.Events(events.TopicCampaign), 1)
	joined := env.Events.Events(events.TopicParticipation)
	require.Len(t, joined, 1)
	assert.Equal(t, 4, joined[0].Event.(events.ParticipationEvent).Added)
}

func TestCreateCampaign_FailedPledgeStoresNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "owner")
	idx := &fakeIndexer{}
	env.Campaigns.Search = idx

	db := env.Deps.Repo.DB
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:refuse_pledges", func(tx *gorm.DB) {
		if tx.Statement.Table == "participations" {
			_ = tx.AddError(errors.New("pledge refused"))
		}
	}))

	_, err := env.Campaigns.Create(ctx, owner, CreateCampaignInput{
		ProductName:     "Kettle",
		UnitPrice:       decimal.RequireFromString("19.99"),
		MOQ:             10,
		InitialQuantity: 4,
	})
	require.Error(t, err)

	var n int64
	require.NoError(t, db.Model(&models.Campaign{}).Count(&n).Error)
	assert.Zero(t, n)
	assert.Empty(t, idx.indexed)
	assert.Empty(t, env.Events.Events(events.TopicCampaign))
	assert.Empty(t, env.Events.Events(events.TopicParticipation))

	_, err = env.Campaigns.Create(ctx, owner, CreateCampaignInput{
		ProductName:     "Kettle",
		UnitPrice:       decimal.RequireFromString("19.99"),
		MOQ:             10,
		InitialQuantity: models.MaxPledgeQuantity + 1,
	})
	var ve *ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "initial_quantity", ve.Field)
}

func TestGetCampaign_Missing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	c, err := env.Campaigns.Get(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, c)

	view, err := env.Campaigns.GetWithParticipations(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, view)
}

func TestUpdateCampaign_OwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "owner")
	other := env.newUser(t, "other")
	id := env.newCampaign(t, owner, "Kettle", 10)

	_, err := env.Campaigns.Update(ctx, other, id, UpdateCampaignInput{ProductName: strPtr("Stolen")})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.Campaigns.Update(ctx, owner, uuid.New(), UpdateCampaignInput{ProductName: strPtr("X")})
	assert.ErrorIs(t, err, ErrNotFound)

	moq := 0
	_, err = env.Campaigns.Update(ctx, owner, id, UpdateCampaignInput{MOQ: &moq})
	assert.ErrorIs(t, err, ErrValidation)

	price := decimal.RequireFromString("12.50")
	view, err := env.Campaigns.Update(ctx, owner, id, UpdateCampaignInput{
		ProductName: strPtr("Kettle XL"),
		UnitPrice:   &price,
	})
	require.NoError(t, err)
	assert.Equal(t, "Kettle XL", view.ProductName)
	assert.True(t, price.Equal(view.UnitPrice))

	got, err := env.Campaigns.GetWithParticipations(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Kettle XL", got.ProductName)
}

func TestUpdateStatus_Transitions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "owner")
	buyer := env.newUser(t, "buyer")
	id := env.newCampaign(t, owner, "Kettle", 10)

	_, err := env.Campaigns.UpdateStatus(ctx, owner, id, models.CampaignStatus("shipped"))
	assert.ErrorIs(t, err, ErrValidation)

	_, err = env.Campaigns.UpdateStatus(ctx, owner, id, models.CampaignStatusOpen)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.Campaigns.UpdateStatus(ctx, owner, id, models.CampaignStatusCompleted)
	assert.ErrorIs(t, err, ErrConflict, "goal not reached yet")

	_, err = env.Campaigns.UpdateStatus(ctx, buyer, id, models.CampaignStatusCancelled)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.Participations.Join(ctx, buyer, id, 10)
	require.NoError(t, err)

	view, err := env.Campaigns.UpdateStatus(ctx, owner, id, models.CampaignStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, view.Status)
	assert.True(t, view.GoalReached)

	_, err = env.Campaigns.UpdateStatus(ctx, owner, id, models.CampaignStatusCancelled)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.Campaigns.Update(ctx, owner, id, UpdateCampaignInput{ProductName: strPtr("Late")})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = env.Participations.Join(ctx, buyer, id, 1)
	assert.ErrorIs(t, err, ErrConflict)

	total, _, err := env.Campaigns.ListActive(ctx, 0, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestBrowse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "owner")

	cheap, err := env.Campaigns.Create(ctx, owner, CreateCampaignInput{
		ProductName: "Green Tea", UnitPrice: decimal.RequireFromString("3.00"), MOQ: 10, InitialQuantity: 9,
	})
	require.NoError(t, err)
	pricey, err := env.Campaigns.Create(ctx, owner, CreateCampaignInput{
		ProductName: "Tea Kettle", UnitPrice: decimal.RequireFromString("40.00"), MOQ: 10, InitialQuantity: 1,
	})
	require.NoError(t, err)
	_ = env.newCampaign(t, owner, "Coffee Grinder", 10)

	total, items, err := env.Campaigns.Browse(ctx, BrowseQuery{Term: "tea", Sort: domain.SortPriceDesc, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, pricey.ID, items[0].ID)
	assert.Equal(t, cheap.ID, items[1].ID)

	_, items, err = env.Campaigns.Browse(ctx, BrowseQuery{Sort: domain.SortProgress, Limit: 1})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, cheap.ID, items[0].ID)

	total, items, err = env.Campaigns.Browse(ctx, BrowseQuery{Term: "nothing like this", Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	_, all, err := env.Campaigns.ListActive(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestSearchCampaigns_IndexAndFallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "owner")
	a := env.newCampaign(t, owner, "Green Tea", 10)
	b := env.newCampaign(t, owner, "Black Tea", 10)

	idx := &fakeIndexer{result: []uuid.UUID{b, uuid.New(), a}}
	env.Campaigns.Search = idx

	total, items, err := env.Campaigns.SearchCampaigns(ctx, "tea", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, items, 2)
	assert.Equal(t, b, items[0].ID)
	assert.Equal(t, a, items[1].ID)

	idx.err = errors.New("cluster down")
	total, items, err = env.Campaigns.SearchCampaigns(ctx, "green", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)
	assert.Equal(t, a, items[0].ID)

	env.Campaigns.Search = nil
	total, _, err = env.Campaigns.SearchCampaigns(ctx, "  ", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
}

func TestDeleteCampaignAndStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.newUser(t, "owner")
	other := env.newUser(t, "other")
	idx := &fakeIndexer{}
	env.Campaigns.Search = idx

	keep := env.newCampaign(t, owner, "Keep", 10)
	drop := env.newCampaign(t, owner, "Drop", 10)
	_, err := env.Campaigns.UpdateStatus(ctx, owner, keep, models.CampaignStatusCancelled)
	require.NoError(t, err)
	_, err = env.Participations.Join(ctx, other, drop, 2)
	require.NoError(t, err)

	stats, err := env.Campaigns.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.Open)
	assert.EqualValues(t, 1, stats.Cancelled)

	assert.ErrorIs(t, env.Campaigns.Delete(ctx, other, drop), ErrForbidden)
	assert.ErrorIs(t, env.Campaigns.Delete(ctx, owner, uuid.New()), ErrNotFound)
	require.NoError(t, env.Campaigns.Delete(ctx, owner, drop))
	assert.Equal(t, []uuid.UUID{drop}, idx.deleted)

	view, err := env.Campaigns.GetWithParticipations(ctx, drop)
	require.NoError(t, err)
	assert.Nil(t, view)

	parts, err := env.Participations.ListByUser(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, parts)

	stats, err = env.Campaigns.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Total)
	assert.Zero(t, stats.Open)

	mine, err := env.Campaigns.ListByUser(ctx, owner)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, keep, mine[0].ID)
}
