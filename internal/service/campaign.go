package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Skotchmaster/group_buy/internal/domain"
	"github.com/Skotchmaster/group_buy/internal/events"
	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/Skotchmaster/group_buy/internal/querycache"
	"github.com/Skotchmaster/group_buy/internal/repo"
	"github.com/Skotchmaster/group_buy/pkg/logging"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CampaignService struct {
	*Deps
	Participations *ParticipationService
	// Search is optional; without it search runs in the database.
	Search Indexer
}

type CreateCampaignInput struct {
	ProductName     string
	ProductImage    *string
	ProductLink     *string
	Description     *string
	UnitPrice       decimal.Decimal
	MOQ             int
	InitialQuantity int
}

type UpdateCampaignInput struct {
	ProductName  *string
	ProductImage *string
	ProductLink  *string
	Description  *string
	UnitPrice    *decimal.Decimal
	MOQ          *int
}

type CampaignStats struct {
	Total     int64 `json:"total"`
	Open      int64 `json:"open"`
	Completed int64 `json:"completed"`
	Cancelled int64 `json:"cancelled"`
}

type BrowseQuery struct {
	Term   string
	Sort   domain.SortOrder
	Offset int
	Limit  int
}

func (s *CampaignService) afterWrite(c *models.Campaign) {
	s.invalidate(
		querycache.TagCampaign,
		querycache.CampaignTag(c.ID),
		querycache.UserCampaignsTag(c.CreatedBy),
	)
}

func (s *CampaignService) reindex(ctx context.Context, c *models.Campaign) {
	if s.Search == nil {
		return
	}
	if err := s.Search.IndexCampaign(ctx, c); err != nil {
		logging.FromContext(ctx).Error("search_index_error", "campaign_id", c.ID, "error", err)
	}
}

func (s *CampaignService) emit(ctx context.Context, typ string, c *models.Campaign) {
	events.Emit(ctx, s.Events, events.TopicCampaign, c.CreatedBy.String(), events.CampaignEvent{
		Type:        typ,
		CampaignID:  c.ID,
		UserID:      c.CreatedBy,
		ProductName: c.ProductName,
		Status:      string(c.Status),
	})
}

func validateCreate(in *CreateCampaignInput) error {
	in.ProductName = strings.TrimSpace(in.ProductName)
	if err := validateProductName(in.ProductName); err != nil {
		return err
	}
	if err := validateDescription(in.Description); err != nil {
		return err
	}
	if err := validateUnitPrice(in.UnitPrice); err != nil {
		return err
	}
	if err := validateMOQ(in.MOQ); err != nil {
		return err
	}
	if err := validateURL("product_link", in.ProductLink); err != nil {
		return err
	}
	if err := validateURL("product_image", in.ProductImage); err != nil {
		return err
	}
	if in.InitialQuantity < 0 {
		return invalid("initial_quantity", "must not be negative")
	}
	if in.InitialQuantity > models.MaxPledgeQuantity {
		return invalid("initial_quantity", fmt.Sprintf("must not exceed %d", models.MaxPledgeQuantity))
	}
	return nil
}

// Create stores an open campaign owned by userID. A positive InitialQuantity is stored as the
// owner's pledge in the same transaction.
func (s *CampaignService) Create(ctx context.Context, userID uuid.UUID, in CreateCampaignInput) (*domain.CampaignView, error) {
	l := logging.FromContext(ctx).With("svc", "campaign.create", "user_id", userID)

	if err := validateCreate(&in); err != nil {
		return nil, err
	}

	c := &models.Campaign{
		CreatedBy:    userID,
		ProductName:  in.ProductName,
		ProductImage: emptyToNil(in.ProductImage),
		ProductLink:  emptyToNil(in.ProductLink),
		Description:  emptyToNil(in.Description),
		UnitPrice:    in.UnitPrice,
		MOQ:          in.MOQ,
		Status:       models.CampaignStatusOpen,
	}
	var pledge *models.Participation
	var err error
	if in.InitialQuantity > 0 {
		pledge = &models.Participation{Quantity: in.InitialQuantity}
		err = s.Repo.CreateCampaignWithPledge(ctx, c, pledge)
	} else {
		err = s.Repo.CreateCampaign(ctx, c)
	}
	if err != nil {
		l.Error("create_campaign_error", "error", err)
		return nil, err
	}
	s.afterWrite(c)
	s.reindex(ctx, c)
	s.emit(ctx, events.CampaignCreated, c)

	if pledge != nil {
		s.Participations.afterWrite(userID, c.ID)
		events.Emit(ctx, s.Events, events.TopicParticipation, userID.String(), events.ParticipationEvent{
			Type:       events.ParticipationJoined,
			CampaignID: c.ID,
			UserID:     userID,
			Quantity:   pledge.Quantity,
			Added:      pledge.Quantity,
		})
		c.Participations = []models.Participation{*pledge}
	}

	l.Info("create_campaign_success", "campaign_id", c.ID)
	view := domain.NewCampaignView(*c)
	return &view, nil
}

// Get returns nil when the campaign does not exist.
func (s *CampaignService) Get(ctx context.Context, id uuid.UUID) (*models.Campaign, error) {
	c, err := s.Repo.GetCampaign(ctx, id)
	if repo.IsNotFound(err) {
		return nil, nil
	}
	return c, err
}

// GetWithParticipations returns the campaign, its pledges with profiles and the derived totals,
// or nil when the campaign does not exist.
func (s *CampaignService) GetWithParticipations(ctx context.Context, id uuid.UUID) (*domain.CampaignView, error) {
	key := querycache.NewKey("campaign", id)
	tags := []string{
		querycache.CampaignTag(id),
		querycache.CampaignParticipationsTag(id),
		querycache.TagProfile,
	}
	return querycache.Get(ctx, s.Cache, key, tags, func(ctx context.Context) (*domain.CampaignView, error) {
		c, err := s.Repo.GetCampaignWithParticipations(ctx, id)
		if repo.IsNotFound(err) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		view := domain.NewCampaignView(*c)
		return &view, nil
	})
}

// ListActive returns open campaigns newest first. A zero limit returns all of them.
func (s *CampaignService) ListActive(ctx context.Context, offset, limit int) (int64, []domain.CampaignView, error) {
	type page struct {
		total int64
		views []domain.CampaignView
	}
	key := querycache.NewKey("campaigns_active", offset, limit)
	tags := []string{querycache.TagCampaign, querycache.TagParticipation}
	p, err := querycache.Get(ctx, s.Cache, key, tags, func(ctx context.Context) (page, error) {
		open := models.CampaignStatusOpen
		total, items, err := s.Repo.ListCampaigns(ctx, &open, offset, limit)
		if err != nil {
			return page{}, err
		}
		return page{total: total, views: domain.NewCampaignViews(items)}, nil
	})
	if err != nil {
		return 0, nil, err
	}
	return p.total, p.views, nil
}

// Browse filters and sorts all open campaigns, then slices out one page.
func (s *CampaignService) Browse(ctx context.Context, q BrowseQuery) (int64, []domain.CampaignView, error) {
	_, all, err := s.ListActive(ctx, 0, 0)
	if err != nil {
		return 0, nil, err
	}

	matched := domain.Filter(all, q.Term)
	domain.Sort(matched, q.Sort)
	return int64(len(matched)), domain.Page(matched, q.Offset, q.Limit), nil
}

func (s *CampaignService) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.CampaignView, error) {
	key := querycache.NewKey("user_campaigns", userID)
	tags := []string{querycache.UserCampaignsTag(userID), querycache.TagParticipation}
	return querycache.Get(ctx, s.Cache, key, tags, func(ctx context.Context) ([]domain.CampaignView, error) {
		items, err := s.Repo.ListCampaignsByCreator(ctx, userID)
		if err != nil {
			return nil, err
		}
		return domain.NewCampaignViews(items), nil
	})
}

// SearchCampaigns ranks open campaigns through the search index and falls back to a database
// substring match when the index is missing or failing.
func (s *CampaignService) SearchCampaigns(ctx context.Context, term string, offset, limit int) (int64, []domain.CampaignView, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return s.ListActive(ctx, offset, limit)
	}

	if s.Search != nil {
		total, ids, err := s.Search.Search(ctx, term, offset, limit)
		if err == nil {
			items, err := s.Repo.FindCampaignsByIDs(ctx, ids)
			if err != nil {
				return 0, nil, err
			}
			return total, domain.NewCampaignViews(orderByIDs(items, ids)), nil
		}
		logging.FromContext(ctx).Warn("search_index_unavailable", "error", err)
	}

	total, items, err := s.Repo.SearchCampaigns(ctx, term, offset, limit)
	if err != nil {
		return 0, nil, err
	}
	return total, domain.NewCampaignViews(items), nil
}

// orderByIDs keeps the ranking of ids and drops rows that are no longer open.
func orderByIDs(items []models.Campaign, ids []uuid.UUID) []models.Campaign {
	byID := make(map[uuid.UUID]models.Campaign, len(items))
	for _, c := range items {
		byID[c.ID] = c
	}
	out := make([]models.Campaign, 0, len(ids))
	for _, id := range ids {
		if c, ok := byID[id]; ok && c.Status == models.CampaignStatusOpen {
			out = append(out, c)
		}
	}
	return out
}

func mapCampaignErr(err error) error {
	if repo.IsNotFound(err) {
		return fmt.Errorf("campaign not found: %w", ErrNotFound)
	}
	return err
}

func requireOwner(c *models.Campaign, userID uuid.UUID) error {
	if c.CreatedBy != userID {
		return fmt.Errorf("campaign %s belongs to another user: %w", c.ID, ErrForbidden)
	}
	return nil
}

// Update changes product fields of an open campaign owned by userID.
func (s *CampaignService) Update(ctx context.Context, userID, id uuid.UUID, in UpdateCampaignInput) (*domain.CampaignView, error) {
	c, err := s.Repo.MutateCampaign(ctx, id, func(c *models.Campaign) error {
		if err := requireOwner(c, userID); err != nil {
			return err
		}
		if c.Status != models.CampaignStatusOpen {
			return fmt.Errorf("campaign is %s: %w", c.Status, ErrConflict)
		}
		return applyUpdate(c, in)
	})
	if err != nil {
		return nil, mapCampaignErr(err)
	}

	s.afterWrite(c)
	s.reindex(ctx, c)
	s.emit(ctx, events.CampaignUpdated, c)
	view := domain.NewCampaignView(*c)
	return &view, nil
}

func applyUpdate(c *models.Campaign, in UpdateCampaignInput) error {
	if in.ProductName != nil {
		name := strings.TrimSpace(*in.ProductName)
		if err := validateProductName(name); err != nil {
			return err
		}
		c.ProductName = name
	}
	if in.Description != nil {
		if err := validateDescription(in.Description); err != nil {
			return err
		}
		c.Description = emptyToNil(in.Description)
	}
	if in.ProductLink != nil {
		if err := validateURL("product_link", in.ProductLink); err != nil {
			return err
		}
		c.ProductLink = emptyToNil(in.ProductLink)
	}
	if in.ProductImage != nil {
		if err := validateURL("product_image", in.ProductImage); err != nil {
			return err
		}
		c.ProductImage = emptyToNil(in.ProductImage)
	}
	if in.UnitPrice != nil {
		if err := validateUnitPrice(*in.UnitPrice); err != nil {
			return err
		}
		c.UnitPrice = *in.UnitPrice
	}
	if in.MOQ != nil {
		if err := validateMOQ(*in.MOQ); err != nil {
			return err
		}
		c.MOQ = *in.MOQ
	}
	return nil
}

// UpdateStatus moves an open campaign to completed, once its goal is reached, or to cancelled.
func (s *CampaignService) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status models.CampaignStatus) (*domain.CampaignView, error) {
	if !status.Valid() {
		return nil, invalid("status", "must be one of open, completed, cancelled")
	}

	c, err := s.Repo.MutateCampaign(ctx, id, func(c *models.Campaign) error {
		if err := requireOwner(c, userID); err != nil {
			return err
		}
		if c.Status.Terminal() {
			return fmt.Errorf("campaign is already %s: %w", c.Status, ErrConflict)
		}
		switch status {
		case models.CampaignStatusOpen:
			return fmt.Errorf("campaign is already open: %w", ErrConflict)
		case models.CampaignStatusCompleted:
			if !domain.Aggregates(c.MOQ, c.Participations).GoalReached {
				return fmt.Errorf("goal not reached: %w", ErrConflict)
			}
		}
		c.Status = status
		return nil
	})
	if err != nil {
		return nil, mapCampaignErr(err)
	}

	s.afterWrite(c)
	s.invalidate(querycache.TagParticipation)
	s.reindex(ctx, c)
	s.emit(ctx, events.CampaignStatusChanged, c)
	view := domain.NewCampaignView(*c)
	return &view, nil
}

func (s *CampaignService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	var deleted models.Campaign
	err := s.Repo.DeleteCampaign(ctx, id, func(c *models.Campaign) error {
		deleted = *c
		return requireOwner(c, userID)
	})
	if err != nil {
		return mapCampaignErr(err)
	}

	s.afterWrite(&deleted)
	s.invalidate(querycache.TagParticipation, querycache.CampaignParticipationsTag(id))
	if s.Search != nil {
		if err := s.Search.DeleteCampaign(ctx, id); err != nil {
			logging.FromContext(ctx).Error("search_delete_error", "campaign_id", id, "error", err)
		}
	}
	s.emit(ctx, events.CampaignDeleted, &deleted)
	return nil
}

func (s *CampaignService) Stats(ctx context.Context) (*CampaignStats, error) {
	key := querycache.NewKey("campaign_stats")
	return querycache.Get(ctx, s.Cache, key, []string{querycache.TagCampaign}, func(ctx context.Context) (*CampaignStats, error) {
		rows, err := s.Repo.CountCampaignsByStatus(ctx)
		if err != nil {
			return nil, err
		}
		stats := &CampaignStats{}
		for _, r := range rows {
			stats.Total += r.N
			switch r.Status {
			case models.CampaignStatusOpen:
				stats.Open = r.N
			case models.CampaignStatusCompleted:
				stats.Completed = r.N
			case models.CampaignStatusCancelled:
				stats.Cancelled = r.N
			}
		}
		return stats, nil
	})
}

