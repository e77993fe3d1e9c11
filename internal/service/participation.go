package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Skotchmaster/group_buy/internal/events"
	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/Skotchmaster/group_buy/internal/querycache"
	"github.com/Skotchmaster/group_buy/internal/repo"
	"github.com/Skotchmaster/group_buy/pkg/logging"
	"github.com/google/uuid"
)

type ParticipationService struct {
	*Deps
}

type UserParticipationStats struct {
	TotalCampaigns     int `json:"total_campaigns"`
	TotalQuantity      int `json:"total_quantity"`
	CompletedCampaigns int `json:"completed_campaigns"`
	ActiveCampaigns    int `json:"active_campaigns"`
}

func mapParticipationErr(err error) error {
	switch {
	case err == nil:
		return nil
	case repo.IsNotFound(err):
		return fmt.Errorf("campaign or participation not found: %w", ErrNotFound)
	case errors.Is(err, repo.ErrCampaignNotOpen):
		return fmt.Errorf("campaign is not open: %w", ErrConflict)
	case errors.Is(err, repo.ErrPledgeLimit):
		return invalid("quantity", fmt.Sprintf("total pledge must not exceed %d", models.MaxPledgeQuantity))
	default:
		return err
	}
}

func (s *ParticipationService) afterWrite(userID, campaignID uuid.UUID) {
	s.invalidate(
		querycache.TagCampaign,
		querycache.CampaignTag(campaignID),
		querycache.TagParticipation,
		querycache.UserParticipationsTag(userID),
		querycache.CampaignParticipationsTag(campaignID),
	)
}

// Join pledges quantity to the campaign, adding to any existing pledge of the same user.
func (s *ParticipationService) Join(ctx context.Context, userID, campaignID uuid.UUID, quantity int) (*models.Participation, error) {
	l := logging.FromContext(ctx).With("svc", "participation.join", "user_id", userID, "campaign_id", campaignID)

	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	p := &models.Participation{UserID: userID, CampaignID: campaignID, Quantity: quantity}
	if err := s.Repo.JoinCampaign(ctx, p); err != nil {
		err = mapParticipationErr(err)
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrConflict) && !errors.Is(err, ErrValidation) {
			l.Error("join_error", "error", err)
		}
		return nil, err
	}

	s.afterWrite(userID, campaignID)
	events.Emit(ctx, s.Events, events.TopicParticipation, userID.String(), events.ParticipationEvent{
		Type:       events.ParticipationJoined,
		CampaignID: campaignID,
		UserID:     userID,
		Quantity:   p.Quantity,
		Added:      quantity,
	})
	l.Info("join_success", "quantity", p.Quantity)
	return p, nil
}

func (s *ParticipationService) SetQuantity(ctx context.Context, userID, campaignID uuid.UUID, quantity int) (*models.Participation, error) {
	if err := validateQuantity(quantity); err != nil {
		return nil, err
	}

	p, err := s.Repo.SetParticipationQuantity(ctx, userID, campaignID, quantity)
	if err != nil {
		return nil, mapParticipationErr(err)
	}

	s.afterWrite(userID, campaignID)
	events.Emit(ctx, s.Events, events.TopicParticipation, userID.String(), events.ParticipationEvent{
		Type:       events.ParticipationChanged,
		CampaignID: campaignID,
		UserID:     userID,
		Quantity:   p.Quantity,
	})
	return p, nil
}

func (s *ParticipationService) Leave(ctx context.Context, userID, campaignID uuid.UUID) error {
	if err := s.Repo.LeaveCampaign(ctx, userID, campaignID); err != nil {
		return mapParticipationErr(err)
	}

	s.afterWrite(userID, campaignID)
	events.Emit(ctx, s.Events, events.TopicParticipation, userID.String(), events.ParticipationEvent{
		Type:       events.ParticipationLeft,
		CampaignID: campaignID,
		UserID:     userID,
	})
	return nil
}

// GetUserParticipation returns nil when the user has not joined the campaign.
func (s *ParticipationService) GetUserParticipation(ctx context.Context, userID, campaignID uuid.UUID) (*models.Participation, error) {
	key := querycache.NewKey("participation", userID, campaignID)
	tags := []string{querycache.UserParticipationsTag(userID), querycache.CampaignParticipationsTag(campaignID)}
	return querycache.Get(ctx, s.Cache, key, tags, func(ctx context.Context) (*models.Participation, error) {
		p, err := s.Repo.GetParticipation(ctx, userID, campaignID)
		if repo.IsNotFound(err) {
			return nil, nil
		}
		return p, err
	})
}

func (s *ParticipationService) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.Participation, error) {
	key := querycache.NewKey("campaign_participations", campaignID)
	tags := []string{querycache.TagParticipation, querycache.CampaignParticipationsTag(campaignID), querycache.TagProfile}
	return querycache.Get(ctx, s.Cache, key, tags, func(ctx context.Context) ([]models.Participation, error) {
		return s.Repo.ListParticipationsByCampaign(ctx, campaignID)
	})
}

func (s *ParticipationService) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Participation, error) {
	key := querycache.NewKey("user_participations", userID)
	tags := []string{querycache.TagParticipation, querycache.UserParticipationsTag(userID), querycache.TagCampaign}
	return querycache.Get(ctx, s.Cache, key, tags, func(ctx context.Context) ([]models.Participation, error) {
		return s.Repo.ListParticipationsByUser(ctx, userID)
	})
}

func (s *ParticipationService) UserStats(ctx context.Context, userID uuid.UUID) (*UserParticipationStats, error) {
	items, err := s.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &UserParticipationStats{TotalCampaigns: len(items)}
	for _, p := range items {
		stats.TotalQuantity += p.Quantity
		if p.Campaign == nil {
			continue
		}
		switch p.Campaign.Status {
		case models.CampaignStatusCompleted:
			stats.CompletedCampaigns++
		case models.CampaignStatusOpen:
			stats.ActiveCampaigns++
		}
	}
	return stats, nil
}
