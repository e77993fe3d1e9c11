package service

import (
	"context"

	"github.com/Skotchmaster/group_buy/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type JoinedCampaign struct {
	domain.CampaignView
	MyQuantity   int             `json:"my_quantity"`
	PledgedValue decimal.Decimal `json:"pledged_value"`
}

type Dashboard struct {
	Created        []domain.CampaignView   `json:"created"`
	Joined         []JoinedCampaign        `json:"joined"`
	TotalCommitted decimal.Decimal         `json:"total_committed"`
	Stats          *UserParticipationStats `json:"stats"`
}

type DashboardService struct {
	Campaigns      *CampaignService
	Participations *ParticipationService
}

// Get loads what the user created and what they joined in parallel.
func (s *DashboardService) Get(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	d := &Dashboard{TotalCommitted: decimal.Zero}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		created, err := s.Campaigns.ListByUser(gctx, userID)
		if err != nil {
			return err
		}
		d.Created = created
		return nil
	})
	g.Go(func() error {
		parts, err := s.Participations.ListByUser(gctx, userID)
		if err != nil {
			return err
		}
		joined := make([]JoinedCampaign, 0, len(parts))
		for _, p := range parts {
			if p.Campaign == nil {
				continue
			}
			value := domain.PledgedValue(p.Quantity, p.Campaign.UnitPrice)
			joined = append(joined, JoinedCampaign{
				CampaignView: domain.NewCampaignView(*p.Campaign),
				MyQuantity:   p.Quantity,
				PledgedValue: value,
			})
			d.TotalCommitted = d.TotalCommitted.Add(value)
		}
		d.Joined = joined
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stats, err := s.Participations.UserStats(ctx, userID)
	if err != nil {
		return nil, err
	}
	d.Stats = stats
	return d, nil
}
