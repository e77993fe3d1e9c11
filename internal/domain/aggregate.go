package domain

import (
	"math"

	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/shopspring/decimal"
)

// Aggregate is derived from a campaign's participations on every read and never stored.
type Aggregate struct {
	TotalQuantity     int     `json:"total_quantity"`
	ParticipantCount  int     `json:"participant_count"`
	Progress          float64 `json:"progress"`
	GoalReached       bool    `json:"goal_reached"`
	RemainingQuantity int     `json:"remaining_quantity"`
}

func Aggregates(moq int, participations []models.Participation) Aggregate {
	total := 0
	for _, p := range participations {
		total = addSaturating(total, p.Quantity)
	}
	return Aggregate{
		TotalQuantity:     total,
		ParticipantCount:  len(participations),
		Progress:          Progress(total, moq),
		GoalReached:       total >= moq,
		RemainingQuantity: max(moq-total, 0),
	}
}

func addSaturating(total, q int) int {
	if q <= 0 {
		return total
	}
	if total > math.MaxInt-q {
		return math.MaxInt
	}
	return total + q
}

// Progress returns the percentage of moq covered by total, clamped to [0, 100].
func Progress(total, moq int) float64 {
	if moq <= 0 || total <= 0 {
		return 0
	}
	p := float64(total) / float64(moq) * 100
	if p > 100 {
		return 100
	}
	return p
}

func PledgedValue(quantity int, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

type CampaignView struct {
	models.Campaign
	Aggregate
}

func NewCampaignView(c models.Campaign) CampaignView {
	return CampaignView{Campaign: c, Aggregate: Aggregates(c.MOQ, c.Participations)}
}

func NewCampaignViews(cs []models.Campaign) []CampaignView {
	out := make([]CampaignView, 0, len(cs))
	for _, c := range cs {
		out = append(out, NewCampaignView(c))
	}
	return out
}
