package service

import (
	"context"

	"github.com/Skotchmaster/group_buy/internal/events"
	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/Skotchmaster/group_buy/internal/querycache"
	"github.com/Skotchmaster/group_buy/internal/repo"
	"github.com/google/uuid"
)

// Indexer is the full-text side of the campaign store.
type Indexer interface {
	IndexCampaign(ctx context.Context, c *models.Campaign) error
	DeleteCampaign(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, from, size int) (int64, []uuid.UUID, error)
}

// Deps are shared by every service.
type Deps struct {
	Repo   *repo.GormRepo
	Cache  *querycache.Cache
	Events events.Publisher
}

func (d *Deps) invalidate(tags ...string) {
	d.Cache.Invalidate(tags...)
}
