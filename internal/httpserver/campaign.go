package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/group_buy/internal/domain"
	"github.com/Skotchmaster/group_buy/internal/models"
	"github.com/Skotchmaster/group_buy/internal/service"
	"github.com/Skotchmaster/group_buy/internal/transport"
	"github.com/Skotchmaster/group_buy/internal/util"
	"github.com/Skotchmaster/group_buy/pkg/logging"
	"github.com/labstack/echo/v4"
)

type CampaignHTTP struct {
	Svc *service.CampaignService
}

func pageParams(c echo.Context) (page, offset, limit int) {
	page = max(util.ParseIntDefault(c.QueryParam("page"), 1), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit = util.Calculate(page, size)
	return page, offset, limit
}

func pageJSON[T any](c echo.Context, page, offset, limit int, total int64, items []T) error {
	if items == nil {
		items = []T{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": util.NewMeta(page, offset, limit, total),
	})
}

// ListCampaigns filters and sorts the open campaigns. No match is an empty page, not an error.
func (h *CampaignHTTP) ListCampaigns(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "campaign.list")

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.Browse(ctx, service.BrowseQuery{
		Term:   c.QueryParam("q"),
		Sort:   domain.ParseSortOrder(c.QueryParam("sort")),
		Offset: offset,
		Limit:  limit,
	})
	if err != nil {
		return fail(l, "list_campaigns_error", err)
	}
	return pageJSON(c, page, offset, limit, total, items)
}

func (h *CampaignHTTP) SearchCampaigns(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "campaign.search")

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.SearchCampaigns(ctx, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(l, "search_campaigns_error", err)
	}
	return pageJSON(c, page, offset, limit, total, items)
}

func (h *CampaignHTTP) Stats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "campaign.stats")

	stats, err := h.Svc.Stats(ctx)
	if err != nil {
		return fail(l, "campaign_stats_error", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *CampaignHTTP) GetCampaign(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "campaign.get")

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(l, "get_campaign_error", "id is not a uuid", err)
	}

	view, err := h.Svc.GetWithParticipations(ctx, id)
	if err != nil {
		return fail(l, "get_campaign_error", err)
	}
	if view == nil {
		l.Warn("get_campaign_error", "status", http.StatusNotFound, "campaign_id", id)
		return echo.NewHTTPError(http.StatusNotFound, "campaign not found")
	}
	return c.JSON(http.StatusOK, view)
}

func (h *CampaignHTTP) CreateCampaign(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "campaign.create")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req transport.CreateCampaignRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "create_campaign_error", "invalid body", err)
	}

	view, err := h.Svc.Create(ctx, userID, service.CreateCampaignInput{
		ProductName:     req.ProductName,
		ProductImage:    req.ProductImage,
		ProductLink:     req.ProductLink,
		Description:     req.Description,
		UnitPrice:       req.UnitPrice,
		MOQ:             req.MOQ,
		InitialQuantity: req.InitialQuantity,
	})
	if err != nil {
		return fail(l, "create_campaign_error", err)
	}

	l.Info("create_campaign_success", "campaign_id", view.ID)
	return c.JSON(http.StatusCreated, view)
}

func (h *CampaignHTTP) PatchCampaign(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "campaign.patch")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(l, "patch_campaign_error", "id is not a uuid", err)
	}
	var req transport.PatchCampaignRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_campaign_error", "invalid body", err)
	}

	view, err := h.Svc.Update(ctx, userID, id, service.UpdateCampaignInput{
		ProductName:  req.ProductName,
		ProductImage: req.ProductImage,
		ProductLink:  req.ProductLink,
		Description:  req.Description,
		UnitPrice:    req.UnitPrice,
		MOQ:          req.MOQ,
	})
	if err != nil {
		return fail(l, "patch_campaign_error", err)
	}

	l.Info("patch_campaign_success", "campaign_id", id)
	return c.JSON(http.StatusOK, view)
}

func (h *CampaignHTTP) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "campaign.update_status")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(l, "update_status_error", "id is not a uuid", err)
	}
	var req transport.UpdateStatusRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "update_status_error", "invalid body", err)
	}

	view, err := h.Svc.UpdateStatus(ctx, userID, id, models.CampaignStatus(req.Status))
	if err != nil {
		return fail(l, "update_status_error", err)
	}

	l.Info("update_status_success", "campaign_id", id, "campaign_status", view.Status)
	return c.JSON(http.StatusOK, view)
}

func (h *CampaignHTTP) DeleteCampaign(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "campaign.delete")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(l, "delete_campaign_error", "id is not a uuid", err)
	}
	if err := h.Svc.Delete(ctx, userID, id); err != nil {
		return fail(l, "delete_campaign_error", err)
	}

	l.Info("delete_campaign_success", "campaign_id", id)
	return c.NoContent(http.StatusNoContent)
}
