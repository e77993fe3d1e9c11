package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/group_buy/internal/service"
	"github.com/Skotchmaster/group_buy/internal/transport"
	"github.com/Skotchmaster/group_buy/pkg/logging"
	"github.com/labstack/echo/v4"
)

type ParticipationHTTP struct {
	Svc *service.ParticipationService
}

func (h *ParticipationHTTP) ListByCampaign(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "participation.list_by_campaign")

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(l, "list_participations_error", "id is not a uuid", err)
	}
	items, err := h.Svc.ListByCampaign(ctx, id)
	if err != nil {
		return fail(l, "list_participations_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *ParticipationHTTP) Join(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "participation.join")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(l, "join_error", "id is not a uuid", err)
	}
	var req transport.QuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "join_error", "invalid body", err)
	}

	p, err := h.Svc.Join(ctx, userID, id, req.Quantity)
	if err != nil {
		return fail(l, "join_error", err)
	}

	l.Info("join_success", "campaign_id", id, "quantity", p.Quantity)
	return c.JSON(http.StatusOK, p)
}

func (h *ParticipationHTTP) GetMine(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "participation.get")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(l, "get_participation_error", "id is not a uuid", err)
	}

	p, err := h.Svc.GetUserParticipation(ctx, userID, id)
	if err != nil {
		return fail(l, "get_participation_error", err)
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "not participating")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ParticipationHTTP) SetQuantity(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "participation.set_quantity")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(l, "set_quantity_error", "id is not a uuid", err)
	}
	var req transport.QuantityRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "set_quantity_error", "invalid body", err)
	}

	p, err := h.Svc.SetQuantity(ctx, userID, id, req.Quantity)
	if err != nil {
		return fail(l, "set_quantity_error", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ParticipationHTTP) Leave(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "participation.leave")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(l, "leave_error", "id is not a uuid", err)
	}
	if err := h.Svc.Leave(ctx, userID, id); err != nil {
		return fail(l, "leave_error", err)
	}

	l.Info("leave_success", "campaign_id", id)
	return c.NoContent(http.StatusNoContent)
}
