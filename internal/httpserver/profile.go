package httpserver

import (
	"net/http"

	"github.com/Skotchmaster/group_buy/internal/service"
	"github.com/Skotchmaster/group_buy/internal/transport"
	"github.com/Skotchmaster/group_buy/pkg/logging"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type ProfileHTTP struct {
	Svc *service.ProfileService
}

func (h *ProfileHTTP) ListProfiles(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.list")

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.List(ctx, offset, limit)
	if err != nil {
		return fail(l, "list_profiles_error", err)
	}
	return pageJSON(c, page, offset, limit, total, items)
}

func (h *ProfileHTTP) GetProfile(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.get")

	id, err := paramUUID(c, "id")
	if err != nil {
		return badRequest(l, "get_profile_error", "id is not a uuid", err)
	}
	p, err := h.Svc.GetProfile(ctx, id)
	if err != nil {
		return fail(l, "get_profile_error", err)
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProfileHTTP) GetByUsername(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.get_by_username")

	p, err := h.Svc.GetByUsername(ctx, c.Param("username"))
	if err != nil {
		return fail(l, "get_profile_error", err)
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	return c.JSON(http.StatusOK, p)
}

// UsernameAvailable answers ?username=...; an optional ?except=<id> ignores that profile.
func (h *ProfileHTTP) UsernameAvailable(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "profile.username_available")

	except := uuid.Nil
	if raw := c.QueryParam("except"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return badRequest(l, "username_available_error", "except is not a uuid", err)
		}
		except = id
	}

	ok, err := h.Svc.IsUsernameAvailable(ctx, c.QueryParam("username"), except)
	if err != nil {
		return fail(l, "username_available_error", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"available": ok})
}

type MeHTTP struct {
	Profiles       *service.ProfileService
	Campaigns      *service.CampaignService
	Participations *service.ParticipationService
	Dashboard      *service.DashboardService
}

func (h *MeHTTP) GetMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "me.get")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	p, err := h.Profiles.GetProfile(ctx, userID)
	if err != nil {
		return fail(l, "get_me_error", err)
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "profile not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *MeHTTP) PatchMe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "me.patch")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	var req transport.PatchProfileRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(l, "patch_me_error", "invalid body", err)
	}

	p, err := h.Profiles.Update(ctx, userID, service.UpdateProfileInput{
		Username:  req.Username,
		FullName:  req.FullName,
		AvatarURL: req.AvatarURL,
		Phone:     req.Phone,
	})
	if err != nil {
		return fail(l, "patch_me_error", err)
	}

	l.Info("patch_me_success", "user_id", userID)
	return c.JSON(http.StatusOK, p)
}

func (h *MeHTTP) MyCampaigns(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "me.campaigns")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	items, err := h.Campaigns.ListByUser(ctx, userID)
	if err != nil {
		return fail(l, "my_campaigns_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *MeHTTP) MyParticipations(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "me.participations")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	items, err := h.Participations.ListByUser(ctx, userID)
	if err != nil {
		return fail(l, "my_participations_error", err)
	}
	return c.JSON(http.StatusOK, map[string]any{"data": items})
}

func (h *MeHTTP) MyStats(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "me.stats")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	stats, err := h.Participations.UserStats(ctx, userID)
	if err != nil {
		return fail(l, "my_stats_error", err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *MeHTTP) MyDashboard(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "me.dashboard")

	userID, err := currentUser(c)
	if err != nil {
		return err
	}
	d, err := h.Dashboard.Get(ctx, userID)
	if err != nil {
		return fail(l, "dashboard_error", err)
	}
	return c.JSON(http.StatusOK, d)
}
