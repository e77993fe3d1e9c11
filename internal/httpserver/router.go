package httpserver

import (
	"context"
	"net/http"

	authmw "github.com/Skotchmaster/group_buy/pkg/middleware/auth"
	"github.com/labstack/echo/v4"
)

type Deps struct {
	AuthHandler          *AuthHTTP
	CampaignHandler      *CampaignHTTP
	ParticipationHandler *ParticipationHTTP
	ProfileHandler       *ProfileHTTP
	MeHandler            *MeHTTP
	AuthMW               *authmw.AutoRefreshMiddleware
	// Ready is optional; /health/ready answers 503 while it fails.
	Ready func(ctx context.Context) error
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.NoContent(http.StatusServiceUnavailable)
			}
		}
		return c.NoContent(http.StatusOK)
	})

	requireAuth := d.AuthMW.RequireAuth
	api := e.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/signup", d.AuthHandler.SignUp)
	auth.POST("/signin", d.AuthHandler.SignIn)
	auth.POST("/signout", d.AuthHandler.SignOut)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.GET("/session", d.AuthHandler.Session, requireAuth)
	auth.PATCH("/password", d.AuthHandler.UpdatePassword, requireAuth)

	campaigns := api.Group("/campaigns")
	campaigns.GET("", d.CampaignHandler.ListCampaigns)
	campaigns.GET("/search", d.CampaignHandler.SearchCampaigns)
	campaigns.GET("/stats", d.CampaignHandler.Stats)
	campaigns.GET("/:id", d.CampaignHandler.GetCampaign)
	campaigns.GET("/:id/participations", d.ParticipationHandler.ListByCampaign)

	owned := campaigns.Group("", requireAuth)
	owned.POST("", d.CampaignHandler.CreateCampaign)
	owned.PATCH("/:id", d.CampaignHandler.PatchCampaign)
	owned.PATCH("/:id/status", d.CampaignHandler.UpdateStatus)
	owned.DELETE("/:id", d.CampaignHandler.DeleteCampaign)
	owned.POST("/:id/join", d.ParticipationHandler.Join)
	owned.GET("/:id/participation", d.ParticipationHandler.GetMine)
	owned.PATCH("/:id/participation", d.ParticipationHandler.SetQuantity)
	owned.DELETE("/:id/participation", d.ParticipationHandler.Leave)

	profiles := api.Group("/profiles")
	profiles.GET("", d.ProfileHandler.ListProfiles)
	profiles.GET("/available", d.ProfileHandler.UsernameAvailable)
	profiles.GET("/by-username/:username", d.ProfileHandler.GetByUsername)
	profiles.GET("/:id", d.ProfileHandler.GetProfile)

	me := api.Group("/me", requireAuth)
	me.GET("", d.MeHandler.GetMe)
	me.PATCH("", d.MeHandler.PatchMe)
	me.GET("/campaigns", d.MeHandler.MyCampaigns)
	me.GET("/participations", d.MeHandler.MyParticipations)
	me.GET("/stats", d.MeHandler.MyStats)
	me.GET("/dashboard", d.MeHandler.MyDashboard)
}
