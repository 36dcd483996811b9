package main

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bell-crm/internal/httpapi"
	"bell-crm/internal/rbac"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers) {
	// public
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public lead-capture forms, embeddable cross-origin.
	f := r.Group("/f/:public_key")
	f.Use(httpapi.PublicFormCORS())
	{
		f.GET("", h.PublicGetForm)
		f.POST("", h.PublicSubmitForm)
		f.OPTIONS("", func(c *gin.Context) {})
	}

	// Token issuance and the Google OAuth redirect land before auth.
	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.RefreshToken)
	r.GET("/v1/email/connect/google/callback", h.GoogleConnectCallback)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/me", h.Me)

		ws := v1.Group("/workspace")
		ws.Use(rbac.RequireWorkspace())
		{
			ws.GET("", h.GetWorkspace)
			ws.GET("/members", h.ListMembers)

			admin := ws.Group("")
			admin.Use(rbac.RequireAnyRole(rbac.RoleAdmin, rbac.RoleSuperAdmin))
			{
				admin.POST("/invites", h.CreateInvite)
				admin.DELETE("/invites/:invite_id", h.RevokeInvite)
				admin.DELETE("/members/:user_id", h.RemoveMember)
			}
		}

		comp := v1.Group("/companies")
		comp.Use(rbac.RequireWorkspace())
		{
			comp.POST("", h.CreateCompany)
			comp.GET("", h.ListCompanies)
			comp.GET("/:company_id", h.GetCompany)
			comp.PATCH("/:company_id", h.UpdateCompany)
		}

		con := v1.Group("/contacts")
		con.Use(rbac.RequireWorkspace())
		{
			con.POST("", h.CreateContact)
			con.GET("", h.ListContacts)
			con.GET("/export.csv", h.ExportContacts)
			con.POST("/delete", h.DeleteContacts)
			con.GET("/:contact_id", h.GetContact)
			con.PATCH("/:contact_id", h.UpdateContact)
			con.POST("/:contact_id/stage", h.ChangeContactStage)
			con.GET("/:contact_id/stage-history", h.ContactStageHistory)
		}

		dl := v1.Group("/deals")
		dl.Use(rbac.RequireWorkspace())
		{
			dl.POST("", h.CreateDeal)
			dl.GET("", h.ListDeals)
			dl.POST("/:deal_id/close", h.CloseDeal)
		}

		tk := v1.Group("/tasks")
		tk.Use(rbac.RequireWorkspace())
		{
			tk.POST("", h.CreateTask)
			tk.GET("", h.ListTasks)
			tk.GET("/due", h.ListDueTasks)
			tk.PATCH("/:task_id", h.UpdateTask)
			tk.POST("/:task_id/snooze", h.SnoozeTask)
			tk.POST("/:task_id/complete", h.CompleteTask)
		}

		act := v1.Group("/activities")
		act.Use(rbac.RequireWorkspace())
		{
			act.POST("", h.LogActivity)
			act.GET("", h.ListActivities)
		}

		// Recipe enablement is per user, not per workspace.
		auto := v1.Group("/automation")
		{
			auto.GET("/recipes", h.ListRecipes)
			auto.PUT("/recipes/:recipe_id", h.ToggleRecipe)
		}

		em := v1.Group("/email")
		em.Use(rbac.RequireWorkspace())
		{
			em.POST("/connect/google", h.StartGoogleConnect)
			em.GET("/account", h.EmailAccount)
			em.DELETE("/account", h.DisconnectEmail)
			em.GET("/inbox", h.EmailInbox)
			em.POST("/inbox/sync", h.SyncEmailInbox)
			em.GET("/history", h.EmailHistory)
		}

		fm := v1.Group("/forms")
		fm.Use(rbac.RequireWorkspace())
		{
			fm.POST("", h.CreateForm)
			fm.GET("", h.ListForms)
			fm.GET("/:form_id", h.GetForm)
			fm.PUT("/:form_id/active", h.SetFormActive)
			fm.GET("/:form_id/submissions", h.ListFormSubmissions)
		}

		rep := v1.Group("/reports")
		rep.Use(rbac.RequireWorkspace())
		{
			rep.GET("/funnel", h.FunnelReport)
			rep.GET("/win-rate", h.WinRateReport)
			rep.GET("/activity", h.ActivityReport)
			rep.GET("/forms", h.FormStatsReport)
			rep.GET("/needs-attention", h.NeedsAttentionReport)
		}
	}
}
