package httpapi

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"bell-crm/internal/audit"
	"bell-crm/internal/auth"
	"bell-crm/internal/automation"
	"bell-crm/internal/companies"
	"bell-crm/internal/contacts"
	"bell-crm/internal/deals"
	"bell-crm/internal/email"
	"bell-crm/internal/forms"
	"bell-crm/internal/funnel"
	"bell-crm/internal/rbac"
	"bell-crm/internal/reporting"
	"bell-crm/internal/tasks"
	"bell-crm/internal/workspace"
	"bell-crm/pkg/utils"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth       *auth.Manager
	Workspaces *workspace.Service
	Companies  *companies.Service
	Contacts   *contacts.Service
	Deals      *deals.Service
	Tasks      *tasks.Service
	Automation *automation.Settings
	Email      *email.Service
	Forms      *forms.Service
	Reporting  *reporting.Service
	Audits     *audit.Service
	DB         *sql.DB
	Redis      *redis.Client
}

// Health reports backing-store reachability. Degraded dependencies return
// 503 so load balancers rotate the instance out.
func (h Handlers) Health(c *gin.Context) {
	ctx := c.Request.Context()
	if h.DB != nil {
		if err := utils.HealthCheck(ctx, h.DB, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
	}
	if h.Redis != nil {
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// auditAdmin records a privileged team-management action, best-effort.
func (h Handlers) auditAdmin(c *gin.Context, workspaceID, userID, message, metadata string) {
	if h.Audits == nil {
		return
	}
	role, _ := auth.Role(c.Request.Context())
	_ = h.Audits.LogAdminAction(c.Request.Context(), workspaceID, userID, role, c.ClientIP(), message, metadata)
}

// identity pulls the authenticated user and workspace out of the request
// context. The auth middleware guarantees both on protected routes.
func identity(c *gin.Context) (userID, workspaceID string, ok bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return "", "", false
	}
	wid, err := auth.WorkspaceID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "workspace_id required"})
		return "", "", false
	}
	return uid, wid, true
}

// respondErr maps service sentinel errors onto HTTP statuses.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, contacts.ErrNotFound),
		errors.Is(err, companies.ErrNotFound),
		errors.Is(err, deals.ErrNotFound),
		errors.Is(err, tasks.ErrNotFound),
		errors.Is(err, forms.ErrNotFound),
		errors.Is(err, workspace.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, contacts.ErrInvalidArgument),
		errors.Is(err, companies.ErrInvalidArgument),
		errors.Is(err, deals.ErrInvalidArgument),
		errors.Is(err, tasks.ErrInvalidArgument),
		errors.Is(err, forms.ErrInvalidArgument),
		errors.Is(err, automation.ErrInvalidArgument),
		errors.Is(err, email.ErrInvalidArgument),
		errors.Is(err, workspace.ErrInvalidArgument):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, forms.ErrRateLimited):
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many submissions"})
	case errors.Is(err, forms.ErrInactive):
		c.AbortWithStatusJSON(http.StatusGone, gin.H{"error": "form no longer accepts submissions"})
	case errors.Is(err, deals.ErrAlreadyClosed):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "deal already closed"})
	case errors.Is(err, workspace.ErrUserLimit):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "plan user limit reached"})
	case errors.Is(err, email.ErrNotConnected):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "no mailbox connected"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Login resolves the user's workspace (creating one on first login, or
// consuming a pending invite) and issues a token pair carrying the
// workspace claim.
//
// NOTE: upstream identity (password/SSO) is terminated before this service;
// the request carries an already-verified user ID.
func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id required"})
		return
	}

	ctx := c.Request.Context()
	workspaceID, err := h.Workspaces.EnsureForUser(ctx, req.UserID, req.Email)
	if err != nil {
		respondErr(c, err)
		return
	}
	admin, err := h.Workspaces.IsAdmin(ctx, workspaceID, req.UserID)
	if err != nil {
		respondErr(c, err)
		return
	}
	role := rbac.RoleMember
	if admin {
		role = rbac.RoleAdmin
	}

	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, workspaceID, role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"workspace_id":  workspaceID,
		"role":          role,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken swaps a refresh token for a new pair, re-deriving the role
// from current workspace membership.
func (h Handlers) RefreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	pair, err := h.Auth.Refresh(time.Now(), req.RefreshToken, func(userID, workspaceID string) (string, error) {
		admin, err := h.Workspaces.IsAdmin(c.Request.Context(), workspaceID, userID)
		if err != nil {
			return "", err
		}
		if admin {
			return rbac.RoleAdmin, nil
		}
		return rbac.RoleMember, nil
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h Handlers) Me(c *gin.Context) {
	uid, _ := auth.UserID(c.Request.Context())
	wid, _ := auth.WorkspaceID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"user_id": uid, "workspace_id": wid, "role": role})
}

// --- Workspace ---

func (h Handlers) GetWorkspace(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	w, err := h.Workspaces.Get(c.Request.Context(), wid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h Handlers) ListMembers(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	members, err := h.Workspaces.Members(c.Request.Context(), wid)
	if err != nil {
		respondErr(c, err)
		return
	}
	invites, err := h.Workspaces.Invites(c.Request.Context(), wid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members, "invites": invites})
}

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h Handlers) CreateInvite(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	var req inviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	role := workspace.MemberRoleMember
	if req.Role == string(workspace.MemberRoleAdmin) {
		role = workspace.MemberRoleAdmin
	}
	inv, err := h.Workspaces.Invite(c.Request.Context(), wid, req.Email, role)
	if err != nil {
		respondErr(c, err)
		return
	}
	h.auditAdmin(c, wid, uid, "invite created", `{"email":`+strconv.Quote(inv.Email)+`}`)
	c.JSON(http.StatusCreated, inv)
}

func (h Handlers) RevokeInvite(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	inviteID := c.Param("invite_id")
	if err := h.Workspaces.RevokeInvite(c.Request.Context(), wid, inviteID); err != nil {
		respondErr(c, err)
		return
	}
	h.auditAdmin(c, wid, uid, "invite revoked", `{"invite_id":`+strconv.Quote(inviteID)+`}`)
	c.Status(http.StatusNoContent)
}

func (h Handlers) RemoveMember(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	target := c.Param("user_id")
	if target == uid {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "cannot remove yourself"})
		return
	}
	if err := h.Workspaces.RemoveMember(c.Request.Context(), wid, target); err != nil {
		respondErr(c, err)
		return
	}
	h.auditAdmin(c, wid, uid, "member removed", `{"user_id":`+strconv.Quote(target)+`}`)
	c.Status(http.StatusNoContent)
}

// --- Companies ---

func (h Handlers) CreateCompany(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	var in companies.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Companies.Create(c.Request.Context(), wid, uid, in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) ListCompanies(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Companies.List(c.Request.Context(), wid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"companies": out})
}

func (h Handlers) GetCompany(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Companies.Get(c.Request.Context(), wid, c.Param("company_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) UpdateCompany(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	var in companies.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Companies.Update(c.Request.Context(), wid, c.Param("company_id"), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Contacts ---

func (h Handlers) CreateContact(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	var in contacts.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Contacts.CreateLead(c.Request.Context(), wid, uid, in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) ListContacts(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	var f contacts.ListFilter
	if v := c.Query("stage"); v != "" {
		st := funnel.Stage(v)
		if !st.IsValid() {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid stage"})
			return
		}
		f.Stage = &st
	}
	if v := c.Query("type"); v != "" {
		pt := contacts.PersonType(v)
		f.PersonType = &pt
	}
	f.CompanyID = c.Query("company_id")
	f.Search = c.Query("q")

	out, err := h.Contacts.List(c.Request.Context(), wid, f)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": out})
}

func (h Handlers) GetContact(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Contacts.Get(c.Request.Context(), wid, c.Param("contact_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) UpdateContact(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	var in contacts.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Contacts.Update(c.Request.Context(), wid, c.Param("contact_id"), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type changeStageRequest struct {
	Stage string `json:"stage"`
}

func (h Handlers) ChangeContactStage(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	var req changeStageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Contacts.ChangeStage(c.Request.Context(), wid, uid, c.Param("contact_id"), funnel.Stage(req.Stage))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ContactStageHistory(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Contacts.StageHistory(c.Request.Context(), wid, c.Param("contact_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": out})
}

type deleteContactsRequest struct {
	IDs []string `json:"ids"`
}

func (h Handlers) DeleteContacts(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	var req deleteContactsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	n, err := h.Contacts.DeleteMany(c.Request.Context(), wid, uid, req.IDs)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (h Handlers) ExportContacts(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="contacts.csv"`)
	if err := h.Reporting.ExportContactsCSV(c.Request.Context(), wid, c.Writer); err != nil {
		respondErr(c, err)
	}
}

// --- Deals ---

func (h Handlers) CreateDeal(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	var in deals.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Deals.Create(c.Request.Context(), wid, in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) ListDeals(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	var f deals.ListFilter
	if v := c.Query("stage"); v != "" {
		st := deals.Stage(v)
		f.Stage = &st
	}
	f.ContactID = c.Query("contact_id")
	out, err := h.Deals.List(c.Request.Context(), wid, f)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deals": out})
}

type closeDealRequest struct {
	Won bool `json:"won"`
}

func (h Handlers) CloseDeal(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	var req closeDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Deals.Close(c.Request.Context(), wid, c.Param("deal_id"), req.Won)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- Tasks ---

func (h Handlers) CreateTask(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	var in tasks.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Tasks.Create(c.Request.Context(), wid, uid, in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) ListTasks(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	f := tasks.ListFilter{ContactID: c.Query("contact_id")}
	if c.Query("mine") == "true" {
		f.UserID = uid
	}
	if v := c.Query("status"); v != "" {
		st := tasks.Status(v)
		f.Status = &st
	}
	out, err := h.Tasks.List(c.Request.Context(), wid, f)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

func (h Handlers) ListDueTasks(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Tasks.ListDue(c.Request.Context(), wid, uid, time.Now().UTC())
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": out})
}

func (h Handlers) UpdateTask(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	var in tasks.UpdateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Tasks.Update(c.Request.Context(), wid, c.Param("task_id"), in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type snoozeRequest struct {
	Days int `json:"days"`
}

func (h Handlers) SnoozeTask(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	var req snoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Tasks.Snooze(c.Request.Context(), wid, c.Param("task_id"), req.Days)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) CompleteTask(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Tasks.Complete(c.Request.Context(), wid, uid, c.Param("task_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type logActivityRequest struct {
	ContactID  string    `json:"contact_id"`
	Type       string    `json:"type"`
	Note       string    `json:"note"`
	OccurredAt time.Time `json:"occurred_at"`
}

func (h Handlers) LogActivity(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	var req logActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Tasks.LogActivity(c.Request.Context(), wid, uid, req.ContactID,
		tasks.ActivityType(req.Type), req.Note, req.OccurredAt)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) ListActivities(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	f := tasks.ActivityFilter{
		UserID:    c.Query("user_id"),
		ContactID: c.Query("contact_id"),
	}
	out, err := h.Tasks.ListActivities(c.Request.Context(), wid, f)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"activities": out})
}

// --- Automation ---

func (h Handlers) ListRecipes(c *gin.Context) {
	uid, _, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Automation.List(c.Request.Context(), uid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipes": out})
}

type toggleRecipeRequest struct {
	Enabled bool `json:"enabled"`
}

func (h Handlers) ToggleRecipe(c *gin.Context) {
	uid, _, ok := identity(c)
	if !ok {
		return
	}
	recipeID := c.Param("recipe_id")
	if _, known := automation.RecipeByID(recipeID); !known {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown recipe"})
		return
	}
	var req toggleRecipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if err := h.Automation.SetEnabled(c.Request.Context(), uid, recipeID, req.Enabled); err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"recipe_id": recipeID, "enabled": req.Enabled})
}

// --- Email ---

const oauthStateTTL = 10 * time.Minute

// StartGoogleConnect hands back the consent URL. The state nonce is parked
// in Redis so the public callback can recover the user it belongs to.
func (h Handlers) StartGoogleConnect(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	if !h.Email.OAuthConfigured() {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "google oauth not configured"})
		return
	}
	if h.Redis == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "oauth state store unavailable"})
		return
	}
	state := uuid.NewString()
	key := "oauth:state:" + state
	if err := h.Redis.Set(c.Request.Context(), key, uid+"|"+wid, oauthStateTTL).Err(); err != nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "oauth state store unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": h.Email.AuthURL(state)})
}

// GoogleConnectCallback is hit by Google's redirect; it is unauthenticated
// and trusts only the state nonce.
func (h Handlers) GoogleConnectCallback(c *gin.Context) {
	if !h.Email.OAuthConfigured() {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "google oauth not configured"})
		return
	}
	state := c.Query("state")
	code := c.Query("code")
	if state == "" || code == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "state and code required"})
		return
	}
	if h.Redis == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "oauth state store unavailable"})
		return
	}
	val, err := h.Redis.GetDel(c.Request.Context(), "oauth:state:"+state).Result()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unknown or expired state"})
		return
	}
	uid, wid, found := strings.Cut(val, "|")
	if !found {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "malformed state"})
		return
	}

	acc, err := h.Email.CompleteGoogleAuth(c.Request.Context(), uid, wid, code)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "email": acc.Email})
}

func (h Handlers) EmailAccount(c *gin.Context) {
	uid, _, ok := identity(c)
	if !ok {
		return
	}
	acc, connected, err := h.Email.Account(c.Request.Context(), uid)
	if err != nil {
		respondErr(c, err)
		return
	}
	if !connected {
		c.JSON(http.StatusOK, gin.H{"connected": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"connected": true, "provider": acc.Provider, "email": acc.Email})
}

func (h Handlers) DisconnectEmail(c *gin.Context) {
	uid, _, ok := identity(c)
	if !ok {
		return
	}
	if err := h.Email.Disconnect(c.Request.Context(), uid); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h Handlers) EmailInbox(c *gin.Context) {
	uid, _, ok := identity(c)
	if !ok {
		return
	}
	max, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
	msgs, err := h.Email.Inbox(c.Request.Context(), uid, max)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// SyncEmailInbox links recent inbound senders to contacts, creating leads
// for unknown addresses.
func (h Handlers) SyncEmailInbox(c *gin.Context) {
	uid, _, ok := identity(c)
	if !ok {
		return
	}
	max, _ := strconv.ParseInt(c.Query("limit"), 10, 64)
	matches, err := h.Email.SyncInbox(c.Request.Context(), uid, max)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (h Handlers) EmailHistory(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	scope := ""
	if c.Query("mine") == "true" {
		scope = uid
	}
	out, err := h.Email.History(c.Request.Context(), wid, scope, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": out})
}

// --- Forms ---

func (h Handlers) CreateForm(c *gin.Context) {
	uid, wid, ok := identity(c)
	if !ok {
		return
	}
	var in forms.CreateInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Forms.Create(c.Request.Context(), wid, uid, in)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h Handlers) ListForms(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Forms.List(c.Request.Context(), wid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forms": out})
}

func (h Handlers) GetForm(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Forms.Get(c.Request.Context(), wid, c.Param("form_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

type setFormActiveRequest struct {
	Active bool `json:"active"`
}

func (h Handlers) SetFormActive(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	var req setFormActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	out, err := h.Forms.SetActive(c.Request.Context(), wid, c.Param("form_id"), req.Active)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) ListFormSubmissions(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Forms.Submissions(c.Request.Context(), wid, c.Param("form_id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": out})
}

// PublicFormCORS permits cross-origin embeds of the public form endpoints.
func PublicFormCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (h Handlers) PublicGetForm(c *gin.Context) {
	out, err := h.Forms.PublicForm(c.Request.Context(), c.Param("public_key"))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"title":       out.Title,
		"description": out.Description,
		"fields":      out.Fields,
	})
}

func (h Handlers) PublicSubmitForm(c *gin.Context) {
	var values map[string]string
	if err := c.ShouldBindJSON(&values); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	sub, err := h.Forms.Submit(c.Request.Context(), c.Param("public_key"), values)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"submission_id": sub.ID})
}

// --- Reporting ---

func (h Handlers) FunnelReport(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Reporting.Funnel(c.Request.Context(), wid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) WinRateReport(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Reporting.WinRateBySource(c.Request.Context(), wid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sources": out})
}

func (h Handlers) ActivityReport(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(c.Query("days"))
	if days <= 0 {
		days = 30
	}
	since := time.Now().UTC().AddDate(0, 0, -days)
	out, err := h.Reporting.ActivityByUser(c.Request.Context(), wid, since)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}

func (h Handlers) FormStatsReport(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	out, err := h.Reporting.Forms(c.Request.Context(), wid)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"forms": out})
}

func (h Handlers) NeedsAttentionReport(c *gin.Context) {
	_, wid, ok := identity(c)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(c.Query("days"))
	out, err := h.Reporting.NeedsAttention(c.Request.Context(), wid, days)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": out})
}
