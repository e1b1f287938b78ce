package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/identity"
	"github.com/jmerrifield20/skillswap/internal/users"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// accountSvc is the interface expected by AuthHandler, satisfied by *users.UserService.
type accountSvc interface {
	Register(ctx context.Context, email, password, name string) (*users.User, error)
	Authenticate(ctx context.Context, email, password string) (*users.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
	GetOrCreateFromOAuth(ctx context.Context, email, name string) (*users.User, bool, error)
}

// AuthHandler handles account and session routes.
type AuthHandler struct {
	users       accountSvc
	tokens      *identity.SessionIssuer
	oauth       *oauthClient
	frontendURL string
	logger      *zap.Logger
}

// NewAuthHandler creates an AuthHandler.
// oauthProviders may be nil or empty to disable OAuth routes.
func NewAuthHandler(
	svc accountSvc,
	tokens *identity.SessionIssuer,
	oauthProviders map[string]OAuthProviderConfig,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:       svc,
		tokens:      tokens,
		oauth:       newOAuthClient(oauthProviders),
		frontendURL: "http://localhost:3000",
		logger:      logger,
	}
}

// SetFrontendURL sets the base URL of the frontend for OAuth callback redirects.
func (h *AuthHandler) SetFrontendURL(u string) {
	h.frontendURL = u
}

// Register mounts all auth routes on the provided router group.
func (h *AuthHandler) Register(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", h.Signup)
		auth.POST("/login", h.Login)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", identity.RequireUserToken(h.tokens), h.Me)
		auth.GET("/oauth/:provider", h.OAuthRedirect)
		auth.GET("/oauth/:provider/callback", h.OAuthCallback)
	}
}

// ─── Request types ───────────────────────────────────────────────────────────

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ─── Handlers ────────────────────────────────────────────────────────────────

// Signup handles POST /auth/register.
func (h *AuthHandler) Signup(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}

	u, err := h.users.Register(c.Request.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	RecordRegistration("password")

	c.JSON(http.StatusCreated, gin.H{
		"message": "User created successfully",
		"id":      u.ID,
		"email":   u.Email,
		"name":    u.Name,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	tok, err := h.tokens.Issue(u.ID, u.Email, u.Name)
	if err != nil {
		writeError(c, h.logger, fmt.Errorf("issue session after login: %w", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":     tok,
		"expiresIn": int(h.tokens.TTL().Seconds()),
		"user":      u,
	})
}

// Logout handles POST /auth/logout.
// Sessions are stateless JWTs, so the client completes logout by discarding its token.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out; discard your token client-side"})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	u, err := h.users.GetByID(c.Request.Context(), identity.UserIDFromCtx(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// OAuthRedirect handles GET /auth/oauth/:provider.
func (h *AuthHandler) OAuthRedirect(c *gin.Context) {
	provider := c.Param("provider")
	cfg, ok := h.oauth.config(provider)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("OAuth provider %q not configured", provider)})
		return
	}

	state, err := h.tokens.IssueOAuthState(provider)
	if err != nil {
		writeError(c, h.logger, fmt.Errorf("generate oauth state: %w", err))
		return
	}

	c.Redirect(http.StatusFound, cfg.AuthCodeURL(state, oauth2.AccessTypeOnline))
}

// OAuthCallback handles GET /auth/oauth/:provider/callback.
func (h *AuthHandler) OAuthCallback(c *gin.Context) {
	provider := c.Param("provider")
	cfg, ok := h.oauth.config(provider)
	if !ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": fmt.Sprintf("OAuth provider %q not configured", provider)})
		return
	}

	gotProvider, err := h.tokens.VerifyOAuthState(c.Query("state"))
	if err != nil || gotProvider != provider {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid OAuth state"})
		return
	}

	code := c.Query("code")
	if code == "" {
		errMsg := c.Query("error_description")
		if errMsg == "" {
			errMsg = c.Query("error")
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "OAuth authorization failed: " + errMsg})
		return
	}

	ctx := c.Request.Context()
	oauthToken, err := cfg.Exchange(ctx, code)
	if err != nil {
		h.logger.Warn("oauth code exchange", zap.String("provider", provider), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "OAuth code exchange failed"})
		return
	}

	email, name, err := h.oauth.userInfo(ctx, provider, oauthToken.AccessToken)
	if err != nil {
		writeError(c, h.logger, fmt.Errorf("fetch %s user info: %w", provider, err))
		return
	}

	u, created, err := h.users.GetOrCreateFromOAuth(ctx, email, name)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if created {
		RecordRegistration(provider)
	}

	tok, err := h.tokens.Issue(u.ID, u.Email, u.Name)
	if err != nil {
		writeError(c, h.logger, fmt.Errorf("issue session after oauth: %w", err))
		return
	}

	// The fragment is never sent to a server, so the token stays in the browser.
	c.Redirect(http.StatusFound, h.frontendURL+"/oauth/callback#token="+url.QueryEscape(tok))
}
