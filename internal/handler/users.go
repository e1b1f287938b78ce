package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/apperr"
	"github.com/jmerrifield20/skillswap/internal/identity"
	"github.com/jmerrifield20/skillswap/internal/ratings"
	"github.com/jmerrifield20/skillswap/internal/users"
	"go.uber.org/zap"
)

// profileSvc is the interface expected by UserHandler, satisfied by *users.UserService.
type profileSvc interface {
	ListDirectory(ctx context.Context, q users.DirectoryQuery) (*users.DirectoryPage, error)
	GetProfile(ctx context.Context, viewer, id uuid.UUID) (*users.User, error)
	UpdateProfile(ctx context.Context, actor, id uuid.UUID, upd users.ProfileUpdate) (*users.User, error)
}

// receivedRatings is satisfied by *ratings.RatingService.
type receivedRatings interface {
	ListReceived(ctx context.Context, ratee uuid.UUID) ([]*ratings.Rating, error)
}

// UserHandler serves the member directory and profiles.
type UserHandler struct {
	users   profileSvc
	ratings receivedRatings
	tokens  *identity.SessionIssuer
	logger  *zap.Logger
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(svc profileSvc, rs receivedRatings, tokens *identity.SessionIssuer, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: svc, ratings: rs, tokens: tokens, logger: logger}
}

// Register mounts the /users routes.
func (h *UserHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/users")
	g.GET("", h.List)
	g.GET("/:id", identity.OptionalUserToken(h.tokens), h.Get)
	g.PUT("/:id", identity.RequireUserToken(h.tokens), h.Update)
	g.GET("/:id/ratings", identity.OptionalUserToken(h.tokens), h.Ratings)
}

// List handles GET /users?search=&page=&limit=.
func (h *UserHandler) List(c *gin.Context) {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	limit, err := queryInt(c, "limit", users.DefaultPageSize)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	res, err := h.users.ListDirectory(c.Request.Context(), users.DirectoryQuery{
		Search: c.Query("search"),
		Page:   page,
		Limit:  limit,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Get handles GET /users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id", "user")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	u, err := h.users.GetProfile(c.Request.Context(), identity.UserIDFromCtx(c), id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Update handles PUT /users/:id.
func (h *UserHandler) Update(c *gin.Context) {
	id, err := pathID(c, "id", "user")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var upd users.ProfileUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		badBody(c)
		return
	}
	u, err := h.users.UpdateProfile(c.Request.Context(), identity.UserIDFromCtx(c), id, upd)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Ratings handles GET /users/:id/ratings. Visibility follows the profile.
func (h *UserHandler) Ratings(c *gin.Context) {
	id, err := pathID(c, "id", "user")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.users.GetProfile(ctx, identity.UserIDFromCtx(c), id); err != nil {
		writeError(c, h.logger, err)
		return
	}
	list, err := h.ratings.ListReceived(ctx, id)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ratings": list, "count": len(list)})
}

// queryInt parses an optional integer query parameter.
func queryInt(c *gin.Context, key string, def int) (int, error) {
	raw, ok := c.GetQuery(key)
	if !ok || raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperr.InvalidArgument("%s must be a number", key)
	}
	return n, nil
}
