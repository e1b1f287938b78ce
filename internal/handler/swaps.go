package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/identity"
	"github.com/jmerrifield20/skillswap/internal/swaps"
	"go.uber.org/zap"
)

// swapSvc is the interface expected by SwapHandler, satisfied by *swaps.SwapService.
type swapSvc interface {
	Create(ctx context.Context, requester uuid.UUID, req swaps.CreateRequest) (*swaps.Populated, error)
	Get(ctx context.Context, id, actor uuid.UUID) (*swaps.Populated, error)
	Transition(ctx context.Context, id, actor uuid.UUID, status string) (*swaps.Populated, error)
	Delete(ctx context.Context, id, actor uuid.UUID) error
	List(ctx context.Context, actor uuid.UUID, f swaps.Filter) ([]*swaps.Populated, error)
}

// SwapHandler serves the swap request lifecycle. Every route needs a session.
type SwapHandler struct {
	swaps  swapSvc
	tokens *identity.SessionIssuer
	logger *zap.Logger
}

// NewSwapHandler creates a SwapHandler.
func NewSwapHandler(svc swapSvc, tokens *identity.SessionIssuer, logger *zap.Logger) *SwapHandler {
	return &SwapHandler{swaps: svc, tokens: tokens, logger: logger}
}

// Register mounts the /swaps routes.
func (h *SwapHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/swaps", identity.RequireUserToken(h.tokens))
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Transition)
	g.DELETE("/:id", h.Delete)
}

type createSwapRequest struct {
	Receiver       string `json:"receiver"`
	SkillOffered   string `json:"skillOffered"`
	SkillRequested string `json:"skillRequested"`
	Message        string `json:"message"`
}

type transitionRequest struct {
	Status string `json:"status"`
}

// Create handles POST /swaps.
func (h *SwapHandler) Create(c *gin.Context) {
	var req createSwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	receiver, err := bodyID(req.Receiver, "receiver")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	p, err := h.swaps.Create(c.Request.Context(), identity.UserIDFromCtx(c), swaps.CreateRequest{
		Receiver:       receiver,
		SkillOffered:   req.SkillOffered,
		SkillRequested: req.SkillRequested,
		Message:        req.Message,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	RecordSwapEvent(string(swaps.StatusPending))
	c.JSON(http.StatusCreated, p)
}

// List handles GET /swaps?type=sent|received.
func (h *SwapHandler) List(c *gin.Context) {
	list, err := h.swaps.List(c.Request.Context(), identity.UserIDFromCtx(c), swaps.ParseFilter(c.Query("type")))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Get handles GET /swaps/:id.
func (h *SwapHandler) Get(c *gin.Context) {
	id, err := pathID(c, "id", "swap")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	p, err := h.swaps.Get(c.Request.Context(), id, identity.UserIDFromCtx(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Transition handles PUT /swaps/:id with {"status": "accepted"|"rejected"|"completed"}.
func (h *SwapHandler) Transition(c *gin.Context) {
	id, err := pathID(c, "id", "swap")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	p, err := h.swaps.Transition(c.Request.Context(), id, identity.UserIDFromCtx(c), req.Status)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	RecordSwapEvent(string(p.Status))
	c.JSON(http.StatusOK, p)
}

// Delete handles DELETE /swaps/:id.
func (h *SwapHandler) Delete(c *gin.Context) {
	id, err := pathID(c, "id", "swap")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if err := h.swaps.Delete(c.Request.Context(), id, identity.UserIDFromCtx(c)); err != nil {
		writeError(c, h.logger, err)
		return
	}
	RecordSwapEvent("deleted")
	c.JSON(http.StatusOK, gin.H{"message": "Swap deleted successfully"})
}
