package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/identity"
	"github.com/jmerrifield20/skillswap/internal/ratings"
	"go.uber.org/zap"
)

// ratingSvc is the interface expected by RatingHandler, satisfied by *ratings.RatingService.
type ratingSvc interface {
	Submit(ctx context.Context, rater uuid.UUID, req ratings.SubmitRequest) (*ratings.Rating, ratings.Aggregate, error)
}

// RatingHandler accepts ratings for completed swaps.
type RatingHandler struct {
	ratings ratingSvc
	tokens  *identity.SessionIssuer
	logger  *zap.Logger
}

// NewRatingHandler creates a RatingHandler.
func NewRatingHandler(svc ratingSvc, tokens *identity.SessionIssuer, logger *zap.Logger) *RatingHandler {
	return &RatingHandler{ratings: svc, tokens: tokens, logger: logger}
}

// Register mounts the /ratings routes.
func (h *RatingHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/ratings", identity.RequireUserToken(h.tokens), h.Submit)
}

type submitRatingRequest struct {
	SwapID   string `json:"swapId"`
	Ratee    string `json:"ratee"`
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// Submit handles POST /ratings.
func (h *RatingHandler) Submit(c *gin.Context) {
	var req submitRatingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badBody(c)
		return
	}
	swapID, err := bodyID(req.SwapID, "swapId")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	ratee, err := bodyID(req.Ratee, "ratee")
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	rt, agg, err := h.ratings.Submit(c.Request.Context(), identity.UserIDFromCtx(c), ratings.SubmitRequest{
		SwapID:   swapID,
		Ratee:    ratee,
		Score:    req.Rating,
		Feedback: req.Feedback,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	RecordRating(rt.Score)

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Rating submitted successfully",
		"rating":    rt,
		"aggregate": agg,
	})
}
