package ratings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/apperr"
	"github.com/jmerrifield20/skillswap/internal/swaps"
	"go.uber.org/zap"
)

// swapReader is the subset of swaps.Repository the service needs.
type swapReader interface {
	Get(ctx context.Context, id uuid.UUID) (*swaps.Swap, error)
}

// RatingService implements rating submission and aggregation.
type RatingService struct {
	repo   Repository
	swaps  swapReader
	logger *zap.Logger
}

// NewRatingService creates a new RatingService.
func NewRatingService(repo Repository, swaps swapReader, logger *zap.Logger) *RatingService {
	return &RatingService{repo: repo, swaps: swaps, logger: logger}
}

// Submit records rater's score for the other participant of a completed swap
// and returns the ratee's updated aggregate.
func (s *RatingService) Submit(ctx context.Context, rater uuid.UUID, req SubmitRequest) (*Rating, Aggregate, error) {
	if req.SwapID == uuid.Nil || req.Ratee == uuid.Nil {
		return nil, Aggregate{}, apperr.InvalidArgument("missing required fields")
	}
	if req.Score < MinScore || req.Score > MaxScore {
		return nil, Aggregate{}, apperr.InvalidArgument("rating must be between %d and %d", MinScore, MaxScore)
	}

	sw, err := s.swaps.Get(ctx, req.SwapID)
	if err != nil && !errors.Is(err, swaps.ErrNotFound) {
		return nil, Aggregate{}, fmt.Errorf("get swap: %w", err)
	}
	if sw == nil || sw.Status != swaps.StatusCompleted {
		return nil, Aggregate{}, apperr.InvalidState("swap not found or not completed")
	}
	if !sw.IsParticipant(rater) {
		return nil, Aggregate{}, apperr.Forbidden("access denied")
	}
	if sw.Counterparty(rater) != req.Ratee {
		return nil, Aggregate{}, apperr.InvalidArgument("ratee must be the other participant of the swap")
	}

	exists, err := s.repo.Exists(ctx, req.SwapID, rater)
	if err != nil {
		return nil, Aggregate{}, err
	}
	if exists {
		return nil, Aggregate{}, apperr.Conflict("rating already exists")
	}

	rt := &Rating{
		Swap:     req.SwapID,
		Rater:    rater,
		Ratee:    req.Ratee,
		Score:    req.Score,
		Feedback: strings.TrimSpace(req.Feedback),
	}
	agg, err := s.repo.Submit(ctx, rt)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicate):
			return nil, Aggregate{}, apperr.Conflict("rating already exists")
		case errors.Is(err, ErrRateeNotFound):
			return nil, Aggregate{}, apperr.NotFound("user not found")
		}
		return nil, Aggregate{}, fmt.Errorf("submit rating: %w", err)
	}

	s.logger.Info("rating submitted",
		zap.String("rating_id", rt.ID.String()),
		zap.String("swap_id", rt.Swap.String()),
		zap.String("ratee", rt.Ratee.String()),
		zap.Int("score", rt.Score),
		zap.Float64("new_rating", agg.Rating),
	)
	return rt, agg, nil
}

// ListReceived returns the ratings ratee received, newest first. Never nil.
func (s *RatingService) ListReceived(ctx context.Context, ratee uuid.UUID) ([]*Rating, error) {
	list, err := s.repo.ListByRatee(ctx, ratee)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	if list == nil {
		list = []*Rating{}
	}
	return list, nil
}

// Recompute rebuilds ratee's aggregate from the stored ratings.
func (s *RatingService) Recompute(ctx context.Context, ratee uuid.UUID) (Aggregate, error) {
	agg, err := s.repo.Recompute(ctx, ratee)
	if err != nil {
		if errors.Is(err, ErrRateeNotFound) {
			return Aggregate{}, apperr.NotFound("user not found")
		}
		return Aggregate{}, fmt.Errorf("recompute ratings: %w", err)
	}
	s.logger.Info("ratings recomputed",
		zap.String("user_id", ratee.String()),
		zap.Float64("rating", agg.Rating),
		zap.Int("count", agg.Count),
	)
	return agg, nil
}
