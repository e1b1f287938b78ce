package swaps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/apperr"
	"github.com/jmerrifield20/skillswap/internal/users"
	"go.uber.org/zap"
)

// userLookup is the subset of users.Repository the service needs.
type userLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*users.User, error)
}

// Notifier is told about swap events after they are persisted. Implementations
// must not block the caller for long; delivery failures are theirs to log.
type Notifier interface {
	SwapCreated(ctx context.Context, p *Populated)
	SwapStatusChanged(ctx context.Context, p *Populated, actor uuid.UUID)
}

// CreateRequest holds the caller-supplied fields of a new swap.
type CreateRequest struct {
	Receiver       uuid.UUID
	SkillOffered   string
	SkillRequested string
	Message        string
}

// SwapService implements the swap request lifecycle.
type SwapService struct {
	repo     Repository
	users    userLookup
	notifier Notifier
	logger   *zap.Logger
}

// NewSwapService creates a new SwapService.
func NewSwapService(repo Repository, users userLookup, logger *zap.Logger) *SwapService {
	return &SwapService{repo: repo, users: users, logger: logger}
}

// SetNotifier attaches an optional Notifier for swap events.
func (s *SwapService) SetNotifier(n Notifier) {
	s.notifier = n
}

// Create opens a pending swap from requester to req.Receiver.
func (s *SwapService) Create(ctx context.Context, requester uuid.UUID, req CreateRequest) (*Populated, error) {
	req.SkillOffered = strings.TrimSpace(req.SkillOffered)
	req.SkillRequested = strings.TrimSpace(req.SkillRequested)
	req.Message = strings.TrimSpace(req.Message)

	if req.Receiver == uuid.Nil || req.SkillOffered == "" || req.SkillRequested == "" {
		return nil, apperr.InvalidArgument("missing required fields")
	}
	if req.Receiver == requester {
		return nil, apperr.InvalidArgument("cannot request a swap with yourself")
	}

	// A valid session can outlive its account (e.g. after a reseed).
	if _, err := s.users.GetByID(ctx, requester); err != nil {
		if isUserNotFound(err) {
			return nil, apperr.Unauthenticated("account no longer exists")
		}
		return nil, fmt.Errorf("lookup requester: %w", err)
	}
	if _, err := s.users.GetByID(ctx, req.Receiver); err != nil {
		if isUserNotFound(err) {
			return nil, apperr.NotFound("receiver not found")
		}
		return nil, fmt.Errorf("lookup receiver: %w", err)
	}

	// Fast path for a clear message; the store's open-pair index is the real guard.
	if _, err := s.repo.FindOpen(ctx, requester, req.Receiver); err == nil {
		return nil, apperr.Conflict("swap request already exists")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check open swap: %w", err)
	}

	sw := &Swap{
		Requester:      requester,
		Receiver:       req.Receiver,
		SkillOffered:   req.SkillOffered,
		SkillRequested: req.SkillRequested,
		Status:         StatusPending,
		Message:        req.Message,
	}
	if err := s.repo.Create(ctx, sw); err != nil {
		if errors.Is(err, ErrOpenSwapExists) {
			return nil, apperr.Conflict("swap request already exists")
		}
		if errors.Is(err, ErrParticipantMissing) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, fmt.Errorf("create swap: %w", err)
	}

	p, err := s.populated(ctx, sw.ID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("swap created",
		zap.String("swap_id", sw.ID.String()),
		zap.String("requester", requester.String()),
		zap.String("receiver", req.Receiver.String()),
	)
	if s.notifier != nil {
		s.notifier.SwapCreated(ctx, p)
	}
	return p, nil
}

// Get returns a swap visible to actor.
func (s *SwapService) Get(ctx context.Context, id, actor uuid.UUID) (*Populated, error) {
	p, err := s.populated(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.Swap().IsParticipant(actor) {
		return nil, apperr.Forbidden("access denied")
	}
	return p, nil
}

// Transition moves a swap to status on behalf of actor.
func (s *SwapService) Transition(ctx context.Context, id, actor uuid.UUID, status string) (*Populated, error) {
	to, err := ParseTarget(status)
	if err != nil {
		return nil, err
	}

	sw, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := CheckTransition(sw, actor, to); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, id, sw.Status, to); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, apperr.NotFound("swap not found")
		case errors.Is(err, ErrStatusMismatch):
			return nil, apperr.InvalidState("swap was modified concurrently; reload and retry")
		}
		return nil, fmt.Errorf("update swap: %w", err)
	}

	p, err := s.populated(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info("swap transitioned",
		zap.String("swap_id", id.String()),
		zap.String("from", string(sw.Status)),
		zap.String("to", string(to)),
		zap.String("actor", actor.String()),
	)
	if s.notifier != nil {
		s.notifier.SwapStatusChanged(ctx, p, actor)
	}
	return p, nil
}

// Delete removes a pending swap. Only the requester may delete.
func (s *SwapService) Delete(ctx context.Context, id, actor uuid.UUID) error {
	sw, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if err := CheckDelete(sw, actor); err != nil {
		return err
	}

	if err := s.repo.DeletePending(ctx, id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return apperr.NotFound("swap not found")
		case errors.Is(err, ErrStatusMismatch):
			return apperr.Forbidden("only pending requests can be deleted")
		}
		return fmt.Errorf("delete swap: %w", err)
	}

	s.logger.Info("swap deleted", zap.String("swap_id", id.String()), zap.String("actor", actor.String()))
	return nil
}

// List returns actor's swaps for filter, newest first. Never returns a nil slice.
func (s *SwapService) List(ctx context.Context, actor uuid.UUID, f Filter) ([]*Populated, error) {
	list, err := s.repo.List(ctx, actor, f)
	if err != nil {
		return nil, fmt.Errorf("list swaps: %w", err)
	}
	if list == nil {
		list = []*Populated{}
	}
	return list, nil
}

// Lookup returns the raw swap record; used by rating submission.
func (s *SwapService) Lookup(ctx context.Context, id uuid.UUID) (*Swap, error) {
	return s.get(ctx, id)
}

func (s *SwapService) get(ctx context.Context, id uuid.UUID) (*Swap, error) {
	sw, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("swap not found")
		}
		return nil, fmt.Errorf("get swap: %w", err)
	}
	return sw, nil
}

func (s *SwapService) populated(ctx context.Context, id uuid.UUID) (*Populated, error) {
	p, err := s.repo.GetPopulated(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, apperr.NotFound("swap not found")
		}
		return nil, fmt.Errorf("get swap: %w", err)
	}
	return p, nil
}

func isUserNotFound(err error) bool {
	return errors.Is(err, users.ErrNotFound) || errors.Is(err, apperr.ErrNotFound)
}
