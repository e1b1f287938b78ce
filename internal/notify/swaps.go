package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/swaps"
	"go.uber.org/zap"
)

const sendTimeout = 30 * time.Second

// SwapNotifier emails swap participants about lifecycle events. Delivery runs
// in the background; failures are logged and never reach the caller.
type SwapNotifier struct {
	sender      Sender
	frontendURL string
	logger      *zap.Logger
	wg          sync.WaitGroup
}

// NewSwapNotifier creates a SwapNotifier. frontendURL is used to build the
// link to the swap page in each message.
func NewSwapNotifier(sender Sender, frontendURL string, logger *zap.Logger) *SwapNotifier {
	return &SwapNotifier{
		sender:      sender,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		logger:      logger,
	}
}

// SwapCreated tells the receiver about a new request.
func (n *SwapNotifier) SwapCreated(ctx context.Context, p *swaps.Populated) {
	body := fmt.Sprintf("%s would like to swap skills with you.\n\nThey offer: %s\nThey want: %s\n",
		p.Requester.Name, p.SkillOffered, p.SkillRequested)
	if p.Message != "" {
		body += "\nMessage:\n" + p.Message + "\n"
	}
	body += "\nReview the request: " + n.link(p.ID) + "\n"

	n.dispatch(ctx, p.ID, Message{
		To:      p.Receiver.Email,
		Subject: fmt.Sprintf("New skill swap request from %s", p.Requester.Name),
		Body:    body,
	})
}

// SwapStatusChanged tells the participant who did not act about the new status.
func (n *SwapNotifier) SwapStatusChanged(ctx context.Context, p *swaps.Populated, actor uuid.UUID) {
	to, by := p.Receiver, p.Requester
	if actor == p.Receiver.ID {
		to, by = p.Requester, p.Receiver
	}

	var subject string
	switch p.Status {
	case swaps.StatusAccepted:
		subject = fmt.Sprintf("%s accepted your skill swap", by.Name)
	case swaps.StatusRejected:
		subject = fmt.Sprintf("%s declined your skill swap", by.Name)
	case swaps.StatusCompleted:
		subject = fmt.Sprintf("%s marked your skill swap as completed", by.Name)
	default:
		return
	}

	body := fmt.Sprintf("%s ↔ %s\n\n%s\n", p.SkillOffered, p.SkillRequested, subject)
	if p.Status == swaps.StatusCompleted {
		body += "\nYou can now rate your swap partner.\n"
	}
	body += "\nView the swap: " + n.link(p.ID) + "\n"

	n.dispatch(ctx, p.ID, Message{To: to.Email, Subject: subject, Body: body})
}

// Wait blocks until in-flight deliveries finish or ctx expires.
func (n *SwapNotifier) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *SwapNotifier) dispatch(ctx context.Context, swapID uuid.UUID, m Message) {
	if m.To == "" {
		return
	}
	// Detach from the request so delivery outlives the response.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		defer cancel()
		if err := n.sender.Send(ctx, m); err != nil {
			n.logger.Warn("swap notification failed",
				zap.String("swap_id", swapID.String()),
				zap.String("to", m.To),
				zap.Error(err),
			)
		}
	}()
}

func (n *SwapNotifier) link(id uuid.UUID) string {
	return n.frontendURL + "/swap/" + id.String()
}

var _ swaps.Notifier = (*SwapNotifier)(nil)
