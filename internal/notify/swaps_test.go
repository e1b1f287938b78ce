package notify_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmerrifield20/skillswap/internal/notify"
	"github.com/jmerrifield20/skillswap/internal/swaps"
	"github.com/jmerrifield20/skillswap/internal/users"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []notify.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, m notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, m)
	return r.err
}

func (r *recordingSender) messages() []notify.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notify.Message(nil), r.sent...)
}

func testSwap(status swaps.Status) *swaps.Populated {
	return &swaps.Populated{
		ID:             uuid.New(),
		Requester:      users.Summary{ID: uuid.New(), Name: "Alice", Email: "alice@example.com"},
		Receiver:       users.Summary{ID: uuid.New(), Name: "Bob", Email: "bob@example.com"},
		SkillOffered:   "Go",
		SkillRequested: "React",
		Status:         status,
		Message:        "hello",
	}
}

func wait(t *testing.T, n *notify.SwapNotifier) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := n.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestSwapCreated_emailsReceiver(t *testing.T) {
	sender := &recordingSender{}
	n := notify.NewSwapNotifier(sender, "http://localhost:3000/", zap.NewNop())
	p := testSwap(swaps.StatusPending)

	n.SwapCreated(context.Background(), p)
	wait(t, n)

	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	m := msgs[0]
	if m.To != "bob@example.com" {
		t.Errorf("To: got %q", m.To)
	}
	if !strings.Contains(m.Subject, "Alice") {
		t.Errorf("Subject should name the requester: %q", m.Subject)
	}
	if !strings.Contains(m.Body, "http://localhost:3000/swap/"+p.ID.String()) {
		t.Errorf("Body missing swap link: %q", m.Body)
	}
	if !strings.Contains(m.Body, "hello") {
		t.Errorf("Body missing message: %q", m.Body)
	}
}

func TestSwapStatusChanged_emailsCounterparty(t *testing.T) {
	cases := []struct {
		status  swaps.Status
		byRecv  bool
		wantTo  string
		subject string
	}{
		{swaps.StatusAccepted, true, "alice@example.com", "accepted"},
		{swaps.StatusRejected, true, "alice@example.com", "declined"},
		{swaps.StatusCompleted, false, "bob@example.com", "completed"},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			sender := &recordingSender{}
			n := notify.NewSwapNotifier(sender, "http://localhost:3000", zap.NewNop())
			p := testSwap(tc.status)
			actor := p.Requester.ID
			if tc.byRecv {
				actor = p.Receiver.ID
			}

			n.SwapStatusChanged(context.Background(), p, actor)
			wait(t, n)

			msgs := sender.messages()
			if len(msgs) != 1 {
				t.Fatalf("expected 1 message, got %d", len(msgs))
			}
			if msgs[0].To != tc.wantTo {
				t.Errorf("To: got %q, want %q", msgs[0].To, tc.wantTo)
			}
			if !strings.Contains(msgs[0].Subject, tc.subject) {
				t.Errorf("Subject: got %q, want it to contain %q", msgs[0].Subject, tc.subject)
			}
		})
	}
}

func TestSwapNotifier_sendFailureIsSwallowed(t *testing.T) {
	sender := &recordingSender{err: errors.New("smtp down")}
	n := notify.NewSwapNotifier(sender, "http://localhost:3000", zap.NewNop())

	n.SwapCreated(context.Background(), testSwap(swaps.StatusPending))
	wait(t, n)

	if len(sender.messages()) != 1 {
		t.Error("expected one delivery attempt")
	}
}

func TestSwapNotifier_detachedFromRequestContext(t *testing.T) {
	sender := &recordingSender{}
	n := notify.NewSwapNotifier(sender, "http://localhost:3000", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	n.SwapCreated(ctx, testSwap(swaps.StatusPending))
	wait(t, n)

	if len(sender.messages()) != 1 {
		t.Error("cancelled request context must not drop the notification")
	}
}
