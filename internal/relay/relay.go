package relay

import (
	"context"
	"sync"

	"github.com/handiism/kona-downloader/internal/logging"
)

// Action is the verb carried by a Message.
type Action string

const (
	ActionShow   Action = "show"
	ActionHide   Action = "hide"
	ActionAttach Action = "attach"
)

// StatusComplete is the navigation status that triggers an attach.
const StatusComplete = "complete"

// Message is exchanged between pages and the relay.
type Message struct {
	Action Action `json:"action"`
}

// Response acknowledges a Message.
type Response struct {
	Result bool `json:"result"`
}

// Sender identifies the page a Message came from.
type Sender struct {
	TabID int
}

// Indicator toggles the per-tab indicator.
type Indicator interface {
	Show(tabID int)
	Hide(tabID int)
}

// Notifier delivers a Message to a tab.
type Notifier interface {
	Notify(ctx context.Context, tabID int, msg Message) error
}

// Relay routes page messages to the indicator and navigation events back to
// pages.
type Relay struct {
	indicator Indicator
	notifier  Notifier

	mu      sync.Mutex
	tracked map[int]struct{}
}

// Option configures a Relay.
type Option func(*Relay)

// WithNotifier sets the Notifier used by TabUpdated.
func WithNotifier(n Notifier) Option {
	return func(r *Relay) {
		r.notifier = n
	}
}

// New creates a Relay driving indicator.
func New(indicator Indicator, opts ...Option) *Relay {
	r := &Relay{
		indicator: indicator,
		tracked:   make(map[int]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle processes a message from sender. Unknown actions are acknowledged
// without side effects.
func (r *Relay) Handle(ctx context.Context, sender Sender, msg Message) Response {
	r.mu.Lock()
	r.tracked[sender.TabID] = struct{}{}
	r.mu.Unlock()

	logger := logging.FromContext(logging.WithTabID(ctx, sender.TabID))

	switch msg.Action {
	case ActionShow:
		r.indicator.Show(sender.TabID)
	case ActionHide:
		r.indicator.Hide(sender.TabID)
	default:
		logger.Debug().Str("action", string(msg.Action)).Msg("ignoring message")
		return Response{Result: true}
	}

	logger.Debug().Str("action", string(msg.Action)).Msg("indicator toggled")
	return Response{Result: true}
}

// TabUpdated reacts to a navigation status change of tabID.
//
// It reports whether an attach was sent. Delivery failures are logged and
// otherwise dropped.
func (r *Relay) TabUpdated(ctx context.Context, tabID int, status string) bool {
	return r.tabUpdated(ctx, tabID, status, r.notifier)
}

// TabRemoved forgets tabID.
func (r *Relay) TabRemoved(tabID int) {
	r.mu.Lock()
	delete(r.tracked, tabID)
	r.mu.Unlock()

	r.indicator.Hide(tabID)
}

// Tracked reports whether tabID has messaged the relay.
func (r *Relay) Tracked(tabID int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tracked[tabID]
	return ok
}

func (r *Relay) tabUpdated(ctx context.Context, tabID int, status string, n Notifier) bool {
	if status != StatusComplete || n == nil || !r.Tracked(tabID) {
		return false
	}

	if err := n.Notify(ctx, tabID, Message{Action: ActionAttach}); err != nil {
		logging.FromContext(logging.WithTabID(ctx, tabID)).Warn().Err(err).Msg("attach not delivered")
		return false
	}
	return true
}

// PageActions is an in-memory Indicator.
type PageActions struct {
	mu      sync.RWMutex
	visible map[int]bool
}

// NewPageActions creates an empty PageActions.
func NewPageActions() *PageActions {
	return &PageActions{visible: make(map[int]bool)}
}

func (p *PageActions) Show(tabID int) {
	p.mu.Lock()
	p.visible[tabID] = true
	p.mu.Unlock()
}

func (p *PageActions) Hide(tabID int) {
	p.mu.Lock()
	delete(p.visible, tabID)
	p.mu.Unlock()
}

// Visible reports whether the indicator of tabID is shown.
func (p *PageActions) Visible(tabID int) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.visible[tabID]
}
