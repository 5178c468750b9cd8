package orchestrator

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"

	cartx "github.com/sanmarzano/orderbot/agent/cart"
	contractx "github.com/sanmarzano/orderbot/agent/contract"
	intentx "github.com/sanmarzano/orderbot/agent/intent"
	menux "github.com/sanmarzano/orderbot/agent/menu"
	nodex "github.com/sanmarzano/orderbot/agent/nodes"
	statex "github.com/sanmarzano/orderbot/agent/state"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

// Orchestrator runs the turn pipeline: validate, load session, classify,
// drive the phase loop, save, reply. Turns on the same session are
// serialized; different sessions run concurrently.
type Orchestrator struct {
	store      statex.Store
	registry   contractx.Registry
	resolver   *menux.Resolver
	classifier contractx.Classifier
	fallback   contractx.Classifier

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	turnLocks sync.Map

	now func() time.Time
}

type Option func(*Orchestrator)

// WithClassifier installs the model-backed intent classifier. Without it the
// rule classifier handles every turn.
func WithClassifier(c contractx.Classifier) Option {
	return func(o *Orchestrator) { o.classifier = c }
}

func WithNow(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(
	store statex.Store,
	registry contractx.Registry,
	resolver *menux.Resolver,
	opts ...Option,
) (*Orchestrator, error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if registry == nil {
		return nil, errors.New("specialist registry is required")
	}
	if resolver == nil {
		return nil, errors.New("menu resolver is required")
	}

	o := &Orchestrator{
		store:    store,
		registry: registry,
		resolver: resolver,
		fallback: intentx.NewRuleClassifier(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	graphRunner, err := o.compileHandleTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleTurn processes one plain-text user message.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID string, text string) (string, error) {
	out, err := o.HandleTurnRequest(ctx, contractx.TurnRequest{SessionID: sessionID, Text: text})
	if err != nil {
		return "", err
	}
	return out.Reply, nil
}

// HandleTurnRequest processes one turn that may carry pre-decomposed tool
// calls alongside (or instead of) raw text.
func (o *Orchestrator) HandleTurnRequest(ctx context.Context, req contractx.TurnRequest) (contractx.TurnResult, error) {
	unlock := o.lockSession(req.SessionID)
	defer unlock()

	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: req.SessionID,
		Text:      req.Text,
		ToolCalls: req.ToolCalls,
	})
	if err != nil {
		return contractx.TurnResult{}, err
	}
	return contractx.TurnResult{Reply: out.Reply}, nil
}

func (o *Orchestrator) newCart() *cartx.Cart {
	return cartx.New(o.resolver)
}

// lockSession serializes turns per session id.
func (o *Orchestrator) lockSession(sessionID string) func() {
	mu, _ := o.turnLocks.LoadOrStore(sessionID, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	return lock.Unlock
}
