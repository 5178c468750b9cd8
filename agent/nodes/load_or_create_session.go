package nodes

import (
	"context"
	"errors"
	"fmt"

	cartx "github.com/sanmarzano/orderbot/agent/cart"
	contractx "github.com/sanmarzano/orderbot/agent/contract"
	statex "github.com/sanmarzano/orderbot/agent/state"
)

// LoadOrCreateSession fetches the session or starts a fresh one at the
// identification phase. The session id doubles as the customer id: one chat,
// one customer.
func LoadOrCreateSession(
	ctx context.Context,
	in *GraphState,
	store statex.Store,
	newCart func() *cartx.Cart,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	sess, err := store.Load(ctx, in.SessionID)
	if err != nil {
		if !errors.Is(err, statex.ErrStateNotFound) {
			return nil, err
		}
		sess = statex.NewSession(in.SessionID, in.SessionID, newCart(), in.Now)
	}
	if sess.Cart == nil {
		sess.Cart = newCart()
	}

	in.Session = sess
	return in, nil
}
