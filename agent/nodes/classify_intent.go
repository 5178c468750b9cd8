package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
)

// ClassifyIntent labels the inbound text. A model failure degrades to the
// rule fallback instead of failing the turn: a misread intent costs one
// clarification, a failed turn costs the customer.
func ClassifyIntent(
	ctx context.Context,
	in *GraphState,
	classifier contractx.Classifier,
	fallback contractx.Classifier,
) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}
	if in.Text == "" {
		in.Intent = contractx.IntentContinue
		return in, nil
	}

	if classifier != nil {
		intent, err := classifier.Classify(ctx, in.Text)
		if err == nil {
			in.Intent = intent
			return in, nil
		}
		log.Warn().Err(err).Str("session", in.SessionID).Msg("nodes: classifier failed, using rule fallback")
	}

	intent, err := fallback.Classify(ctx, in.Text)
	if err != nil {
		return nil, err
	}
	in.Intent = intent
	return in, nil
}
