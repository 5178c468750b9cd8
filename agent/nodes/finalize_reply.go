package nodes

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
)

const replyFallback = "Disculpa, no te entendí. ¿Me lo repites, por favor?"

// FinalizeReply joins the accumulated parts into the turn's single reply. An
// empty turn degrades to a clarification prompt rather than an error: the
// customer always gets an answer.
func FinalizeReply(in *GraphState) (GraphOutput, error) {
	if in == nil {
		return GraphOutput{}, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	parts := make([]string, 0, len(in.Parts))
	for _, p := range in.Parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		log.Debug().Str("session", in.SessionID).Msg("nodes: silent turn, using fallback reply")
		return GraphOutput{Reply: replyFallback}, nil
	}
	return GraphOutput{Reply: strings.Join(parts, "\n\n")}, nil
}
