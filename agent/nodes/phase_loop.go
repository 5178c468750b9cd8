package nodes

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	contractx "github.com/sanmarzano/orderbot/agent/contract"
	statex "github.com/sanmarzano/orderbot/agent/state"
)

// maxPhaseHops bounds the number of intra-turn dispatches. A well-formed
// turn moves through at most three phases (identify -> collect on a first
// message, or address -> commit -> idle); five leaves slack without letting
// a flag bug spin forever.
const maxPhaseHops = 5

const (
	replyRoutingFailure = "Disculpa, tuvimos un problema interno. ¿Puedes escribirme de nuevo?"
	replyHandlerFailure = "Disculpa, algo salió mal procesando tu mensaje. ¿Lo intentamos otra vez?"
)

// RunPhaseLoop dispatches the session's phase specialist and applies the
// transition table until a user-visible reply exists and no transition is
// pending. Only this loop moves the phase; specialists just raise flags.
func RunPhaseLoop(ctx context.Context, in *GraphState, registry contractx.Registry) (*GraphState, error) {
	if in == nil || in.Session == nil {
		return nil, fmt.Errorf("%w: graph state is incomplete", contractx.ErrValidation)
	}
	sess := in.Session

	resumeIdleSession(in, sess)

	// Schedule and complaint questions are answered in place. The phase
	// machine does not move, so the customer resumes exactly where they were.
	if in.Intent == contractx.IntentAskSchedule || in.Intent == contractx.IntentMakeComplaint {
		res, err := safeHandle(ctx, registry.GeneralInquiry(), specialistRequest(in, sess))
		if err != nil {
			log.Error().Err(err).Str("session", sess.SessionID).Msg("nodes: inquiry handler failed")
			in.Parts = append(in.Parts, replyHandlerFailure)
			return in, nil
		}
		in.Parts = append(in.Parts, res.Reply)
		return in, nil
	}

	// A new order request mid-confirmation or mid-address reopens item
	// collection. Stale progress flags and the address are discarded so the
	// reopened order is confirmed again from scratch.
	if in.Intent == contractx.IntentTakeOrder &&
		(sess.Phase == statex.PhaseOrderConfirmation || sess.Phase == statex.PhaseAddressCollection) {
		sess.Phase = statex.PhaseItemCollection
		sess.Flags = statex.Signals{}
		sess.ConfirmedAddress = ""
	}

	for hop := 0; ; hop++ {
		if hop >= maxPhaseHops {
			log.Error().Str("session", sess.SessionID).Str("phase", string(sess.Phase)).
				Msg("nodes: phase hop limit reached")
			in.Parts = append(in.Parts, replyRoutingFailure)
			return in, nil
		}
		if sess.Phase == statex.PhaseIdle {
			return in, nil
		}

		spec, ok := registry.ForPhase(sess.Phase)
		if !ok {
			log.Error().Str("session", sess.SessionID).Str("phase", string(sess.Phase)).
				Msg("nodes: no specialist for phase")
			in.Parts = append(in.Parts, replyRoutingFailure)
			return in, nil
		}

		res, err := safeHandle(ctx, spec, specialistRequest(in, sess))
		if err != nil {
			// State is left untouched so the next turn retries the same phase.
			log.Error().Err(err).Str("session", sess.SessionID).Str("phase", string(sess.Phase)).
				Msg("nodes: specialist failed")
			in.Parts = append(in.Parts, replyHandlerFailure)
			return in, nil
		}

		if res.Reply != "" {
			in.Parts = append(in.Parts, res.Reply)
		}
		sess.Flags.Merge(res.Signals)

		next, ok := nextTransition(sess)
		if !ok {
			return in, nil
		}
		sess.Phase = next.to
		if msg := next.message(sess); msg != "" && res.Reply == "" {
			in.Parts = append(in.Parts, msg)
		}
		if res.Reply != "" {
			return in, nil
		}
		if !next.carryInput {
			in.Text = ""
			in.ToolCalls = nil
			in.Intent = contractx.IntentContinue
		}
	}
}

// resumeIdleSession decides what an idle session does with a new message:
// reopen the just-committed order if the customer wants changes inside the
// modification window, otherwise start a fresh conversation.
func resumeIdleSession(in *GraphState, sess *statex.Session) {
	if sess.Phase != statex.PhaseIdle {
		return
	}
	if in.Intent == contractx.IntentTakeOrder && sess.OrderModifiable(in.Now) {
		number := sess.LastCommit.OrderNumber
		sess.Phase = statex.PhaseItemCollection
		sess.Flags = statex.Signals{}
		sess.LastCommit = nil
		in.Parts = append(in.Parts,
			fmt.Sprintf("Claro, aún estamos a tiempo de modificar tu pedido %s.", number))
		return
	}
	sess.ResetForNewConversation(in.Now)
}

type transition struct {
	to         statex.Phase
	carryInput bool
	message    func(*statex.Session) string
}

func noMessage(*statex.Session) string { return "" }

// nextTransition evaluates the transition table for the current phase and
// consumes the driving flag. At most one transition fires per call; the
// modification flag outranks confirmation.
func nextTransition(sess *statex.Session) (transition, bool) {
	switch sess.Phase {
	case statex.PhaseCustomerIdentification:
		if sess.Flags.CustomerResolved {
			sess.Flags.CustomerResolved = false
			return transition{
				to:         statex.PhaseItemCollection,
				carryInput: true,
				message: func(s *statex.Session) string {
					return fmt.Sprintf("¡Un gusto, %s! ¿Qué te gustaría pedir hoy?", s.CustomerName)
				},
			}, true
		}
	case statex.PhaseItemCollection:
		if sess.Flags.OrderComplete {
			sess.Flags.OrderComplete = false
			return transition{to: statex.PhaseOrderConfirmation, message: noMessage}, true
		}
	case statex.PhaseOrderConfirmation:
		if sess.Flags.ModifyRequested {
			sess.Flags.ModifyRequested = false
			return transition{
				to: statex.PhaseItemCollection,
				message: func(*statex.Session) string {
					return "De acuerdo, ¿qué deseas cambiar en tu pedido?"
				},
			}, true
		}
		if sess.Flags.Confirmed {
			sess.Flags.Confirmed = false
			return transition{to: statex.PhaseAddressCollection, message: noMessage}, true
		}
	case statex.PhaseAddressCollection:
		if sess.Flags.AddressConfirmed {
			sess.Flags.AddressConfirmed = false
			return transition{to: statex.PhaseFinalCommit, message: noMessage}, true
		}
	case statex.PhaseFinalCommit:
		if sess.Flags.OrderCommitted {
			sess.Flags.OrderCommitted = false
			return transition{to: statex.PhaseIdle, message: noMessage}, true
		}
	}
	return transition{}, false
}

func specialistRequest(in *GraphState, sess *statex.Session) contractx.SpecialistRequest {
	return contractx.SpecialistRequest{
		Text:      in.Text,
		Intent:    in.Intent,
		ToolCalls: in.ToolCalls,
		Session:   sess,
		Now:       in.Now,
	}
}

// safeHandle shields the loop from a panicking specialist. The panic becomes
// an error and the session keeps its pre-dispatch phase.
func safeHandle(ctx context.Context, spec contractx.Specialist, req contractx.SpecialistRequest) (res contractx.HandlerResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = contractx.HandlerResult{}
			err = fmt.Errorf("specialist panic: %v", r)
		}
	}()
	return spec.Handle(ctx, req)
}
