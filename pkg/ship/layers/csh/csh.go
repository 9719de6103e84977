// Package csh implements the CSH hello protocol: the pending/ready
// negotiation with mutual trust and prolongation that every connection
// passes through before CSHP. It is the most intricate layer: it owns
// three timers and races them against incoming messages and an
// asynchronous trust decision.
package csh

import (
	"context"
	"time"

	"github.com/flexiblepower/shipproto-go/internal/shiperr"
	"github.com/flexiblepower/shipproto-go/pkg/ship/message"
	"github.com/flexiblepower/shipproto-go/pkg/ship/timer"
	"github.com/flexiblepower/shipproto-go/pkg/ship/transport"
	"github.com/flexiblepower/shipproto-go/pkg/ship/trust"
)

const layer = "csh"

// Timing constants, fixed by the protocol. Declared as vars rather than
// consts so tests in this package can shrink them to keep end-to-end
// prolongation scenarios fast, and so SetTimers can apply operator
// overrides at startup.
var (
	helloInit     = 120 * time.Second
	helloInc      = 120 * time.Second
	prolongThrInc = 30 * time.Second
	prolongGap    = 15 * time.Second
	prolongMin    = 1 * time.Second
)

// SetTimers overrides the package's hello/prolongation timers. A zero value
// leaves the corresponding timer unchanged. Intended to be called once at
// process startup from configuration, never concurrently with a running
// handshake.
func SetTimers(init, inc, prolongThreshold, prolongationGap, prolongationMin time.Duration) {
	if init > 0 {
		helloInit = init
	}
	if inc > 0 {
		helloInc = inc
	}
	if prolongThreshold > 0 {
		prolongThrInc = prolongThreshold
	}
	if prolongationGap > 0 {
		prolongGap = prolongationGap
	}
	if prolongationMin > 0 {
		prolongMin = prolongationMin
	}
}

type state int

const (
	stateReadyInit state = iota
	stateReadyListen
	stateReadyTimeout
	statePendingInit
	statePendingListen
	statePendingTimeout
	stateHelloOK
)

// timeoutKind names which of the three timers fired, threaded from the
// *_LISTEN dispatch into PENDING_TIMEOUT so it can disambiguate without
// re-racing anything.
type timeoutKind int

const (
	timeoutNone timeoutKind = iota
	timeoutWaitForReady
	timeoutSendProlongation
	timeoutProlongationReply
)

type msgResult struct {
	hello *message.Hello
	err   error
}

// session holds all state the hello protocol mutates across iterations of
// its main loop.
type session struct {
	tr transport.Transport

	waitForReady      *timer.Timer
	sendProlongation  *timer.Timer
	prolongationReply *timer.Timer

	previouslyReceived *message.Hello
	otherSideTrustsUs  bool

	// recvCh holds the one outstanding recv attempt, if any. It is
	// created lazily and only cleared once its result has actually been
	// consumed, so a timer win never orphans a second recv alongside it.
	recvCh chan msgResult
}

// Run executes the hello protocol to completion. remoteSKI identifies the
// peer for the trust manager; trustMgr is consulted for the initial state
// and, while pending, raced against the layer's own timers.
func Run(ctx context.Context, tr transport.Transport, trustMgr *trust.Manager, remoteSKI string) error {
	// recvCtx is cancelled on every return path out of Run, so an
	// in-flight recv that lost a race against a timer or the trust
	// channel is torn down rather than left reading on the transport
	// behind CSH's back once CSHP takes over.
	recvCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &session{
		tr:                tr,
		waitForReady:      timer.New(),
		sendProlongation:  timer.New(),
		prolongationReply: timer.New(),
	}

	trusted, _ := trustMgr.IsTrusted(remoteSKI)

	var st state
	var trustCh <-chan struct{}
	if trusted {
		st = stateReadyInit
	} else {
		st = statePendingInit
		ch := make(chan struct{})
		go func() {
			// wait_to_trust only ever signals a grant; a latched
			// untrusted verdict never fires this channel, leaving
			// wait_for_ready's own deadline as the only way out.
			if trustMgr.WaitToTrust(remoteSKI) {
				close(ch)
			}
		}()
		trustCh = ch
	}

	// previousListenState tracks "most recent listen-family state", used
	// only by PENDING_TIMEOUT's send_prolongation branch to know where to
	// return to.
	previousListenState := st
	var lastTimeout timeoutKind

	for {
		switch st {
		case stateReadyInit:
			s.waitForReady.Start(helloInit)
			s.sendProlongation.Cancel()
			s.prolongationReply.Cancel()
			if err := s.sendHello(ctx, message.PhaseReady, false); err != nil {
				return s.abort(ctx, err, true)
			}
			st = stateReadyListen
			previousListenState = st

		case statePendingInit:
			s.waitForReady.Start(helloInit)
			s.sendProlongation.Cancel()
			s.prolongationReply.Cancel()
			if err := s.sendHello(ctx, message.PhasePending, false); err != nil {
				return s.abort(ctx, err, true)
			}
			st = statePendingListen
			previousListenState = st

		case stateReadyListen:
			ev, kind := s.decideNextInput(ctx, recvCtx, nil)
			next, tk, err := s.dispatchReadyListen(ctx, ev, kind)
			if err != nil {
				return s.abort(ctx, err, !wasAbortedReceipt(ev))
			}
			lastTimeout = tk
			st = next
			if st == stateReadyListen {
				previousListenState = st
			}

		case statePendingListen:
			ev, kind := s.decideNextInput(ctx, recvCtx, trustCh)
			next, tk, err := s.dispatchPendingListen(ctx, ev, kind)
			if err != nil {
				return s.abort(ctx, err, !wasAbortedReceipt(ev))
			}
			lastTimeout = tk
			st = next
			if st == statePendingListen {
				previousListenState = st
			}

		case stateReadyTimeout:
			return s.abort(ctx, shiperr.Abort(layer, "wait_for_ready expired while ready"), true)

		case statePendingTimeout:
			next, err := s.dispatchPendingTimeout(ctx, lastTimeout, previousListenState)
			if err != nil {
				return s.abort(ctx, err, true)
			}
			st = next
			if st == statePendingListen {
				previousListenState = st
			}

		case stateHelloOK:
			s.waitForReady.Cancel()
			s.sendProlongation.Cancel()
			s.prolongationReply.Cancel()
			return nil
		}
	}
}

// eventKind names which of decideNextInput's raced branches won.
type eventKind int

const (
	eventMessage eventKind = iota
	eventWaitForReady
	eventSendProlongation
	eventProlongationReply
	eventTrust
)

// decideNextInput races an incoming message against the layer's three
// timers and, while pending, the trust decision. trustCh is nil while
// ready, which disables that branch via the standard nil-channel-never-
// fires idiom rather than a dynamic branch set.
//
// recvCtx governs the message recv specifically: it is the caller's
// cancellable copy, torn down the moment Run returns so a recv that just
// lost this race doesn't keep reading on the transport afterward.
func (s *session) decideNextInput(ctx, recvCtx context.Context, trustCh <-chan struct{}) (msgResult, eventKind) {
	select {
	case m := <-s.startRecv(recvCtx):
		s.recvCh = nil
		return m, eventMessage
	case <-s.waitForReady.C():
		return msgResult{}, eventWaitForReady
	case <-s.sendProlongation.C():
		return msgResult{}, eventSendProlongation
	case <-s.prolongationReply.C():
		return msgResult{}, eventProlongationReply
	case <-trustCh:
		return msgResult{}, eventTrust
	case <-ctx.Done():
		return msgResult{err: ctx.Err()}, eventMessage
	}
}

// startRecv returns the channel for the single outstanding recv attempt,
// launching one only if none is already in flight. A result is only ever
// read off the transport on demand, one frame at a time, so CSH never
// holds a second frame hostage once control passes to CSHP.
func (s *session) startRecv(ctx context.Context) <-chan msgResult {
	if s.recvCh == nil {
		ch := make(chan msgResult, 1)
		go func() {
			frame, err := s.tr.Recv(ctx)
			if err != nil {
				ch <- msgResult{err: err}
				return
			}
			h, err := message.DecodeHello(frame.Payload)
			if err != nil {
				ch <- msgResult{err: err}
				return
			}
			ch <- msgResult{hello: h}
		}()
		s.recvCh = ch
	}
	return s.recvCh
}

func wasAbortedReceipt(ev msgResult) bool {
	return ev.hello != nil && ev.hello.Phase == message.PhaseAborted
}

// dispatchReadyListen implements the READY_LISTEN table. It also applies
// the generic "csh_message received" bookkeeping (store previously
// received, latch other_side_trusts_us) before the state-specific rules.
func (s *session) dispatchReadyListen(ctx context.Context, ev msgResult, kind eventKind) (state, timeoutKind, error) {
	switch kind {
	case eventWaitForReady:
		return stateReadyTimeout, timeoutWaitForReady, nil

	case eventSendProlongation, eventProlongationReply:
		// Both timers are cancelled on entry to the ready family and
		// never rearmed there; firing here is an invariant violation,
		// not a reachable peer-triggered condition.
		return 0, timeoutNone, shiperr.Abort(layer, "prolongation timer fired while ready: invariant violation")

	case eventMessage:
		if ev.err != nil {
			return 0, timeoutNone, shiperr.AbortWrap(layer, "error awaiting CSH message", ev.err)
		}
		s.observeMessage(ev.hello)

		switch {
		case ev.hello.Phase == message.PhaseReady:
			return stateHelloOK, timeoutNone, nil

		case ev.hello.Phase == message.PhasePending && isTrue(ev.hello.ProlongationRequest):
			s.waitForReady = s.waitForReady.Postpone(helloInc)
			if err := s.sendHello(ctx, message.PhaseReady, false); err != nil {
				return 0, timeoutNone, err
			}
			return stateReadyListen, timeoutNone, nil

		case ev.hello.Phase == message.PhaseAborted:
			return 0, timeoutNone, shiperr.Abort(layer, "peer aborted")

		default:
			return stateReadyListen, timeoutNone, nil
		}
	}
	panic("csh: unreachable decideNextInput outcome in READY_LISTEN")
}

// dispatchPendingListen implements the PENDING_LISTEN table, including the
// receive_trust transition shared by every pending state.
func (s *session) dispatchPendingListen(ctx context.Context, ev msgResult, kind eventKind) (state, timeoutKind, error) {
	switch kind {
	case eventWaitForReady:
		return statePendingTimeout, timeoutWaitForReady, nil

	case eventSendProlongation:
		return statePendingTimeout, timeoutSendProlongation, nil

	case eventProlongationReply:
		return statePendingTimeout, timeoutProlongationReply, nil

	case eventTrust:
		s.sendProlongation.Cancel()
		s.prolongationReply.Cancel()
		if err := s.sendHello(ctx, message.PhaseReady, false); err != nil {
			return 0, timeoutNone, err
		}
		if s.otherSideTrustsUs {
			return stateHelloOK, timeoutNone, nil
		}
		return stateReadyListen, timeoutNone, nil

	case eventMessage:
		if ev.err != nil {
			return 0, timeoutNone, shiperr.AbortWrap(layer, "error awaiting CSH message", ev.err)
		}
		s.observeMessage(ev.hello)
		return s.dispatchPendingMessage(ctx, ev.hello)
	}
	panic("csh: unreachable decideNextInput outcome in PENDING_LISTEN")
}

func (s *session) dispatchPendingMessage(ctx context.Context, h *message.Hello) (state, timeoutKind, error) {
	ready := h.Phase == message.PhaseReady
	pending := h.Phase == message.PhasePending
	hasWaiting := h.WaitingMillis != nil
	prolongReq := isTrue(h.ProlongationRequest)

	switch {
	case ready && !hasWaiting:
		return 0, timeoutNone, shiperr.Abort(layer, "peer declared ready with no waiting while we are pending")

	case (ready && hasWaiting) || (pending && hasWaiting && !prolongReq):
		s.prolongationReply.Cancel()
		if ready && hasWaiting {
			s.waitForReady.Cancel()
		}
		waiting := time.Duration(*h.WaitingMillis) * time.Millisecond
		if waiting >= prolongThrInc {
			dur := waiting - prolongGap
			if dur >= prolongMin {
				s.sendProlongation = timer.New()
				s.sendProlongation.Start(dur)
			} else {
				s.sendProlongation.Cancel()
			}
		} else {
			s.sendProlongation.Cancel()
		}
		return statePendingListen, timeoutNone, nil

	case pending && !hasWaiting && prolongReq:
		s.waitForReady = s.waitForReady.Postpone(helloInc)
		if err := s.sendHello(ctx, message.PhasePending, false); err != nil {
			return 0, timeoutNone, err
		}
		return statePendingListen, timeoutNone, nil

	case h.Phase == message.PhaseAborted:
		return 0, timeoutNone, shiperr.Abort(layer, "peer aborted")

	default:
		return 0, timeoutNone, shiperr.Abort(layer, "unexpected hello combination while pending")
	}
}

// dispatchPendingTimeout disambiguates which of the three timers caused
// the PENDING_TIMEOUT transition.
func (s *session) dispatchPendingTimeout(ctx context.Context, kind timeoutKind, previousListenState state) (state, error) {
	switch kind {
	case timeoutWaitForReady:
		return 0, shiperr.Abort(layer, "peer never became ready in time")

	case timeoutSendProlongation:
		if err := s.sendHello(ctx, message.PhasePending, true); err != nil {
			return 0, err
		}

		s.prolongationReply = timer.New()
		if s.previouslyReceived != nil && s.previouslyReceived.WaitingMillis != nil {
			s.prolongationReply.Start(time.Duration(*s.previouslyReceived.WaitingMillis) * time.Millisecond)
		} else if left, ok := s.waitForReady.TimeLeft(); ok {
			extended := time.Duration(float64(left) * 1.1)
			if extended < 0 {
				extended = 0
			}
			s.prolongationReply.Start(extended)
		} else {
			s.prolongationReply.Start(0)
		}

		s.sendProlongation = timer.New()
		return previousListenState, nil

	case timeoutProlongationReply:
		return 0, shiperr.Abort(layer, "peer did not answer our prolongation request")
	}
	panic("csh: dispatchPendingTimeout called with no timeout kind")
}

func (s *session) observeMessage(h *message.Hello) {
	s.previouslyReceived = h
	if h.Phase == message.PhaseReady {
		s.otherSideTrustsUs = true
	}
}

func (s *session) sendHello(ctx context.Context, phase message.Phase, prolongationRequest bool) error {
	h := message.Hello{Phase: phase}

	if !s.waitForReady.HasCompleted() {
		if left, ok := s.waitForReady.TimeLeft(); ok {
			ms := left.Milliseconds()
			h.WaitingMillis = &ms
		}
	}
	if prolongationRequest {
		v := true
		h.ProlongationRequest = &v
	}

	raw, err := message.EncodeHello(h)
	if err != nil {
		return shiperr.AbortWrap(layer, "failed to encode Hello", err)
	}
	if err := s.tr.Send(ctx, transport.Frame{Tag: transport.TagControl, Payload: raw}); err != nil {
		return shiperr.AbortWrap(layer, "failed to send Hello", err)
	}
	return nil
}

// abort cancels every timer and, unless the abort was triggered by
// receiving the peer's own aborted hello, sends one back.
func (s *session) abort(ctx context.Context, cause error, sendAbortedFrame bool) error {
	s.waitForReady.Cancel()
	s.sendProlongation.Cancel()
	s.prolongationReply.Cancel()

	if sendAbortedFrame {
		raw, err := message.EncodeHello(message.Hello{Phase: message.PhaseAborted})
		if err == nil {
			_ = s.tr.Send(ctx, transport.Frame{Tag: transport.TagControl, Payload: raw})
		}
	}

	if ae, ok := shiperr.As(cause); ok {
		return ae
	}
	return shiperr.AbortWrap(layer, "aborted", cause)
}

func isTrue(b *bool) bool { return b != nil && *b }

