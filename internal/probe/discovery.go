package probe

import (
	"context"
	"errors"
	"log/slog"

	"wifiradar/internal/safety"
)

// MaxCandidates bounds a hidden-name discovery sequence: discovery
// terminates after at most this many gateway requests per emitter.
const MaxCandidates = 20

// ErrTransport is the sentinel wrapped by transports on send/receive
// failure; the affected candidate is inconclusive, not a reveal miss.
var ErrTransport = errors.New("probe transport failure")

// Transport is the external transmission collaborator. It receives only
// gateway-accepted operations and reports a matched response or a
// no-match within its own response window.
type Transport interface {
	// SendDirected transmits a directed probe and reports whether a
	// response carrying the candidate name was observed.
	SendDirected(ctx context.Context, op safety.DirectedProbe) (matched bool, err error)

	// SendBroadcast transmits a broadcast probe on the operation's channel.
	SendBroadcast(ctx context.Context, op safety.BroadcastProbe) error

	// SwitchChannel retunes the radio.
	SwitchChannel(ctx context.Context, op safety.ChannelSwitch) error
}

// TrialSink records candidate attempts and commits reveals; implemented
// by the hidden classifier.
type TrialSink interface {
	RecordProbeResult(addr, name string, matched bool) bool
}

// Discoverer runs directed-probe hidden-name discovery against the
// safety gateway.
type Discoverer struct {
	session   *Session
	gateway   *safety.Gateway
	transport Transport
	sink      TrialSink
	log       *slog.Logger
}

// NewDiscoverer wires a discoverer.
func NewDiscoverer(session *Session, gw *safety.Gateway, tr Transport, sink TrialSink, log *slog.Logger) *Discoverer {
	return &Discoverer{session: session, gateway: gw, transport: tr, sink: sink, log: log}
}

// Outcome summarizes one discovery sequence.
type Outcome struct {
	Revealed     string // matched name, empty if exhausted or deferred
	Attempts     int    // gateway requests issued
	Rejected     int    // gateway rejections among them
	Inconclusive int    // transport failures
	Deferred     bool   // sequence suspended on a gateway rejection
}

// RevealHidden tries each candidate name against the target, consulting
// the gateway for every attempt, and stops at the first accepted probe
// that yields a match or after the candidate list (bounded to
// MaxCandidates) is exhausted. A gateway rejection suspends the sequence
// instead of burning through it: every rule that rejects one directed
// probe would reject the rest of the sequence too, and candidates never
// offered to the transport stay untried for the next pass. Cancellation
// is checked before each gateway request; a cancelled sequence leaves
// all gateway counters consistent with the operations actually
// attempted.
func (d *Discoverer) RevealHidden(ctx context.Context, target string, channel int, candidates []string) (Outcome, error) {
	var out Outcome

	if !d.session.Active() {
		return out, ErrNotActive
	}
	if len(candidates) > MaxCandidates {
		candidates = candidates[:MaxCandidates]
	}

	for _, name := range candidates {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		op := safety.DirectedProbe{Target: target, Name: name, Chan: channel}
		decision := d.gateway.Request(op)
		out.Attempts++
		if !decision.Accepted {
			out.Rejected++
			out.Deferred = true
			d.log.Debug("discovery deferred", "target", target, "candidate", name, "reason", decision.Reason)
			return out, nil
		}

		matched, err := d.transport.SendDirected(ctx, op)
		if err != nil {
			// Candidate is inconclusive; discovery proceeds.
			out.Inconclusive++
			d.log.Warn("probe transport failure", "target", target, "candidate", name, "err", err)
			continue
		}

		if d.sink.RecordProbeResult(target, name, matched) {
			out.Revealed = name
			return out, nil
		}
	}
	return out, nil
}
