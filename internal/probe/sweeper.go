package probe

import (
	"context"
	"log/slog"

	"wifiradar/internal/config"
	"wifiradar/internal/safety"
)

// Non-overlapping 2.4 GHz channels plus the UNII-1/UNII-3 5 GHz set.
// DFS channels are excluded by construction and rejected by the gateway
// regardless.
var defaultSweepChannels = []int{1, 6, 11, 36, 40, 44, 48, 149, 153, 157, 161, 165}

// Sweeper plans channel sweeps: for each allowed channel it requests a
// channel switch followed by a broadcast probe, all through the gateway.
type Sweeper struct {
	session   *Session
	gateway   *safety.Gateway
	transport Transport
	channels  []int
	log       *slog.Logger
}

// NewSweeper builds a sweeper over the default safe channel plan minus
// the configured exclusions.
func NewSweeper(session *Session, gw *safety.Gateway, tr Transport, limits config.SafetyLimits, log *slog.Logger) *Sweeper {
	var channels []int
	for _, ch := range defaultSweepChannels {
		if !limits.Excluded(ch) {
			channels = append(channels, ch)
		}
	}
	return &Sweeper{session: session, gateway: gw, transport: tr, channels: channels, log: log}
}

// Channels returns the planned sweep order.
func (s *Sweeper) Channels() []int {
	return append([]int(nil), s.channels...)
}

// Sweep walks the plan once. Gateway rejections skip the step and the
// sweep continues; transport errors are logged and do not abort the
// sweep. Cancellation is honored between steps.
func (s *Sweeper) Sweep(ctx context.Context) error {
	if !s.session.Active() {
		return ErrNotActive
	}

	for _, ch := range s.channels {
		if err := ctx.Err(); err != nil {
			return err
		}

		sw := safety.ChannelSwitch{Chan: ch}
		if d := s.gateway.Request(sw); !d.Accepted {
			s.log.Debug("channel switch rejected", "channel", ch, "reason", d.Reason)
			continue
		}
		if err := s.transport.SwitchChannel(ctx, sw); err != nil {
			s.log.Warn("channel switch failed", "channel", ch, "err", err)
			continue
		}

		bp := safety.BroadcastProbe{Chan: ch}
		if d := s.gateway.Request(bp); !d.Accepted {
			s.log.Debug("broadcast probe rejected", "channel", ch, "reason", d.Reason)
			continue
		}
		if err := s.transport.SendBroadcast(ctx, bp); err != nil {
			s.log.Warn("broadcast probe failed", "channel", ch, "err", err)
		}
	}
	return nil
}
