package service

import (
	"context"
	"log/slog"

	"wifiradar/internal/config"
	"wifiradar/internal/domain"
	"wifiradar/internal/feed"
	"wifiradar/internal/hidden"
	"wifiradar/internal/probe"
	"wifiradar/internal/world"
)

// ProbeCoordinator runs operator-triggered discovery sequences. Every
// model touch is funneled through the pipeline worker so the unlocked
// world model sees a single writer.
type ProbeCoordinator struct {
	log        *slog.Logger
	pipeline   *Pipeline
	model      *world.Model
	hnce       *hidden.Classifier
	discoverer *probe.Discoverer
	sweeper    *probe.Sweeper
	session    *probe.Session
	limits     config.SafetyLimits
	feed       *feed.Feed
}

func NewProbeCoordinator(p *Pipeline, model *world.Model, hnce *hidden.Classifier,
	disc *probe.Discoverer, sweeper *probe.Sweeper, session *probe.Session,
	limits config.SafetyLimits, fd *feed.Feed, log *slog.Logger) *ProbeCoordinator {
	return &ProbeCoordinator{
		log:        log,
		pipeline:   p,
		model:      model,
		hnce:       hnce,
		discoverer: disc,
		sweeper:    sweeper,
		session:    session,
		limits:     limits,
		feed:       fd,
	}
}

// hiddenTarget is one discovery work item, captured while holding the
// worker so the probe sequence itself can run without model access
// beyond the sink commits.
type hiddenTarget struct {
	addr       string
	channel    int
	candidates []string
}

// RevealAll runs one discovery pass over every hidden emitter that still
// has untried candidates. Requires an active session. Emitters under
// discovery are flagged pending so capacity eviction skips them.
func (pc *ProbeCoordinator) RevealAll(ctx context.Context) error {
	if !pc.session.Active() {
		return probe.ErrNotActive
	}

	var targets []hiddenTarget
	err := pc.pipeline.Exec(ctx, func(context.Context) {
		for _, addr := range pc.model.Addresses() {
			rec, ok := pc.model.Record(addr)
			if !ok || !rec.Hidden() {
				continue
			}
			cands := pc.hnce.Candidates(addr, probe.MaxCandidates)
			if len(cands) == 0 {
				continue
			}
			pc.model.MarkPendingProbe(addr, true)
			targets = append(targets, hiddenTarget{addr: addr, channel: rec.Channel, candidates: cands})
		}
	})
	if err != nil {
		return err
	}

	for _, t := range targets {
		outcome, derr := pc.revealOne(ctx, t)
		uerr := pc.pipeline.Exec(context.WithoutCancel(ctx), func(context.Context) {
			pc.model.MarkPendingProbe(t.addr, false)
		})
		if uerr != nil {
			return uerr
		}
		if derr != nil {
			return derr
		}
		pc.publishOutcome(t.addr, outcome)
	}

	if err := pc.session.EnterCooldown(pc.limits.BurstCooldown); err != nil {
		pc.log.Debug("post-pass cooldown skipped", "err", err)
	}
	return nil
}

// RevealOne runs discovery against a single hidden emitter.
func (pc *ProbeCoordinator) RevealOne(ctx context.Context, addr string) (probe.Outcome, error) {
	var t hiddenTarget
	err := pc.pipeline.Exec(ctx, func(context.Context) {
		rec, ok := pc.model.Record(addr)
		if !ok || !rec.Hidden() {
			return
		}
		pc.model.MarkPendingProbe(addr, true)
		t = hiddenTarget{addr: addr, channel: rec.Channel, candidates: pc.hnce.Candidates(addr, probe.MaxCandidates)}
	})
	if err != nil {
		return probe.Outcome{}, err
	}
	if t.addr == "" {
		return probe.Outcome{}, nil
	}
	defer func() {
		_ = pc.pipeline.Exec(context.WithoutCancel(ctx), func(context.Context) {
			pc.model.MarkPendingProbe(addr, false)
		})
	}()

	outcome, err := pc.revealOne(ctx, t)
	if err != nil {
		return outcome, err
	}
	pc.publishOutcome(addr, outcome)
	return outcome, nil
}

// revealOne runs the transport-facing sequence. The discoverer's sink
// (the classifier) commits any reveal into the model, so the commit is
// routed back through the worker too.
func (pc *ProbeCoordinator) revealOne(ctx context.Context, t hiddenTarget) (probe.Outcome, error) {
	var outcome probe.Outcome
	var derr error
	err := pc.pipeline.Exec(ctx, func(c context.Context) {
		outcome, derr = pc.discoverer.RevealHidden(c, t.addr, t.channel, t.candidates)
	})
	if err != nil {
		return outcome, err
	}
	return outcome, derr
}

// Sweep runs one gated broadcast sweep across the configured channels.
func (pc *ProbeCoordinator) Sweep(ctx context.Context) error {
	if !pc.session.Active() {
		return probe.ErrNotActive
	}
	return pc.pipeline.Exec(ctx, func(c context.Context) {
		if err := pc.sweeper.Sweep(c); err != nil {
			pc.log.Warn("channel sweep aborted", "err", err)
		}
	})
}

func (pc *ProbeCoordinator) publishOutcome(addr string, out probe.Outcome) {
	if out.Revealed == "" {
		if out.Deferred {
			pc.log.Info("discovery deferred, target rate limited", "target", addr,
				"attempts", out.Attempts, "rejected", out.Rejected)
		} else {
			pc.log.Info("discovery exhausted", "target", addr,
				"attempts", out.Attempts, "rejected", out.Rejected, "inconclusive", out.Inconclusive)
		}
		return
	}
	pc.feed.Append(domain.Event{
		Category: domain.EventInsight,
		Severity: domain.SeverityLow,
		Subject:  addr,
		Summary:  "hidden network name revealed by directed probe",
		Detail: map[string]any{
			"name":     out.Revealed,
			"attempts": out.Attempts,
		},
	})
}
