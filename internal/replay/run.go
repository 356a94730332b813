package replay

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pkt.systems/hybridterm/core"
	"pkt.systems/hybridterm/internal/clock"
	"pkt.systems/hybridterm/schema"
	"pkt.systems/pslog"
)

// SessionID is the id replays open their session under.
const SessionID schema.SessionID = "replay"

// Result is the session state after a replay.
type Result struct {
	Session schema.SessionSnapshot
	Blocks  []schema.Block
	Info    schema.SessionInfo
	// Elapsed is the scenario time covered, settle tail included.
	Elapsed time.Duration
}

// Runner replays scenarios against a service.
type Runner struct {
	Service core.Service
	// Clock must be the clock the service was built with. A *clock.Fake is
	// advanced instantly; any other clock is waited on in real time.
	Clock  clock.Clock
	Logger pslog.Logger
}

// Run opens a session, plays every step, lets timers settle and closes the
// session again.
func (r Runner) Run(ctx context.Context, sc Scenario) (Result, error) {
	if r.Service == nil {
		return Result{}, errors.New("replay: service is required")
	}
	if r.Clock == nil {
		r.Clock = clock.System()
	}
	log := r.Logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	log = log.With("scenario", sc.Name)

	open, err := r.Service.OpenSession(ctx, schema.OpenSessionRequest{
		ID:       SessionID,
		Mode:     sc.Mode,
		Viewport: schema.Viewport{Cols: sc.Cols, Rows: sc.Rows},
	})
	if err != nil {
		return Result{}, fmt.Errorf("open session: %w", err)
	}
	log.Debug("replay started", "mode", open.Session.Mode, "steps", len(sc.Steps))
	defer func() { _ = r.Service.CloseSession(context.WithoutCancel(ctx), SessionID) }()

	var elapsed time.Duration
	for i, step := range sc.Steps {
		if step.After > 0 {
			if err := r.wait(ctx, step.After); err != nil {
				return Result{}, err
			}
			elapsed += step.After
		}
		if err := r.apply(ctx, step); err != nil {
			return Result{}, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	if err := r.wait(ctx, sc.Settle); err != nil {
		return Result{}, err
	}
	elapsed += sc.Settle

	res := Result{Elapsed: elapsed}
	if res.Session, err = r.Service.Session(SessionID); err != nil {
		return Result{}, err
	}
	if res.Blocks, err = r.Service.Blocks(SessionID); err != nil {
		return Result{}, err
	}
	if res.Info, err = r.Service.SessionInfo(SessionID); err != nil {
		return Result{}, err
	}
	log.Debug("replay finished", "blocks", len(res.Blocks), "status", res.Session.Status)
	return res, nil
}

func (r Runner) apply(ctx context.Context, step Step) error {
	svc := r.Service
	switch {
	case step.Data != "":
		svc.OnData(SessionID, []byte(step.Data))
	case step.Submit != nil:
		_, err := svc.Submit(ctx, SessionID, *step.Submit)
		if errors.Is(err, schema.ErrEmptyCommand) || errors.Is(err, schema.ErrComposing) {
			return nil
		}
		return err
	case step.Exit != nil:
		svc.OnExit(SessionID, *step.Exit)
	case step.Compose != "":
		if strings.EqualFold(step.Compose, ComposeStart) {
			return svc.ComposeStart(SessionID)
		}
		return svc.ComposeEnd(SessionID)
	case step.Mode != "":
		return svc.SetRenderMode(ctx, SessionID, schema.RenderMode(strings.ToLower(step.Mode)))
	case step.Viewport != nil:
		return svc.SetViewport(ctx, SessionID, step.Viewport.Cols, step.Viewport.Rows)
	case step.Teammate != nil:
		_, err := svc.PostTeammate(ctx, SessionID, step.Teammate.Name, step.Teammate.Text)
		return err
	}
	return nil
}

func (r Runner) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	if fake, ok := r.Clock.(*clock.Fake); ok {
		fake.Advance(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
