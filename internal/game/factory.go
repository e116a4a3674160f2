package game

import (
	"fmt"
	"time"

	"mindcascade/internal/domain"
)

// DefaultRevealInterval matches the one-second cadence of the tile reveal.
const DefaultRevealInterval = time.Second

type Factory struct {
	Scheduler      Scheduler
	RevealInterval time.Duration
}

func NewFactory() *Factory {
	return &Factory{Scheduler: WallClock{}, RevealInterval: DefaultRevealInterval}
}

// NewRun starts a run at level 1 reporting into r.
func (f *Factory) NewRun(id domain.GameID, r Reporter) (*Run, error) {
	info, ok := domain.Info(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGame, id)
	}
	sched := f.Scheduler
	if sched == nil {
		sched = WallClock{}
	}
	interval := f.RevealInterval
	if interval <= 0 {
		interval = DefaultRevealInterval
	}
	return &Run{
		info:     info,
		reporter: r,
		sched:    sched,
		interval: interval,
		phase:    PhaseInstruction,
		level:    1,
	}, nil
}
