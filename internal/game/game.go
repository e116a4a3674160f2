package game

import (
	"errors"
	"time"

	"mindcascade/internal/domain"
)

var (
	ErrUnknownGame = errors.New("unknown game")
	ErrWrongPhase  = errors.New("action not allowed in current phase")
)

// Phase - этап уровня
type Phase string

const (
	PhaseInstruction Phase = "instruction"
	PhaseShowing     Phase = "showing"
	PhaseInput       Phase = "input"
	PhaseResult      Phase = "result"
	PhaseComplete    Phase = "complete"
)

// Reporter receives level results. *ledger.Ledger satisfies it.
type Reporter interface {
	RecordScore(game domain.GameID, points int)
	GrantReward(reward domain.RewardID)
}

// Timer is a pending scheduled callback.
type Timer interface {
	Stop() bool
}

// Scheduler is the only timing primitive a run uses: one callback, one
// phase step.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// WallClock schedules on real time.
type WallClock struct{}

func (WallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// State is a read-only view of a run.
type State struct {
	Game     domain.GameID `json:"game"`
	Phase    Phase         `json:"phase"`
	Level    int           `json:"level"`
	Score    int           `json:"score"`
	Revealed int           `json:"revealed"`
	Steps    int           `json:"steps"`
	Correct  bool          `json:"correct"`
}
