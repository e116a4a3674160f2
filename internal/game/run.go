package game

import (
	"sync"
	"time"

	"mindcascade/internal/domain"
	"mindcascade/internal/logger"
)

// Run drives one play-through of a game, level by level. Timed phases advance
// only through the scheduler; player actions advance through Submit and
// Continue.
type Run struct {
	mu       sync.Mutex
	info     domain.GameInfo
	reporter Reporter
	sched    Scheduler
	interval time.Duration

	phase    Phase
	level    int
	score    int
	steps    int
	revealed int
	correct  bool
	timer    Timer
	// bumps on every Begin so stale ticks from a stopped timer are ignored
	gen int

	onPhase func(State)
}

// OnPhase sets a callback fired after every phase change.
func (r *Run) OnPhase(fn func(State)) {
	r.mu.Lock()
	r.onPhase = fn
	r.mu.Unlock()
}

// Begin leaves the instruction phase and reveals steps items, one per tick.
// With no steps the run goes straight to input.
func (r *Run) Begin(steps int) error {
	r.mu.Lock()
	if r.phase != PhaseInstruction {
		r.mu.Unlock()
		return ErrWrongPhase
	}
	r.gen++
	r.steps = max(steps, 0)
	r.revealed = 0
	if r.steps == 0 {
		r.phase = PhaseInput
	} else {
		r.phase = PhaseShowing
		r.scheduleLocked()
	}
	return r.unlockAndNotify()
}

func (r *Run) scheduleLocked() {
	gen := r.gen
	r.timer = r.sched.AfterFunc(r.interval, func() { r.tick(gen) })
}

func (r *Run) tick(gen int) {
	r.mu.Lock()
	if gen != r.gen || r.phase != PhaseShowing {
		r.mu.Unlock()
		return
	}
	r.revealed++
	if r.revealed < r.steps {
		r.scheduleLocked()
		r.mu.Unlock()
		return
	}
	r.timer = nil
	r.phase = PhaseInput
	_ = r.unlockAndNotify()
}

// Submit records the player's answer for the current level.
func (r *Run) Submit(correct bool) error {
	r.mu.Lock()
	if r.phase != PhaseInput {
		r.mu.Unlock()
		return ErrWrongPhase
	}
	r.correct = correct
	r.phase = PhaseResult
	return r.unlockAndNotify()
}

// Continue leaves the result phase. A passed level is reported and the run
// moves to the next level, or completes after the last one. A failed level
// follows the game's failure policy.
func (r *Run) Continue() error {
	r.mu.Lock()
	if r.phase != PhaseResult {
		r.mu.Unlock()
		return ErrWrongPhase
	}

	var points int
	passed := r.correct
	if passed {
		points = r.info.LevelScore(r.level)
		r.score += points
		if r.level < r.info.MaxLevel {
			r.level++
			r.phase = PhaseInstruction
		} else {
			r.phase = PhaseComplete
		}
	} else if r.info.OnFailure == domain.EndOnFirstLevel && r.level == 1 {
		r.phase = PhaseComplete
	} else {
		r.phase = PhaseInstruction
	}
	level := r.level
	r.mu.Unlock()

	if passed && r.reporter != nil {
		r.reporter.RecordScore(r.info.ID, points)
		r.reporter.GrantReward(r.info.Reward)
		logger.Debug("game: level passed", "game", r.info.ID, "points", points, "next_level", level)
	}

	r.mu.Lock()
	return r.unlockAndNotify()
}

// Stop cancels a pending reveal tick.
func (r *Run) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stateLocked()
}

func (r *Run) stateLocked() State {
	return State{
		Game:     r.info.ID,
		Phase:    r.phase,
		Level:    r.level,
		Score:    r.score,
		Revealed: r.revealed,
		Steps:    r.steps,
		Correct:  r.correct,
	}
}

// unlockAndNotify releases r.mu and fires the phase callback outside it.
func (r *Run) unlockAndNotify() error {
	st := r.stateLocked()
	fn := r.onPhase
	r.mu.Unlock()
	if fn != nil {
		fn(st)
	}
	return nil
}
