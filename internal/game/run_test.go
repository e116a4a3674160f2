package game

import (
	"sync"
	"testing"
	"time"

	"mindcascade/internal/domain"
	"mindcascade/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// manualClock fires scheduled callbacks only when told to.
type manualClock struct {
	mu      sync.Mutex
	pending []*manualTimer
}

type manualTimer struct {
	f       func()
	stopped bool
}

func (t *manualTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{f: f}
	c.pending = append(c.pending, t)
	return t
}

// fire runs the oldest pending callback and reports whether there was one.
func (c *manualClock) fire() bool {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return false
	}
	t := c.pending[0]
	c.pending = c.pending[1:]
	c.mu.Unlock()
	if !t.stopped {
		t.f()
	}
	return true
}

func newRun(t *testing.T, id domain.GameID, r Reporter) (*Run, *manualClock) {
	t.Helper()
	clock := &manualClock{}
	f := &Factory{Scheduler: clock, RevealInterval: 10 * time.Millisecond}
	run, err := f.NewRun(id, r)
	require.NoError(t, err)
	return run, clock
}

func TestRevealOneStepPerTick(t *testing.T) {
	run, clock := newRun(t, domain.GameMemory, nil)
	var phases []Phase
	run.OnPhase(func(s State) { phases = append(phases, s.Phase) })

	require.NoError(t, run.Begin(3))
	assert.Equal(t, PhaseShowing, run.State().Phase)

	require.True(t, clock.fire())
	assert.Equal(t, 1, run.State().Revealed)
	assert.Equal(t, PhaseShowing, run.State().Phase)

	require.True(t, clock.fire())
	require.True(t, clock.fire())
	assert.Equal(t, PhaseInput, run.State().Phase)
	assert.False(t, clock.fire(), "no tick after the last reveal")

	assert.Equal(t, []Phase{PhaseShowing, PhaseInput}, phases)
}

func TestPassedLevelReportsToLedger(t *testing.T) {
	l := ledger.New()
	run, _ := newRun(t, domain.GameFocus, l)

	require.NoError(t, run.Begin(0))
	require.NoError(t, run.Submit(true))
	require.NoError(t, run.Continue())

	st := run.State()
	assert.Equal(t, PhaseInstruction, st.Phase)
	assert.Equal(t, 2, st.Level)
	assert.Equal(t, 15, st.Score)
	assert.Equal(t, []int{15}, l.Scores(domain.GameFocus))
	assert.True(t, l.HasReward(domain.RewardFlameOfFocus))
}

func TestFailurePolicies(t *testing.T) {
	t.Run("focus ends on first level", func(t *testing.T) {
		l := ledger.New()
		run, _ := newRun(t, domain.GameFocus, l)
		require.NoError(t, run.Begin(0))
		require.NoError(t, run.Submit(false))
		require.NoError(t, run.Continue())
		assert.Equal(t, PhaseComplete, run.State().Phase)
		assert.Empty(t, l.Scores(domain.GameFocus))
	})

	t.Run("focus retries later levels", func(t *testing.T) {
		run, _ := newRun(t, domain.GameFocus, nil)
		require.NoError(t, run.Begin(0))
		require.NoError(t, run.Submit(true))
		require.NoError(t, run.Continue())
		require.NoError(t, run.Begin(0))
		require.NoError(t, run.Submit(false))
		require.NoError(t, run.Continue())
		st := run.State()
		assert.Equal(t, PhaseInstruction, st.Phase)
		assert.Equal(t, 2, st.Level)
	})

	t.Run("memory retries first level", func(t *testing.T) {
		run, _ := newRun(t, domain.GameMemory, nil)
		require.NoError(t, run.Begin(0))
		require.NoError(t, run.Submit(false))
		require.NoError(t, run.Continue())
		st := run.State()
		assert.Equal(t, PhaseInstruction, st.Phase)
		assert.Equal(t, 1, st.Level)
	})
}

func TestCompletesAfterMaxLevel(t *testing.T) {
	l := ledger.New()
	run, _ := newRun(t, domain.GameLogic, l)
	info, _ := domain.Info(domain.GameLogic)

	for i := 1; i <= info.MaxLevel; i++ {
		require.NoError(t, run.Begin(0))
		require.NoError(t, run.Submit(true))
		require.NoError(t, run.Continue())
	}

	st := run.State()
	assert.Equal(t, PhaseComplete, st.Phase)
	assert.Len(t, l.Scores(domain.GameLogic), info.MaxLevel)
	// 20 * (1+2+...+12)
	assert.Equal(t, 20*78, st.Score)
	assert.ErrorIs(t, run.Begin(0), ErrWrongPhase)
}

func TestWrongPhase(t *testing.T) {
	run, _ := newRun(t, domain.GameMath, nil)
	assert.ErrorIs(t, run.Submit(true), ErrWrongPhase)
	assert.ErrorIs(t, run.Continue(), ErrWrongPhase)
	require.NoError(t, run.Begin(2))
	assert.ErrorIs(t, run.Submit(true), ErrWrongPhase, "still showing")
}

func TestStopDropsPendingTick(t *testing.T) {
	run, clock := newRun(t, domain.GameMemory, nil)
	require.NoError(t, run.Begin(2))
	run.Stop()
	clock.fire()
	st := run.State()
	assert.Equal(t, PhaseShowing, st.Phase)
	assert.Zero(t, st.Revealed)
}

func TestUnknownGame(t *testing.T) {
	_, err := NewFactory().NewRun("chess", nil)
	assert.ErrorIs(t, err, ErrUnknownGame)
}

func TestWallClock(t *testing.T) {
	f := &Factory{Scheduler: WallClock{}, RevealInterval: time.Millisecond}
	run, err := f.NewRun(domain.GameMemory, nil)
	require.NoError(t, err)

	done := make(chan struct{})
	run.OnPhase(func(s State) {
		if s.Phase == PhaseInput {
			close(done)
		}
	})
	require.NoError(t, run.Begin(2))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("reveal did not finish")
	}
}
