package ledger

import (
	"sync"
	"testing"

	"mindcascade/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAverageScore(t *testing.T) {
	l := New()
	l.RecordScore(domain.GameMemory, 10)
	l.RecordScore(domain.GameMemory, 20)
	l.RecordScore(domain.GameMemory, 60)
	l.RecordScore(domain.GameMath, 40)

	assert.InDelta(t, 30.0, l.AverageScore(domain.GameMemory), 1e-9)
	assert.InDelta(t, 40.0, l.AverageScore(domain.GameMath), 1e-9)
	assert.Equal(t, []int{10, 20, 60}, l.Scores(domain.GameMemory))
}

func TestAverageScoreIsOrderIndependent(t *testing.T) {
	a, b := New(), New()
	for _, p := range []int{15, 30, 45, 0} {
		a.RecordScore(domain.GameFocus, p)
	}
	for _, p := range []int{0, 45, 30, 15} {
		b.RecordScore(domain.GameFocus, p)
	}
	assert.Equal(t, a.AverageScore(domain.GameFocus), b.AverageScore(domain.GameFocus))
}

func TestEmptyAveragesAreZero(t *testing.T) {
	l := New()
	assert.Zero(t, l.OverallAverageScore())
	for _, g := range domain.AllGames {
		assert.Zero(t, l.AverageScore(g), "game %s", g)
	}
}

func TestOverallAverageFlattensAllGames(t *testing.T) {
	l := New()
	l.RecordScore(domain.GameMemory, 10)
	l.RecordScore(domain.GameLogic, 20)
	l.RecordScore(domain.GameLogic, 40)
	l.RecordScore(domain.GameFocus, 30)

	// mean of {10,20,40,30}, not the mean of per-game means
	assert.InDelta(t, 25.0, l.OverallAverageScore(), 1e-9)
}

func TestInvalidScoresDropped(t *testing.T) {
	l := New()
	l.RecordScore(domain.GameMemory, -5)
	l.RecordScore("chess", 10)

	assert.Empty(t, l.Scores(domain.GameMemory))
	assert.Zero(t, l.OverallAverageScore())
}

func TestGrantRewardIdempotent(t *testing.T) {
	l := New()
	l.GrantReward(domain.RewardFlameOfFocus)
	l.GrantReward(domain.RewardFlameOfFocus)
	l.GrantReward(domain.RewardCrystalOfMemory)

	assert.Equal(t, []domain.RewardID{domain.RewardCrystalOfMemory, domain.RewardFlameOfFocus}, l.EarnedRewards())
	assert.True(t, l.HasReward(domain.RewardFlameOfFocus))
	assert.False(t, l.HasReward(domain.RewardStarOfSpeed))
}

func TestResetProgress(t *testing.T) {
	l := New()
	l.RecordScore(domain.GameMath, 20)
	l.GrantReward(domain.RewardStarOfSpeed)
	l.SetOnboardingCompleted()

	l.ResetProgress()

	assert.Zero(t, l.AverageScore(domain.GameMath))
	assert.Zero(t, l.OverallAverageScore())
	assert.Empty(t, l.EarnedRewards())
	assert.True(t, l.HasCompletedOnboarding(), "reset keeps onboarding")
}

func TestOnboardingOneWay(t *testing.T) {
	l := New()
	assert.False(t, l.HasCompletedOnboarding())
	l.SetOnboardingCompleted()
	l.SetOnboardingCompleted()
	assert.True(t, l.HasCompletedOnboarding())
}

func TestSnapshot(t *testing.T) {
	l := New()
	l.RecordScore(domain.GameLogic, 20)
	l.RecordScore(domain.GameLogic, 40)
	l.GrantReward(domain.RewardBadgeOfLogic)

	snap := l.Snapshot()
	require.Len(t, snap.Games, len(domain.AllGames))
	for _, gs := range snap.Games {
		if gs.Game == domain.GameLogic {
			assert.Equal(t, 2, gs.Plays)
			assert.InDelta(t, 30.0, gs.Average, 1e-9)
		} else {
			assert.Zero(t, gs.Plays)
		}
	}
	assert.InDelta(t, 30.0, snap.OverallAverage, 1e-9)
	assert.Equal(t, []domain.RewardID{domain.RewardBadgeOfLogic}, snap.Rewards)
}

func TestRestore(t *testing.T) {
	l := New()
	l.RecordScore(domain.GameFocus, 99)
	l.Restore(State{
		Scores:              map[domain.GameID][]int{domain.GameMemory: {10, 20}, "bogus": {1}},
		Rewards:             []domain.RewardID{domain.RewardCrystalOfMemory, "bogus"},
		OnboardingCompleted: true,
	})

	assert.Empty(t, l.Scores(domain.GameFocus))
	assert.Equal(t, []int{10, 20}, l.Scores(domain.GameMemory))
	assert.Equal(t, []domain.RewardID{domain.RewardCrystalOfMemory}, l.EarnedRewards())
	assert.True(t, l.HasCompletedOnboarding())
}

func TestSubscribe(t *testing.T) {
	l := New()
	var got []Snapshot
	cancel := l.Subscribe(func(s Snapshot) { got = append(got, s) })

	l.RecordScore(domain.GameMemory, 10)
	l.GrantReward(domain.RewardCrystalOfMemory)
	l.GrantReward(domain.RewardCrystalOfMemory) // no change, no event
	l.SetOnboardingCompleted()
	require.Len(t, got, 3)
	assert.InDelta(t, 10.0, got[0].OverallAverage, 1e-9)
	assert.Equal(t, []domain.RewardID{domain.RewardCrystalOfMemory}, got[1].Rewards)
	assert.True(t, got[2].OnboardingCompleted)

	cancel()
	cancel()
	l.ResetProgress()
	assert.Len(t, got, 3)
}

func TestConcurrentWriters(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RecordScore(domain.GameMath, 20)
			l.GrantReward(domain.RewardStarOfSpeed)
			_ = l.Snapshot()
		}()
	}
	wg.Wait()

	assert.Len(t, l.Scores(domain.GameMath), 50)
	assert.InDelta(t, 20.0, l.OverallAverageScore(), 1e-9)
	assert.Len(t, l.EarnedRewards(), 1)
}

func TestSubscribersSeeVersionsInOrder(t *testing.T) {
	l := New()
	var (
		mu   sync.Mutex
		seen []Snapshot
	)
	l.Subscribe(func(s Snapshot) {
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.RecordScore(domain.GameLogic, 20)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, seen)
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i].Version, seen[i-1].Version)
	}
	last := seen[len(seen)-1]
	assert.Equal(t, uint64(100), last.Version)
	assert.Equal(t, 100, last.Games[3].Plays)
}

func TestNotifySkipsOlderSnapshot(t *testing.T) {
	l := New()
	var got []uint64
	l.Subscribe(func(s Snapshot) { got = append(got, s.Version) })

	l.RecordScore(domain.GameMemory, 10)
	stale := l.Snapshot()
	l.RecordScore(domain.GameMemory, 20)

	// a writer that lost the race delivers after the newer one
	l.notify(stale)
	assert.Equal(t, []uint64{1, 2}, got)
}
