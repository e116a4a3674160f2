package ledger

import (
	"sort"
	"sync"

	"mindcascade/internal/domain"
	"mindcascade/internal/logger"
)

// State is the durable part of a ledger, used to seed it from storage.
type State struct {
	Scores              map[domain.GameID][]int
	Rewards             []domain.RewardID
	OnboardingCompleted bool
}

// GameStats - агрегаты по одной игре
type GameStats struct {
	Game    domain.GameID `json:"game"`
	Plays   int           `json:"plays"`
	Average float64       `json:"average"`
}

// Snapshot is what the statistics screen renders.
type Snapshot struct {
	Games               []GameStats       `json:"games"`
	OverallAverage      float64           `json:"overall_average"`
	Rewards             []domain.RewardID `json:"rewards"`
	OnboardingCompleted bool              `json:"onboarding_completed"`
	// Version grows with every mutation; observers never see it go backwards.
	Version             uint64            `json:"version"`
}

// Ledger tracks scores, earned rewards and the onboarding flag of one session.
// All methods are safe for concurrent use.
type Ledger struct {
	mu         sync.RWMutex
	scores     map[domain.GameID][]int
	rewards    map[domain.RewardID]struct{}
	onboarding bool
	version    uint64

	subMu  sync.Mutex
	subSeq int
	subs   map[int]func(Snapshot)

	// serializes delivery so snapshots reach observers in version order
	deliverMu sync.Mutex
	delivered uint64
}

func New() *Ledger {
	return &Ledger{
		scores:  make(map[domain.GameID][]int),
		rewards: make(map[domain.RewardID]struct{}),
		subs:    make(map[int]func(Snapshot)),
	}
}

// Restore replaces the ledger contents with st.
func (l *Ledger) Restore(st State) {
	l.mu.Lock()
	l.scores = make(map[domain.GameID][]int, len(st.Scores))
	for g, s := range st.Scores {
		if !g.Valid() || len(s) == 0 {
			continue
		}
		l.scores[g] = append([]int(nil), s...)
	}
	l.rewards = make(map[domain.RewardID]struct{}, len(st.Rewards))
	for _, r := range st.Rewards {
		if r.Valid() {
			l.rewards[r] = struct{}{}
		}
	}
	l.onboarding = st.OnboardingCompleted
	snap := l.bumpLocked()
	l.mu.Unlock()

	l.notify(snap)
}

// RecordScore appends points to the game's history. Negative points and
// unknown games are dropped.
func (l *Ledger) RecordScore(game domain.GameID, points int) {
	if !game.Valid() || points < 0 {
		logger.Warn("ledger: score dropped", "game", game, "points", points)
		return
	}

	l.mu.Lock()
	l.scores[game] = append(l.scores[game], points)
	n := len(l.scores[game])
	snap := l.bumpLocked()
	l.mu.Unlock()

	logger.Debug("ledger: score recorded", "game", game, "points", points, "plays", n)
	l.notify(snap)
}

// GrantReward marks the reward as earned. Granting twice is a no-op.
func (l *Ledger) GrantReward(reward domain.RewardID) {
	if !reward.Valid() {
		logger.Warn("ledger: reward dropped", "reward", reward)
		return
	}

	l.mu.Lock()
	if _, had := l.rewards[reward]; had {
		l.mu.Unlock()
		return
	}
	l.rewards[reward] = struct{}{}
	snap := l.bumpLocked()
	l.mu.Unlock()

	logger.Debug("ledger: reward granted", "reward", reward)
	l.notify(snap)
}

func (l *Ledger) AverageScore(game domain.GameID) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return mean(l.scores[game])
}

func (l *Ledger) OverallAverageScore() float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.overallLocked()
}

func (l *Ledger) overallLocked() float64 {
	var sum, n int
	for _, s := range l.scores {
		for _, p := range s {
			sum += p
		}
		n += len(s)
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

// Scores returns a copy of the game's history in recording order.
func (l *Ledger) Scores(game domain.GameID) []int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]int(nil), l.scores[game]...)
}

// EarnedRewards returns the earned rewards sorted by id.
func (l *Ledger) EarnedRewards() []domain.RewardID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rewardsLocked()
}

func (l *Ledger) rewardsLocked() []domain.RewardID {
	out := make([]domain.RewardID, 0, len(l.rewards))
	for r := range l.rewards {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (l *Ledger) HasReward(reward domain.RewardID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.rewards[reward]
	return ok
}

// ResetProgress clears scores and rewards in one step. The onboarding flag
// survives a reset.
func (l *Ledger) ResetProgress() {
	l.mu.Lock()
	l.scores = make(map[domain.GameID][]int)
	l.rewards = make(map[domain.RewardID]struct{})
	snap := l.bumpLocked()
	l.mu.Unlock()

	logger.Debug("ledger: progress reset")
	l.notify(snap)
}

func (l *Ledger) SetOnboardingCompleted() {
	l.mu.Lock()
	if l.onboarding {
		l.mu.Unlock()
		return
	}
	l.onboarding = true
	snap := l.bumpLocked()
	l.mu.Unlock()

	l.notify(snap)
}

func (l *Ledger) HasCompletedOnboarding() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.onboarding
}

func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

// bumpLocked advances the version and captures the state it names.
func (l *Ledger) bumpLocked() Snapshot {
	l.version++
	return l.snapshotLocked()
}

func (l *Ledger) snapshotLocked() Snapshot {
	games := make([]GameStats, 0, len(domain.AllGames))
	for _, g := range domain.AllGames {
		s := l.scores[g]
		games = append(games, GameStats{Game: g, Plays: len(s), Average: mean(s)})
	}

	return Snapshot{
		Games:               games,
		OverallAverage:      l.overallLocked(),
		Rewards:             l.rewardsLocked(),
		OnboardingCompleted: l.onboarding,
		Version:             l.version,
	}
}

// Subscribe registers fn to receive a snapshot after every mutation. fn runs
// on the mutating goroutine, outside the ledger lock, and must not mutate the
// ledger. A snapshot older than one already delivered is skipped. The
// returned func removes the subscription.
func (l *Ledger) Subscribe(fn func(Snapshot)) (cancel func()) {
	l.subMu.Lock()
	l.subSeq++
	id := l.subSeq
	l.subs[id] = fn
	l.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.subMu.Lock()
			delete(l.subs, id)
			l.subMu.Unlock()
		})
	}
}

func (l *Ledger) notify(snap Snapshot) {
	l.deliverMu.Lock()
	defer l.deliverMu.Unlock()
	if snap.Version <= l.delivered {
		return
	}
	l.delivered = snap.Version

	l.subMu.Lock()
	fns := make([]func(Snapshot), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func mean(s []int) float64 {
	if len(s) == 0 {
		return 0
	}
	sum := 0
	for _, p := range s {
		sum += p
	}
	return float64(sum) / float64(len(s))
}
