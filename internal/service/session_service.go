package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"mindcascade/internal/domain"
	"mindcascade/internal/gate"
	"mindcascade/internal/ledger"
	"mindcascade/internal/logger"
	"mindcascade/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownGame     = errors.New("unknown game")
	ErrUnknownReward   = errors.New("unknown reward")
	ErrInvalidPoints   = errors.New("points must be non-negative")
	ErrInvalidLevel    = errors.New("level out of range")
	ErrInvalidSignals  = errors.New("battery level must be between 0 and 100")
)

const storeTimeout = 5 * time.Second

// ProgressStore is durable storage for session progress.
type ProgressStore interface {
	CreateSession(ctx context.Context, s *domain.Session) error
	LoadState(ctx context.Context, id string) (ledger.State, error)
	AppendScore(ctx context.Context, id string, game domain.GameID, points int) error
	AddReward(ctx context.Context, id string, reward domain.RewardID) error
	SetOnboardingCompleted(ctx context.Context, id string) error
	ResetProgress(ctx context.Context, id string) error
	LoadDecision(ctx context.Context, id string) (domain.Decision, bool, error)
	// SaveDecision keeps the first decision stored for the session and
	// returns it.
	SaveDecision(ctx context.Context, id string, d domain.Decision) (domain.Decision, error)
}

// DecisionStore shares launch decisions between instances.
type DecisionStore interface {
	Get(ctx context.Context, sessionID string) (domain.Decision, bool, error)
	Put(ctx context.Context, sessionID string, d domain.Decision) (domain.Decision, error)
}

// Presence reports live stream clients of a session. Sessions with clients
// are never evicted.
type Presence interface {
	Count(sessionID string) int
}

// Session - состояние одного клиента: леджер и решение гейта
type Session struct {
	ID     string
	Ledger *ledger.Ledger

	mu       sync.Mutex
	gate     *gate.Gate
	launch   *LaunchResult // решение сессии, после него гейт не нужен
	lastSeen time.Time
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Session) decided() (LaunchResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.launch == nil {
		return LaunchResult{}, false
	}
	return *s.launch, true
}

// settle records res as the session's decision unless one is already set,
// and returns the one in effect.
func (s *Session) settle(res LaunchResult) LaunchResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.launch == nil {
		s.launch = &res
	}
	return *s.launch
}

// Reasons for decisions that did not come from this instance's gate.
const (
	ReasonStored = "stored"
	ReasonCached = "cached"
)

// LaunchResult is the launch gate answer for a session.
type LaunchResult struct {
	Decision domain.Decision `json:"decision"`
	Reason   string          `json:"reason"`
}

// LevelResult is what a completed level earned.
type LevelResult struct {
	Game   domain.GameID   `json:"game"`
	Level  int             `json:"level"`
	Points int             `json:"points"`
	Reward domain.RewardID `json:"reward"`
}

type SessionServiceConfig struct {
	ProbeURL  string
	Transport gate.Transport
	Store     ProgressStore // nil - только память
	Decisions DecisionStore // nil - решение живёт в памяти процесса
	Presence  Presence
	IdleTTL   time.Duration
}

// SessionService owns every live session of this instance.
type SessionService struct {
	mu       sync.Mutex
	sessions map[string]*Session

	probeURL  string
	transport gate.Transport
	store     ProgressStore
	decisions DecisionStore
	presence  Presence
	idleTTL   time.Duration
}

func NewSessionService(cfg SessionServiceConfig) *SessionService {
	transport := cfg.Transport
	if transport == nil {
		transport = gate.NewHTTPTransport(0)
	}
	idle := cfg.IdleTTL
	if idle <= 0 {
		idle = 24 * time.Hour
	}
	return &SessionService{
		sessions:  make(map[string]*Session),
		probeURL:  cfg.ProbeURL,
		transport: transport,
		store:     cfg.Store,
		decisions: cfg.Decisions,
		presence:  cfg.Presence,
		idleTTL:   idle,
	}
}

// Open creates a new session.
func (s *SessionService) Open(ctx context.Context) (*Session, error) {
	sess := &Session{
		ID:       uuid.NewString(),
		Ledger:   ledger.New(),
		lastSeen: time.Now(),
	}

	if s.store != nil {
		sctx, cancel := context.WithTimeout(ctx, storeTimeout)
		defer cancel()
		if err := s.store.CreateSession(sctx, &domain.Session{ID: sess.ID}); err != nil {
			return nil, fmt.Errorf("create session: %w", err)
		}
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	sessionsOpened.Inc()
	logger.Info("session opened", "session_id", sess.ID)
	return sess, nil
}

// Get returns a live session, reloading it from the store when this
// instance has not seen it yet.
func (s *SessionService) Get(ctx context.Context, id string) (*Session, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if ok {
		sess.touch()
		return sess, nil
	}

	if s.store == nil {
		return nil, ErrSessionNotFound
	}

	sctx, cancel := context.WithTimeout(ctx, storeTimeout)
	defer cancel()
	st, err := s.store.LoadState(sctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	d, decided, err := s.store.LoadDecision(sctx, id)
	if err != nil {
		return nil, fmt.Errorf("load decision: %w", err)
	}

	loaded := &Session{ID: id, Ledger: ledger.New(), lastSeen: time.Now()}
	loaded.Ledger.Restore(st)
	if decided {
		loaded.launch = &LaunchResult{Decision: d, Reason: ReasonStored}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// another request may have loaded it meanwhile
	if existing, ok := s.sessions[id]; ok {
		return existing, nil
	}
	s.sessions[id] = loaded
	logger.Debug("session restored", "session_id", id)
	return loaded, nil
}

// Launch resolves the session's launch gate. The first call decides; every
// later call for the same session returns that decision whatever the signals,
// also after the session was evicted or the service restarted. A caller that
// gives up waiting gets ctx's error while the gate still resolves and stores
// its decision.
func (s *SessionService) Launch(ctx context.Context, id string, sig domain.DeviceSignals) (LaunchResult, error) {
	if sig.BatteryLevel < 0 || sig.BatteryLevel > 100 {
		return LaunchResult{}, ErrInvalidSignals
	}
	sess, err := s.Get(ctx, id)
	if err != nil {
		return LaunchResult{}, err
	}

	if res, ok := sess.decided(); ok {
		return res, nil
	}
	if d, ok := s.cachedDecision(ctx, sess); ok {
		return sess.settle(LaunchResult{Decision: d, Reason: ReasonCached}), nil
	}

	sess.mu.Lock()
	if sess.gate == nil {
		sess.gate = gate.New(gate.StaticSignals(sig), s.transport, s.probeURL)
	}
	g := sess.gate
	sess.mu.Unlock()

	done := make(chan LaunchResult, 1)
	g.Start(ctx, func(d domain.Decision) {
		res := s.share(ctx, id, LaunchResult{Decision: d, Reason: string(g.Reason())})
		done <- sess.settle(res)
	})

	select {
	case res := <-done:
		return res, nil
	case <-ctx.Done():
		return LaunchResult{}, ctx.Err()
	}
}

// share stores the decision durably and in the shared cache. When another
// instance decided first, its decision wins.
func (s *SessionService) share(ctx context.Context, id string, res LaunchResult) LaunchResult {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()

	if s.store != nil {
		stored, err := s.store.SaveDecision(sctx, id, res.Decision)
		if err != nil {
			logger.Error("failed to persist launch decision", "session_id", id, "error", err)
		} else if stored != res.Decision {
			res = LaunchResult{Decision: stored, Reason: ReasonStored}
		}
	}

	if s.decisions != nil {
		stored, err := s.decisions.Put(sctx, id, res.Decision)
		if err != nil {
			logger.Warn("decision cache write failed", "session_id", id, "error", err)
		} else if stored != res.Decision {
			res = LaunchResult{Decision: stored, Reason: ReasonCached}
		}
	}
	return res
}

// cachedDecision consults the shared cache, but only for a session whose
// gate has not been built on this instance.
func (s *SessionService) cachedDecision(ctx context.Context, sess *Session) (domain.Decision, bool) {
	if s.decisions == nil {
		return "", false
	}
	sess.mu.Lock()
	local := sess.gate != nil
	sess.mu.Unlock()
	if local {
		return "", false
	}

	d, ok, err := s.decisions.Get(ctx, sess.ID)
	if err != nil {
		logger.Warn("decision cache read failed", "session_id", sess.ID, "error", err)
		return "", false
	}
	return d, ok
}

func (s *SessionService) RecordScore(ctx context.Context, id string, game domain.GameID, points int) error {
	if !game.Valid() {
		return ErrUnknownGame
	}
	if points < 0 {
		return ErrInvalidPoints
	}
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	sess.Ledger.RecordScore(game, points)
	scoresRecorded.WithLabelValues(string(game)).Inc()
	s.persist(ctx, id, "append score", func(c context.Context, st ProgressStore) error {
		return st.AppendScore(c, id, game, points)
	})
	return nil
}

func (s *SessionService) GrantReward(ctx context.Context, id string, reward domain.RewardID) error {
	if !reward.Valid() {
		return ErrUnknownReward
	}
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if !sess.Ledger.HasReward(reward) {
		rewardsGranted.WithLabelValues(string(reward)).Inc()
	}
	sess.Ledger.GrantReward(reward)
	s.persist(ctx, id, "add reward", func(c context.Context, st ProgressStore) error {
		return st.AddReward(c, id, reward)
	})
	return nil
}

// RecordLevel is what a mini-game reports after a passed level: the level
// score from the catalog plus the game's reward.
func (s *SessionService) RecordLevel(ctx context.Context, id string, game domain.GameID, level int) (LevelResult, error) {
	info, ok := domain.Info(game)
	if !ok {
		return LevelResult{}, ErrUnknownGame
	}
	if level < 1 || level > info.MaxLevel {
		return LevelResult{}, ErrInvalidLevel
	}

	res := LevelResult{Game: game, Level: level, Points: info.LevelScore(level), Reward: info.Reward}
	if err := s.RecordScore(ctx, id, game, res.Points); err != nil {
		return LevelResult{}, err
	}
	if err := s.GrantReward(ctx, id, info.Reward); err != nil {
		return LevelResult{}, err
	}
	return res, nil
}

func (s *SessionService) CompleteOnboarding(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if sess.Ledger.HasCompletedOnboarding() {
		return nil
	}
	sess.Ledger.SetOnboardingCompleted()
	s.persist(ctx, id, "set onboarding", func(c context.Context, st ProgressStore) error {
		return st.SetOnboardingCompleted(c, id)
	})
	return nil
}

func (s *SessionService) Reset(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	sess.Ledger.ResetProgress()
	s.persist(ctx, id, "reset progress", func(c context.Context, st ProgressStore) error {
		return st.ResetProgress(c, id)
	})
	logger.Info("progress reset", "session_id", id)
	return nil
}

func (s *SessionService) Stats(ctx context.Context, id string) (ledger.Snapshot, error) {
	sess, err := s.Get(ctx, id)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	return sess.Ledger.Snapshot(), nil
}

// persist writes through to the store. The ledger is already updated, so a
// store failure is logged and the request still succeeds.
func (s *SessionService) persist(ctx context.Context, id, op string, fn func(context.Context, ProgressStore) error) {
	if s.store == nil {
		return
	}
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), storeTimeout)
	defer cancel()
	if err := fn(sctx, s.store); err != nil {
		logger.Error("failed to persist progress", "op", op, "session_id", id, "error", err)
	}
}

// StartCleanup evicts sessions idle for longer than the idle TTL. Evicted
// sessions with a store are reloaded on their next request.
func (s *SessionService) StartCleanup(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.evictIdle(time.Now())
			}
		}
	}()
}

func (s *SessionService) evictIdle(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastSeen)
		sess.mu.Unlock()
		if idle <= s.idleTTL {
			continue
		}
		if s.presence != nil && s.presence.Count(id) > 0 {
			continue
		}
		delete(s.sessions, id)
		n++
	}
	if n > 0 {
		logger.Info("evicted idle sessions", "count", n)
	}
	return n
}
