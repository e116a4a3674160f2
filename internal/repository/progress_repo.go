package repository

import (
	"context"
	"errors"

	"mindcascade/internal/domain"
	"mindcascade/internal/ledger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

type ProgressRepository struct {
	db *pgxpool.Pool
}

func NewProgressRepository(db *pgxpool.Pool) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// CreateSession сохраняет новую сессию
func (r *ProgressRepository) CreateSession(ctx context.Context, s *domain.Session) error {
	return r.db.QueryRow(ctx,
		`INSERT INTO sessions (id, onboarding_completed)
		 VALUES ($1, $2)
		 RETURNING created_at`,
		s.ID, s.OnboardingCompleted,
	).Scan(&s.CreatedAt)
}

// GetSession возвращает сессию по id
func (r *ProgressRepository) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.QueryRow(ctx,
		`SELECT id::text, onboarding_completed, COALESCE(gate_decision, ''), created_at
		 FROM sessions WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.OnboardingCompleted, &s.GateDecision, &s.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadState собирает очки, награды и флаг онбординга сессии
func (r *ProgressRepository) LoadState(ctx context.Context, id string) (ledger.State, error) {
	sess, err := r.GetSession(ctx, id)
	if err != nil {
		return ledger.State{}, err
	}

	st := ledger.State{
		Scores:              make(map[domain.GameID][]int),
		OnboardingCompleted: sess.OnboardingCompleted,
	}

	rows, err := r.db.Query(ctx,
		`SELECT game, points FROM session_scores WHERE session_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return ledger.State{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			game   domain.GameID
			points int
		)
		if err := rows.Scan(&game, &points); err != nil {
			return ledger.State{}, err
		}
		st.Scores[game] = append(st.Scores[game], points)
	}
	if err := rows.Err(); err != nil {
		return ledger.State{}, err
	}

	rewardRows, err := r.db.Query(ctx,
		`SELECT reward FROM session_rewards WHERE session_id = $1 ORDER BY reward`,
		id,
	)
	if err != nil {
		return ledger.State{}, err
	}
	defer rewardRows.Close()

	for rewardRows.Next() {
		var reward domain.RewardID
		if err := rewardRows.Scan(&reward); err != nil {
			return ledger.State{}, err
		}
		st.Rewards = append(st.Rewards, reward)
	}

	return st, rewardRows.Err()
}

func (r *ProgressRepository) AppendScore(ctx context.Context, id string, game domain.GameID, points int) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO session_scores (session_id, game, points) VALUES ($1, $2, $3)`,
		id, game, points,
	)
	return err
}

// AddReward is idempotent: an already earned reward is left alone.
func (r *ProgressRepository) AddReward(ctx context.Context, id string, reward domain.RewardID) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO session_rewards (session_id, reward) VALUES ($1, $2)
		 ON CONFLICT (session_id, reward) DO NOTHING`,
		id, reward,
	)
	return err
}

func (r *ProgressRepository) SetOnboardingCompleted(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx,
		`UPDATE sessions SET onboarding_completed = TRUE WHERE id = $1`,
		id,
	)
	return err
}

// ResetProgress deletes scores and rewards in one transaction.
func (r *ProgressRepository) ResetProgress(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM session_scores WHERE session_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM session_rewards WHERE session_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// LoadDecision returns the session's stored launch decision, false when the
// gate has not resolved yet.
func (r *ProgressRepository) LoadDecision(ctx context.Context, id string) (domain.Decision, bool, error) {
	sess, err := r.GetSession(ctx, id)
	if err != nil {
		return "", false, err
	}
	return sess.GateDecision, sess.GateDecision != "", nil
}

// SaveDecision stores d unless the session already has a decision, and
// returns the one that ends up stored.
func (r *ProgressRepository) SaveDecision(ctx context.Context, id string, d domain.Decision) (domain.Decision, error) {
	var stored domain.Decision
	err := r.db.QueryRow(ctx,
		`UPDATE sessions SET gate_decision = COALESCE(gate_decision, $2)
		 WHERE id = $1
		 RETURNING gate_decision`,
		id, string(d),
	).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	return stored, err
}
