package domain

import "time"

// Session - игровая сессия клиента
type Session struct {
	ID                  string    `db:"id" json:"session_id"`
	OnboardingCompleted bool      `db:"onboarding_completed" json:"onboarding_completed"`
	GateDecision        Decision  `db:"gate_decision" json:"gate_decision,omitempty"` // пусто до первого запуска
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
}

// ScoreEntry - одна запись очков за пройденный уровень
type ScoreEntry struct {
	SessionID string    `db:"session_id" json:"-"`
	Game      GameID    `db:"game" json:"game"`
	Points    int       `db:"points" json:"points"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
