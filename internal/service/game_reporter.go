package service

import (
	"context"

	"mindcascade/internal/domain"
	"mindcascade/internal/game"
	"mindcascade/internal/logger"
)

// Reporter returns a game.Reporter that records a run's results for session
// id through the service, so they are counted and persisted like API writes.
func (s *SessionService) Reporter(id string) game.Reporter {
	return sessionReporter{svc: s, id: id}
}

type sessionReporter struct {
	svc *SessionService
	id  string
}

func (r sessionReporter) RecordScore(g domain.GameID, points int) {
	if err := r.svc.RecordScore(context.Background(), r.id, g, points); err != nil {
		logger.Warn("game run: score not recorded", "session_id", r.id, "game", g, "error", err)
	}
}

func (r sessionReporter) GrantReward(reward domain.RewardID) {
	if err := r.svc.GrantReward(context.Background(), r.id, reward); err != nil {
		logger.Warn("game run: reward not granted", "session_id", r.id, "reward", reward, "error", err)
	}
}
