package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	sessionsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sessions_opened_total",
			Help: "Sessions created",
		},
	)
	scoresRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scores_recorded_total",
			Help: "Level scores recorded by game",
		},
		[]string{"game"},
	)
	rewardsGranted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rewards_granted_total",
			Help: "First-time reward grants by reward",
		},
		[]string{"reward"},
	)
)

func init() {
	prometheus.MustRegister(sessionsOpened)
	prometheus.MustRegister(scoresRecorded)
	prometheus.MustRegister(rewardsGranted)
}
