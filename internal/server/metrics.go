package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for every table in a process
type Metrics struct {
	HandsStarted   *prometheus.CounterVec
	HandsCompleted *prometheus.CounterVec
	Actions        *prometheus.CounterVec
	Joins          *prometheus.CounterVec
	Leaves         *prometheus.CounterVec
	Timeouts       *prometheus.CounterVec
	StorageErrors  *prometheus.CounterVec
	SeatedPlayers  *prometheus.GaugeVec
	OutboxPending  *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		HandsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdem",
			Name:      "hands_started_total",
			Help:      "Hands dealt.",
		}, []string{"table"}),
		HandsCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdem",
			Name:      "hands_completed_total",
			Help:      "Hands settled, by whether they reached showdown.",
		}, []string{"table", "showdown"}),
		Actions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdem",
			Name:      "actions_total",
			Help:      "Player decisions, by action and result.",
		}, []string{"table", "action", "result"}),
		Joins: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdem",
			Name:      "joins_total",
			Help:      "Players seated.",
		}, []string{"table"}),
		Leaves: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdem",
			Name:      "leaves_total",
			Help:      "Players who left a table.",
		}, []string{"table"}),
		Timeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdem",
			Name:      "action_timeouts_total",
			Help:      "Players folded for not acting in time.",
		}, []string{"table"}),
		StorageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "holdem",
			Name:      "storage_errors_total",
			Help:      "Snapshots that failed to persist.",
		}, []string{"table"}),
		SeatedPlayers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "holdem",
			Name:      "seated_players",
			Help:      "Players currently holding a seat.",
		}, []string{"table"}),
		OutboxPending: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "holdem",
			Name:      "outbox_pending",
			Help:      "Snapshots waiting to be persisted and broadcast.",
		}, []string{"table"}),
	}
}
