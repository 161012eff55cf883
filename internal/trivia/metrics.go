package trivia

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ticksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trivia",
		Name:      "ticks_total",
		Help:      "Scheduler ticks by result.",
	}, []string{"result"})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trivia",
		Name:      "resolutions_total",
		Help:      "Question resolutions by mode and outcome.",
	}, []string{"mode", "outcome"})

	pointsAwarded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "trivia",
		Name:      "points_awarded_total",
		Help:      "Points awarded across all contests.",
	})

	activeContests = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trivia",
		Name:      "active_contests",
		Help:      "Contests with a running scheduler in this process.",
	})

	pendingReviews = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "trivia",
		Name:      "pending_reviews",
		Help:      "Manual-review questions waiting for a staff pick.",
	})
)
