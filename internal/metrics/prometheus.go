// Package metrics provides Prometheus exporters for application metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the StreakFarm backend.
var (
	// Counters.
	CheckinsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streakfarm_checkins_total",
			Help: "Total number of check-in attempts",
		},
		[]string{"status"}, // "continued", "reset", "too_soon", "error"
	)

	PointsAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streakfarm_points_awarded_total",
			Help: "Total points appended to the ledger",
		},
		[]string{"source"},
	)

	BoxesOpenedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streakfarm_boxes_opened_total",
			Help: "Total boxes opened",
		},
		[]string{"rarity"},
	)

	BoxesGeneratedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streakfarm_boxes_generated_total",
			Help: "Total boxes generated",
		},
		[]string{"rarity"},
	)

	BoxesExpiredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "streakfarm_boxes_expired_total",
			Help: "Total boxes expired unopened",
		},
	)

	BadgesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streakfarm_badges_awarded_total",
			Help: "Total badges awarded",
		},
		[]string{"badge"},
	)

	MilestonesAwardedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streakfarm_milestones_awarded_total",
			Help: "Total streak milestones awarded",
		},
		[]string{"milestone"},
	)

	// Gauges.
	ActiveStreaks = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streakfarm_active_streaks",
			Help: "Number of users with a live streak after the last reset sweep",
		},
	)

	// Histograms.
	BoxPayoutPoints = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streakfarm_box_payout_points",
			Help:    "Final point payout per opened box",
			Buckets: prometheus.ExponentialBuckets(50, 2, 11), // 50 to ~51k points
		},
		[]string{"rarity"},
	)

	// Scheduler metrics.
	SchedulerJobsRunTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streakfarm_scheduler_jobs_run_total",
			Help: "Total scheduler pipeline step executions",
		},
		[]string{"step", "status"},
	)

	SchedulerLastRunTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "streakfarm_scheduler_last_run_timestamp",
			Help: "Unix timestamp of last scheduler pipeline run",
		},
	)

	SchedulerJobDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "streakfarm_scheduler_job_duration_seconds",
			Help:    "Duration of scheduler pipeline steps",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"step"},
	)
)

// RecordCheckin records a check-in attempt outcome.
func RecordCheckin(status string) {
	CheckinsTotal.WithLabelValues(status).Inc()
}

// RecordPointsAwarded records points appended to the ledger by source.
func RecordPointsAwarded(source string, points int64) {
	if points > 0 {
		PointsAwardedTotal.WithLabelValues(source).Add(float64(points))
	}
}

// RecordBoxOpened records a successful box open with its payout.
func RecordBoxOpened(rarity string, finalPoints uint) {
	BoxesOpenedTotal.WithLabelValues(rarity).Inc()
	BoxPayoutPoints.WithLabelValues(rarity).Observe(float64(finalPoints))
}

// RecordBoxGenerated records a generated box by rarity.
func RecordBoxGenerated(rarity string) {
	BoxesGeneratedTotal.WithLabelValues(rarity).Inc()
}

// RecordBoxesExpired records a batch of expired boxes.
func RecordBoxesExpired(count int) {
	BoxesExpiredTotal.Add(float64(count))
}

// RecordBadgeAwarded records a badge award.
func RecordBadgeAwarded(badge string) {
	BadgesAwardedTotal.WithLabelValues(badge).Inc()
}

// RecordMilestoneAwarded records a milestone award.
func RecordMilestoneAwarded(milestone string) {
	MilestonesAwardedTotal.WithLabelValues(milestone).Inc()
}

// RecordSchedulerStep records a pipeline step result and its duration.
func RecordSchedulerStep(step, status string, duration time.Duration) {
	SchedulerJobsRunTotal.WithLabelValues(step, status).Inc()
	SchedulerJobDurationSeconds.WithLabelValues(step).Observe(duration.Seconds())
}

// SetSchedulerLastRun updates the last pipeline run timestamp.
func SetSchedulerLastRun() {
	SchedulerLastRunTimestamp.SetToCurrentTime()
}
