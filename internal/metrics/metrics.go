package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_http_requests_total",
			Help: "HTTP requests by route and status.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyroom_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	httpRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyroom_http_rate_limited_total",
			Help: "Requests rejected by the per-identity limiter.",
		},
	)

	grpcRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_grpc_requests_total",
			Help: "Unary gRPC calls by method and status code.",
		},
		[]string{"method", "code"},
	)

	timerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_timer_transitions_total",
			Help: "Timer start/pause/reset operations applied.",
		},
		[]string{"action"},
	)

	roomsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_rooms_created_total",
			Help: "Rooms created by mode.",
		},
		[]string{"mode"},
	)

	roomJoins = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_room_joins_total",
			Help: "Join requests, split by whether membership changed.",
		},
		[]string{"result"},
	)

	taskOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_task_operations_total",
			Help: "Task ledger operations by kind and result.",
		},
		[]string{"op", "result"},
	)

	inviteCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyroom_invite_code_collisions_total",
			Help: "Generated invite codes that were already taken.",
		},
	)

	reconcileOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyroom_client_reconcile_total",
			Help: "Client reconciliation cycles by outcome.",
		},
		[]string{"outcome"},
	)
)

func RecordHTTP(method, route string, status int, duration time.Duration) {
	s := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, s).Inc()
	httpRequestDuration.WithLabelValues(method, route, s).Observe(duration.Seconds())
}

func IncRateLimited() { httpRateLimited.Inc() }

func RecordGRPC(method, code string) {
	grpcRequestsTotal.WithLabelValues(method, code).Inc()
}

func IncTimerTransition(action string) {
	timerTransitions.WithLabelValues(action).Inc()
}

func IncRoomCreated(mode string) {
	roomsCreated.WithLabelValues(mode).Inc()
}

// IncRoomJoin records a join; added is false for repeat joins.
func IncRoomJoin(added bool) {
	if added {
		roomJoins.WithLabelValues("added").Inc()
		return
	}
	roomJoins.WithLabelValues("already_member").Inc()
}

func IncTaskOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	taskOps.WithLabelValues(op, result).Inc()
}

func IncInviteCollision() { inviteCollisions.Inc() }

func IncReconcile(outcome string) {
	reconcileOutcomes.WithLabelValues(outcome).Inc()
}
