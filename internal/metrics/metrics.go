package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclass_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fitclass_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	BookingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclass_bookings_total",
			Help: "Bookings created, by initial status",
		},
		[]string{"status"},
	)

	BookingCancellationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclass_booking_cancellations_total",
			Help: "Booking cancellations, by status before cancelling",
		},
		[]string{"from_status"},
	)

	WaitlistPromotionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclass_waitlist_promotions_total",
			Help: "Waitlist promotion attempts after a freed seat",
		},
		[]string{"result"},
	)

	AttendanceTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclass_attendance_total",
			Help: "Attendance transitions (check_in, check_out, no_show)",
		},
		[]string{"event"},
	)

	ScheduleConflictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclass_schedule_conflicts_total",
			Help: "Schedule creations refused because a trainer or area was taken",
		},
		[]string{"resource"},
	)

	CrossTenantDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclass_cross_tenant_denials_total",
			Help: "Accesses refused because the record belongs to another tenant",
		},
		[]string{"kind"},
	)

	StorageRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclass_storage_retries_total",
			Help: "Transactions retried after a serialization failure",
		},
		[]string{"operation"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fitclass_events_published_total",
			Help: "Booking events handed to the event backend",
		},
		[]string{"backend", "status"},
	)

	EventQueueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fitclass_event_queue_length",
			Help: "Booking events waiting in the Redis queue",
		},
		[]string{"queue"},
	)
)

func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(duration)
}

func RecordBooking(status string) {
	BookingsTotal.WithLabelValues(status).Inc()
}

func RecordBookingCancellation(fromStatus string) {
	BookingCancellationsTotal.WithLabelValues(fromStatus).Inc()
}

func RecordPromotion(result string) {
	WaitlistPromotionsTotal.WithLabelValues(result).Inc()
}

func RecordAttendance(event string) {
	AttendanceTotal.WithLabelValues(event).Inc()
}

func RecordScheduleConflict(resource string) {
	ScheduleConflictsTotal.WithLabelValues(resource).Inc()
}

func RecordCrossTenantDenial(kind string) {
	CrossTenantDenialsTotal.WithLabelValues(kind).Inc()
}

func RecordStorageRetry(operation string) {
	StorageRetriesTotal.WithLabelValues(operation).Inc()
}

func RecordEventPublished(backend, status string) {
	EventsPublishedTotal.WithLabelValues(backend, status).Inc()
}

func RecordEventQueueLength(queue string, length int64) {
	EventQueueLength.WithLabelValues(queue).Set(float64(length))
}
