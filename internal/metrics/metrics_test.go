package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordHTTPRequest(t *testing.T) {
	HTTPRequestsTotal.Reset()
	HTTPRequestDuration.Reset()

	RecordHTTPRequest("POST", "/schedules/:scheduleID/book", "201", 0.25)
	RecordHTTPRequest("POST", "/schedules/:scheduleID/book", "201", 0.1)
	RecordHTTPRequest("POST", "/schedules/:scheduleID/book", "409", 0.05)

	assert.Equal(t, float64(2), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/schedules/:scheduleID/book", "201")))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("POST", "/schedules/:scheduleID/book", "409")))
	assert.Equal(t, 1, testutil.CollectAndCount(HTTPRequestDuration))
}

func TestRecordBooking(t *testing.T) {
	BookingsTotal.Reset()

	RecordBooking("CONFIRMED")
	RecordBooking("CONFIRMED")
	RecordBooking("WAITLISTED")

	assert.Equal(t, float64(2), testutil.ToFloat64(BookingsTotal.WithLabelValues("CONFIRMED")))
	assert.Equal(t, float64(1), testutil.ToFloat64(BookingsTotal.WithLabelValues("WAITLISTED")))
}

func TestRecordCancellationAndPromotion(t *testing.T) {
	BookingCancellationsTotal.Reset()
	WaitlistPromotionsTotal.Reset()

	RecordBookingCancellation("CONFIRMED")
	RecordPromotion("promoted")
	RecordPromotion("skipped")
	RecordPromotion("skipped")

	assert.Equal(t, float64(1), testutil.ToFloat64(BookingCancellationsTotal.WithLabelValues("CONFIRMED")))
	assert.Equal(t, float64(1), testutil.ToFloat64(WaitlistPromotionsTotal.WithLabelValues("promoted")))
	assert.Equal(t, float64(2), testutil.ToFloat64(WaitlistPromotionsTotal.WithLabelValues("skipped")))
}

func TestRecordTenantAndScheduleCounters(t *testing.T) {
	CrossTenantDenialsTotal.Reset()
	ScheduleConflictsTotal.Reset()
	StorageRetriesTotal.Reset()

	RecordCrossTenantDenial("booking")
	RecordScheduleConflict("trainer")
	RecordScheduleConflict("area")
	RecordStorageRetry("create_booking")

	assert.Equal(t, float64(1), testutil.ToFloat64(CrossTenantDenialsTotal.WithLabelValues("booking")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ScheduleConflictsTotal.WithLabelValues("trainer")))
	assert.Equal(t, float64(1), testutil.ToFloat64(ScheduleConflictsTotal.WithLabelValues("area")))
	assert.Equal(t, float64(1), testutil.ToFloat64(StorageRetriesTotal.WithLabelValues("create_booking")))
}

func TestRecordAttendanceAndEvents(t *testing.T) {
	AttendanceTotal.Reset()
	EventsPublishedTotal.Reset()

	RecordAttendance("check_in")
	RecordAttendance("no_show")
	RecordEventPublished("redis", "success")
	RecordEventPublished("redis", "failed")

	assert.Equal(t, float64(1), testutil.ToFloat64(AttendanceTotal.WithLabelValues("check_in")))
	assert.Equal(t, float64(1), testutil.ToFloat64(AttendanceTotal.WithLabelValues("no_show")))
	assert.Equal(t, float64(1), testutil.ToFloat64(EventsPublishedTotal.WithLabelValues("redis", "failed")))
}

func TestRecordEventQueueLength(t *testing.T) {
	EventQueueLength.Reset()

	RecordEventQueueLength("booking_events", 7)
	RecordEventQueueLength("booking_events", 2)

	assert.Equal(t, float64(2), testutil.ToFloat64(EventQueueLength.WithLabelValues("booking_events")))
}
