// Package events publishes booking lifecycle events after the change that
// caused them has committed. Delivery to members happens downstream.
package events

import (
	"context"
	"time"
)

type Type string

const (
	BookingConfirmed  Type = "booking.confirmed"
	BookingWaitlisted Type = "booking.waitlisted"
	BookingCancelled  Type = "booking.cancelled"
	BookingPromoted   Type = "booking.promoted"
	BookingCheckedIn  Type = "booking.checked_in"
	BookingCompleted  Type = "booking.completed"
	BookingNoShow     Type = "booking.no_show"
)

type Event struct {
	Type           Type      `json:"type"`
	BookingID      string    `json:"booking_id"`
	OrganisationID string    `json:"organisation_id"`
	GymID          string    `json:"gym_id"`
	MemberID       string    `json:"member_id"`
	ScheduleID     string    `json:"schedule_id"`
	Status         string    `json:"status"`
	OccurredAt     time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
