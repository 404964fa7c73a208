package membership

import (
	"time"

	"fitclass/internal/scoped"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Membership pays for class bookings. It is organisation-scoped; an empty
// GymID means it is valid at every gym of the organisation.
type Membership struct {
	scoped.Record
	MemberID string `db:"member_id" json:"member_id"`
	Status   Status `db:"status" json:"status"`
	// CreditsRemaining is nil for unlimited memberships.
	CreditsRemaining *int      `db:"credits_remaining" json:"credits_remaining,omitempty"`
	CreditsUsed      int       `db:"credits_used" json:"credits_used"`
	ValidFrom        time.Time `db:"valid_from" json:"valid_from"`
	ValidUntil       time.Time `db:"valid_until" json:"valid_until"`
}

func (m *Membership) Unlimited() bool {
	return m.CreditsRemaining == nil
}

// Covers reports whether the membership can pay credits at t.
func (m *Membership) Covers(credits int, t time.Time) bool {
	if m.Status != StatusActive || t.Before(m.ValidFrom) || t.After(m.ValidUntil) {
		return false
	}
	return m.Unlimited() || *m.CreditsRemaining >= credits
}

type GrantMembershipRequest struct {
	MemberID  string `json:"member_id" binding:"required"`
	GymID     string `json:"gym_id,omitempty"`
	Credits   *int   `json:"credits,omitempty" binding:"omitempty,min=0"`
	ValidDays int    `json:"valid_days" binding:"required,min=1,max=730"`
}
