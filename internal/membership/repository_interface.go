package membership

import "context"

// CreditLedger is what the booking engine charges and refunds through. An
// implementation bound to a transaction must run its statements in it.
type CreditLedger interface {
	FindActiveMembership(ctx context.Context, memberID, gymID string, credits int) (*Membership, error)
	DeductClassCredit(ctx context.Context, membershipID string, credits int) error
	RefundClassCredit(ctx context.Context, membershipID string, credits int) error
}

type Repository interface {
	CreditLedger
	Create(ctx context.Context, m *Membership) error
	ListByMember(ctx context.Context, memberID string) ([]Membership, error)
}
