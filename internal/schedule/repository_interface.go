package schedule

import (
	"context"
	"time"
)

type Repository interface {
	ConflictFinder
	CreateClass(ctx context.Context, class *ClassDefinition) error
	GetClass(ctx context.Context, id string) (*ClassDefinition, error)
	GetInstance(ctx context.Context, id string) (*Instance, error)
	ListInstances(ctx context.Context, from, to time.Time) ([]Instance, error)
	// InTx runs fn in one storage transaction; fn's error rolls it back.
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the view of the repository inside a transaction.
type Tx interface {
	ConflictFinder
	// LockResources serializes writers of the same trainer and area until
	// the transaction ends. Locks are taken trainer first, then area.
	LockResources(ctx context.Context, trainerID, areaID *string) error
	GetClass(ctx context.Context, id string) (*ClassDefinition, error)
	GetInstanceForUpdate(ctx context.Context, id string) (*Instance, error)
	InsertInstance(ctx context.Context, inst *Instance) error
	UpdateInstance(ctx context.Context, inst *Instance) error
}
