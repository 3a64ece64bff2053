package store

import "context"

// Driver is the interface a database dialect must implement.
type Driver interface {
	Migrate(ctx context.Context) error
	Close() error

	// User
	CreateUser(ctx context.Context, create *User) (*User, error)
	ListUsers(ctx context.Context, find *FindUser) ([]*User, error)
	UpdateUser(ctx context.Context, update *UpdateUser) (*User, error)

	// Turn
	CreateTurn(ctx context.Context, create *Turn) (*Turn, error)
	ListTurns(ctx context.Context, find *FindTurn) ([]*Turn, error)

	// Pattern
	CreatePattern(ctx context.Context, create *Pattern) (*Pattern, error)
	ListPatterns(ctx context.Context, find *FindPattern) ([]*Pattern, error)
	UpdatePatternEffectiveness(ctx context.Context, update *UpdatePatternEffectiveness) (int64, error)

	// Long-term memory namespace
	AddMemoryRecord(ctx context.Context, add *MemoryRecord) (*MemoryRecord, error)
	SearchMemoryRecords(ctx context.Context, search *SearchMemoryRecords) ([]*MemoryRecordWithScore, error)
}
