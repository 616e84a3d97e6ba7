// Package repository contains the durable state of the bot: the guild
// policy table and the append-only case ledger. "Not found" is reported
// through the sentinel errors below and is a normal outcome for callers,
// never an internal fault.
package repository

import (
	"context"
	"errors"
	"time"

	"sentinel-bot/internal/model"
)

var (
	ErrGuildNotFound = errors.New("guild not found")
	ErrCaseNotFound  = errors.New("case not found")
)

// GuildRepository is the CRUD surface over the guilds table.
type GuildRepository interface {
	// Create inserts a fresh row with default ACTIVE status.
	Create(ctx context.Context, guildID int64) error

	// Get returns the record or ErrGuildNotFound.
	Get(ctx context.Context, guildID int64) (*model.GuildRecord, error)

	UpdateModLogChannel(ctx context.Context, guildID int64, channelID *int64) error
	UpdateMutedRole(ctx context.Context, guildID int64, roleID *int64) error
	UpdateStatus(ctx context.Context, guildID int64, status model.GuildStatus) error
	Delete(ctx context.Context, guildID int64) error
}

// CaseDraft is the input to case creation. The durable id, the guild-scoped
// sequence number and the active flag are assigned by the ledger.
type CaseDraft struct {
	Kind        model.CaseKind
	GuildID     int64
	TargetID    int64
	ModeratorID int64
	Reason      *string
	CreatedAt   time.Time
	ExpiresAt   *time.Time

	// ReferenceID is the durable id of an already-validated case in the
	// same guild, or nil.
	ReferenceID *int64
}

// CaseRepository is the append-only case ledger together with the
// guild-scoped sequencing scheme. Sequence numbers are always derived from
// the ledger, never cached across calls.
type CaseRepository interface {
	// Create appends a case and returns it with both the durable id and
	// the guild-scoped sequence number filled in. Insert-then-rank is
	// serialized per guild, so two concurrent creations in the same guild
	// can never observe the same rank.
	Create(ctx context.Context, draft CaseDraft) (*model.CaseRecord, error)

	// GetBySeq locates the case at the given 1-based rank within the
	// guild's partition. Out-of-range ranks yield ErrCaseNotFound.
	GetBySeq(ctx context.Context, guildID, seq int64) (*model.CaseRecord, error)

	// ListByTarget returns every case recorded against the target in the
	// guild, oldest first. Used for non-authoritative advisory reads.
	ListByTarget(ctx context.Context, guildID, targetID int64) ([]*model.CaseRecord, error)

	// SeqByID returns the guild-scoped sequence number of the case with
	// the given durable id, or ErrCaseNotFound.
	SeqByID(ctx context.Context, guildID, id int64) (int64, error)
}
