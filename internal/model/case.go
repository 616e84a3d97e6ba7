package model

import (
	"strings"
	"time"
)

// CaseKind is the type of moderation action a case records.
type CaseKind int16

const (
	CaseKindWarn CaseKind = iota
)

func (k CaseKind) String() string {
	switch k {
	case CaseKindWarn:
		return "WARN"
	default:
		return "UNKNOWN"
	}
}

// PastTense renders the kind the way notification text uses it ("warned").
func (k CaseKind) PastTense() string {
	return strings.ToLower(k.String()) + "ed"
}

// CaseRecord is one immutable row of the cases ledger. ID is the globally
// unique durable identifier assigned by the database; Seq is the guild-scoped
// 1-based sequence number derived from the ID's rank within the guild at
// creation time. Seq is never stored, it is recomputed from the ledger.
type CaseRecord struct {
	ID          int64      `db:"id"`
	Seq         int64      `db:"-"`
	Kind        CaseKind   `db:"kind"`
	GuildID     int64      `db:"guild_id"`
	TargetID    int64      `db:"target_id"`
	ModeratorID int64      `db:"moderator_id"`
	Reason      *string    `db:"reason"`
	CreatedAt   time.Time  `db:"created_at"`
	ExpiresAt   *time.Time `db:"expires_at"`
	Reference   *int64     `db:"reference"`
	Active      bool       `db:"active"`

	// ReferenceSeq is the referenced case's guild-scoped number, resolved
	// alongside Seq at creation time. Reference stays the durable id;
	// anything user-facing renders ReferenceSeq.
	ReferenceSeq *int64 `db:"-"`
}

// MaxReasonLength is the column limit for the free-text reason.
const MaxReasonLength = 255
