package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"sentinel-bot/internal/model"
)

const caseFields = `id, kind, guild_id, target_id, moderator_id, reason, created_at, expires_at, reference, active`

// PgCaseRepository is the postgres-backed case ledger. Durable ids come
// from the BIGSERIAL column and are monotone in creation order, which is
// what makes id-rank equivalent to the guild-scoped sequence number.
type PgCaseRepository struct {
	db *pgxpool.Pool
}

var _ CaseRepository = (*PgCaseRepository)(nil)

func NewPgCaseRepository(db *pgxpool.Pool) *PgCaseRepository {
	if db == nil {
		log.Fatal().Msg("Database pool is nil for PgCaseRepository")
	}
	return &PgCaseRepository{db: db}
}

func (r *PgCaseRepository) Create(ctx context.Context, draft CaseDraft) (*model.CaseRecord, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin case transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			log.Error().Err(err).Msg("Failed to rollback case transaction")
		}
	}()

	// The advisory lock serializes insert-then-rank per guild. Without it
	// two concurrent inserts could each miss the other's uncommitted row
	// and compute the same rank.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, draft.GuildID); err != nil {
		return nil, fmt.Errorf("failed to acquire guild case lock: %w", err)
	}

	rec := &model.CaseRecord{
		Kind:        draft.Kind,
		GuildID:     draft.GuildID,
		TargetID:    draft.TargetID,
		ModeratorID: draft.ModeratorID,
		Reason:      draft.Reason,
		CreatedAt:   draft.CreatedAt,
		ExpiresAt:   draft.ExpiresAt,
		Reference:   draft.ReferenceID,
		Active:      true,
	}

	insert := `INSERT INTO cases (kind, guild_id, target_id, moderator_id, reason, created_at, expires_at, reference, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE)
		RETURNING id`
	err = tx.QueryRow(ctx, insert,
		rec.Kind, rec.GuildID, rec.TargetID, rec.ModeratorID,
		rec.Reason, rec.CreatedAt, rec.ExpiresAt, rec.Reference,
	).Scan(&rec.ID)
	if err != nil {
		log.Error().Err(err).Int64("guild_id", rec.GuildID).Msg("Failed to insert case")
		return nil, fmt.Errorf("failed to insert case: %w", err)
	}

	rank := `SELECT COUNT(*) FROM cases WHERE guild_id = $1 AND id <= $2`
	if err := tx.QueryRow(ctx, rank, rec.GuildID, rec.ID).Scan(&rec.Seq); err != nil {
		log.Error().Err(err).Int64("case_id", rec.ID).Msg("Failed to rank case")
		return nil, fmt.Errorf("failed to rank case: %w", err)
	}

	// The referenced case is cited by its guild-scoped number in every
	// notification, so rank it under the same lock.
	if rec.Reference != nil {
		var refSeq int64
		if err := tx.QueryRow(ctx, rank, rec.GuildID, *rec.Reference).Scan(&refSeq); err != nil {
			log.Error().Err(err).Int64("case_id", rec.ID).Msg("Failed to rank reference case")
			return nil, fmt.Errorf("failed to rank reference case: %w", err)
		}
		rec.ReferenceSeq = &refSeq
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit case transaction: %w", err)
	}

	log.Info().
		Int64("guild_id", rec.GuildID).
		Int64("case_id", rec.ID).
		Int64("case_seq", rec.Seq).
		Msg("Case recorded")
	return rec, nil
}

func (r *PgCaseRepository) GetBySeq(ctx context.Context, guildID, seq int64) (*model.CaseRecord, error) {
	if seq < 1 {
		return nil, ErrCaseNotFound
	}
	query := fmt.Sprintf(`SELECT %s FROM cases WHERE guild_id = $1 ORDER BY id ASC OFFSET $2 LIMIT 1`, caseFields)
	var rec model.CaseRecord
	err := pgxscan.Get(ctx, r.db, &rec, query, guildID, seq-1)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCaseNotFound
		}
		log.Error().Err(err).Int64("guild_id", guildID).Int64("case_seq", seq).Msg("Failed to get case by seq")
		return nil, fmt.Errorf("failed to get case by seq: %w", err)
	}
	rec.Seq = seq
	return &rec, nil
}

func (r *PgCaseRepository) ListByTarget(ctx context.Context, guildID, targetID int64) ([]*model.CaseRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM cases WHERE guild_id = $1 AND target_id = $2 ORDER BY id ASC`, caseFields)
	var recs []*model.CaseRecord
	if err := pgxscan.Select(ctx, r.db, &recs, query, guildID, targetID); err != nil {
		log.Error().Err(err).Int64("guild_id", guildID).Int64("target_id", targetID).Msg("Failed to list cases by target")
		return nil, fmt.Errorf("failed to list cases by target: %w", err)
	}
	return recs, nil
}

func (r *PgCaseRepository) SeqByID(ctx context.Context, guildID, id int64) (int64, error) {
	query := `SELECT COUNT(*) FROM cases WHERE guild_id = $1 AND id <= $2
		AND EXISTS (SELECT 1 FROM cases WHERE guild_id = $1 AND id = $2)`
	var seq int64
	if err := r.db.QueryRow(ctx, query, guildID, id).Scan(&seq); err != nil {
		log.Error().Err(err).Int64("guild_id", guildID).Int64("case_id", id).Msg("Failed to resolve case seq")
		return 0, fmt.Errorf("failed to resolve case seq: %w", err)
	}
	if seq == 0 {
		return 0, ErrCaseNotFound
	}
	return seq, nil
}
