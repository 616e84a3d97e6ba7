package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"sentinel-bot/internal/model"
)

const guildFields = `guild_id, mod_log_channel_id, muted_role_id, status`

// PgGuildRepository is the postgres-backed GuildRepository.
type PgGuildRepository struct {
	db *pgxpool.Pool
}

var _ GuildRepository = (*PgGuildRepository)(nil)

func NewPgGuildRepository(db *pgxpool.Pool) *PgGuildRepository {
	if db == nil {
		log.Fatal().Msg("Database pool is nil for PgGuildRepository")
	}
	return &PgGuildRepository{db: db}
}

func (r *PgGuildRepository) Create(ctx context.Context, guildID int64) error {
	// ON CONFLICT keeps the lazy creation race between two concurrent
	// dispatches harmless.
	query := `INSERT INTO guilds (guild_id) VALUES ($1) ON CONFLICT (guild_id) DO NOTHING`
	if _, err := r.db.Exec(ctx, query, guildID); err != nil {
		log.Error().Err(err).Int64("guild_id", guildID).Msg("Failed to create guild")
		return fmt.Errorf("failed to create guild: %w", err)
	}
	log.Info().Int64("guild_id", guildID).Msg("Guild created")
	return nil
}

func (r *PgGuildRepository) Get(ctx context.Context, guildID int64) (*model.GuildRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM guilds WHERE guild_id = $1`, guildFields)
	var rec model.GuildRecord
	err := r.db.QueryRow(ctx, query, guildID).Scan(
		&rec.GuildID, &rec.ModLogChannelID, &rec.MutedRoleID, &rec.Status,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGuildNotFound
		}
		log.Error().Err(err).Int64("guild_id", guildID).Msg("Failed to get guild")
		return nil, fmt.Errorf("failed to get guild: %w", err)
	}
	return &rec, nil
}

func (r *PgGuildRepository) UpdateModLogChannel(ctx context.Context, guildID int64, channelID *int64) error {
	query := `UPDATE guilds SET mod_log_channel_id = $1 WHERE guild_id = $2`
	tag, err := r.db.Exec(ctx, query, channelID, guildID)
	if err != nil {
		log.Error().Err(err).Int64("guild_id", guildID).Msg("Failed to update guild mod log channel")
		return fmt.Errorf("failed to update guild mod log channel: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGuildNotFound
	}
	return nil
}

func (r *PgGuildRepository) UpdateMutedRole(ctx context.Context, guildID int64, roleID *int64) error {
	query := `UPDATE guilds SET muted_role_id = $1 WHERE guild_id = $2`
	tag, err := r.db.Exec(ctx, query, roleID, guildID)
	if err != nil {
		log.Error().Err(err).Int64("guild_id", guildID).Msg("Failed to update guild muted role")
		return fmt.Errorf("failed to update guild muted role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGuildNotFound
	}
	return nil
}

func (r *PgGuildRepository) UpdateStatus(ctx context.Context, guildID int64, status model.GuildStatus) error {
	query := `UPDATE guilds SET status = $1 WHERE guild_id = $2`
	tag, err := r.db.Exec(ctx, query, status, guildID)
	if err != nil {
		log.Error().Err(err).Int64("guild_id", guildID).Msg("Failed to update guild status")
		return fmt.Errorf("failed to update guild status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGuildNotFound
	}
	return nil
}

func (r *PgGuildRepository) Delete(ctx context.Context, guildID int64) error {
	query := `DELETE FROM guilds WHERE guild_id = $1`
	if _, err := r.db.Exec(ctx, query, guildID); err != nil {
		log.Error().Err(err).Int64("guild_id", guildID).Msg("Failed to delete guild")
		return fmt.Errorf("failed to delete guild: %w", err)
	}
	return nil
}
