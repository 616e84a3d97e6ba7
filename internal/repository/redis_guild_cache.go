package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"sentinel-bot/internal/model"
)

// CachedGuildRepository is a read-through cache in front of a
// GuildRepository. Guild policy is read on every dispatch, so a short TTL
// saves a database round trip per command without letting policy changes
// go stale for long; every write invalidates the cached entry. Only
// existing records are cached — absence always falls through to the inner
// repository so the lazy-create path stays correct.
type CachedGuildRepository struct {
	inner  GuildRepository
	client *redis.Client
	ttl    time.Duration
}

var _ GuildRepository = (*CachedGuildRepository)(nil)

func NewCachedGuildRepository(inner GuildRepository, client *redis.Client, ttl time.Duration) *CachedGuildRepository {
	return &CachedGuildRepository{inner: inner, client: client, ttl: ttl}
}

func guildKey(guildID int64) string {
	return fmt.Sprintf("sentinel:guild:%d", guildID)
}

func (r *CachedGuildRepository) Get(ctx context.Context, guildID int64) (*model.GuildRecord, error) {
	key := guildKey(guildID)

	raw, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var rec model.GuildRecord
		if err := json.Unmarshal(raw, &rec); err == nil {
			return &rec, nil
		}
		// Unreadable entry: drop it and fall through to the source.
		r.client.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		log.Warn().Err(err).Int64("guild_id", guildID).Msg("Guild cache read failed, falling back to database")
	}

	rec, err := r.inner.Get(ctx, guildID)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(rec); err == nil {
		if err := r.client.Set(ctx, key, raw, r.ttl).Err(); err != nil {
			log.Warn().Err(err).Int64("guild_id", guildID).Msg("Failed to populate guild cache")
		}
	}
	return rec, nil
}

func (r *CachedGuildRepository) Create(ctx context.Context, guildID int64) error {
	if err := r.inner.Create(ctx, guildID); err != nil {
		return err
	}
	r.invalidate(ctx, guildID)
	return nil
}

func (r *CachedGuildRepository) UpdateModLogChannel(ctx context.Context, guildID int64, channelID *int64) error {
	if err := r.inner.UpdateModLogChannel(ctx, guildID, channelID); err != nil {
		return err
	}
	r.invalidate(ctx, guildID)
	return nil
}

func (r *CachedGuildRepository) UpdateMutedRole(ctx context.Context, guildID int64, roleID *int64) error {
	if err := r.inner.UpdateMutedRole(ctx, guildID, roleID); err != nil {
		return err
	}
	r.invalidate(ctx, guildID)
	return nil
}

func (r *CachedGuildRepository) UpdateStatus(ctx context.Context, guildID int64, status model.GuildStatus) error {
	if err := r.inner.UpdateStatus(ctx, guildID, status); err != nil {
		return err
	}
	r.invalidate(ctx, guildID)
	return nil
}

func (r *CachedGuildRepository) Delete(ctx context.Context, guildID int64) error {
	if err := r.inner.Delete(ctx, guildID); err != nil {
		return err
	}
	r.invalidate(ctx, guildID)
	return nil
}

func (r *CachedGuildRepository) invalidate(ctx context.Context, guildID int64) {
	if err := r.client.Del(ctx, guildKey(guildID)).Err(); err != nil {
		log.Warn().Err(err).Int64("guild_id", guildID).Msg("Failed to invalidate guild cache entry")
	}
}
