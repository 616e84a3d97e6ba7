package model

// GuildStatus is the persisted enable/disable policy of a guild.
// Stored as a small integer, so the order of the constants matters.
type GuildStatus int16

const (
	// GuildStatusActive means the bot serves commands in this guild.
	GuildStatusActive GuildStatus = iota

	// GuildStatusDisabled bars the guild from every command.
	GuildStatusDisabled
)

// GuildRecord is one row of the guilds table. A guild without a row is
// treated as an active guild with no optional fields set ("lazy default");
// the dispatcher creates the row on first command dispatch.
type GuildRecord struct {
	GuildID         int64       `db:"guild_id"`
	ModLogChannelID *int64      `db:"mod_log_channel_id"`
	MutedRoleID     *int64      `db:"muted_role_id"`
	Status          GuildStatus `db:"status"`
}

// DefaultGuildRecord returns the in-memory record used while the lazily
// created row is still being written.
func DefaultGuildRecord(guildID int64) *GuildRecord {
	return &GuildRecord{GuildID: guildID, Status: GuildStatusActive}
}
