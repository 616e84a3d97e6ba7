package gateway

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func warnInteraction(options []*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   "100",
			ChannelID: "2001",
			Member: &discordgo.Member{
				User: &discordgo.User{ID: "3001"},
			},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    "warn",
				Options: options,
			},
		},
	}
}

func TestCommandEventParsesOptions(t *testing.T) {
	d := &Discord{}

	ev := d.commandEvent(warnInteraction([]*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "target", Type: discordgo.ApplicationCommandOptionUser, Value: "42"},
		{Name: "reason", Type: discordgo.ApplicationCommandOptionString, Value: "spamming"},
		{Name: "reference", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(7)},
		{Name: "silent", Type: discordgo.ApplicationCommandOptionBoolean, Value: true},
	}))

	assert.Equal(t, "warn", ev.Command)
	assert.Equal(t, int64(100), ev.GuildID)
	assert.Equal(t, int64(2001), ev.ChannelID)
	assert.Equal(t, int64(3001), ev.SenderID)
	assert.Equal(t, int64(42), ev.Options.TargetID)
	require.NotNil(t, ev.Options.Reason)
	assert.Equal(t, "spamming", *ev.Options.Reason)
	require.NotNil(t, ev.Options.Reference)
	assert.Equal(t, int64(7), *ev.Options.Reference)
	assert.True(t, ev.Options.Silent)
}

func TestCommandEventWithoutOptionalOptions(t *testing.T) {
	d := &Discord{}

	ev := d.commandEvent(warnInteraction([]*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "target", Type: discordgo.ApplicationCommandOptionUser, Value: "42"},
	}))

	assert.Equal(t, int64(42), ev.Options.TargetID)
	assert.Nil(t, ev.Options.Reason)
	assert.Nil(t, ev.Options.Reference)
	assert.False(t, ev.Options.Silent)
}

func TestCommandEventToleratesMalformedOptionValues(t *testing.T) {
	d := &Discord{}

	// Values with the wrong dynamic type come straight off the wire; they
	// must degrade to absent options, never panic the handler.
	ev := d.commandEvent(warnInteraction([]*discordgo.ApplicationCommandInteractionDataOption{
		{Name: "target", Type: discordgo.ApplicationCommandOptionUser, Value: float64(42)},
		{Name: "reason", Type: discordgo.ApplicationCommandOptionString, Value: float64(1)},
		{Name: "reference", Type: discordgo.ApplicationCommandOptionInteger, Value: "7"},
		{Name: "silent", Type: discordgo.ApplicationCommandOptionBoolean, Value: "yes"},
	}))

	assert.Equal(t, int64(0), ev.Options.TargetID)
	assert.Nil(t, ev.Options.Reason)
	assert.Nil(t, ev.Options.Reference)
	assert.False(t, ev.Options.Silent)
}

func TestCommandEventOutsideGuild(t *testing.T) {
	d := &Discord{}

	// A DM interaction carries no guild or member, only a bare user.
	i := &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			ChannelID: "2001",
			User:      &discordgo.User{ID: "3001"},
			Data:      discordgo.ApplicationCommandInteractionData{Name: "warn"},
		},
	}

	ev := d.commandEvent(i)
	assert.Equal(t, int64(0), ev.GuildID)
	assert.Equal(t, int64(3001), ev.SenderID)
}

func TestSnowflakeRoundTrip(t *testing.T) {
	assert.Equal(t, int64(123456789012345678), parseSnowflake("123456789012345678"))
	assert.Equal(t, "123456789012345678", formatSnowflake(123456789012345678))

	// Anything that is not a snowflake degrades to zero, which downstream
	// code treats as "absent".
	assert.Equal(t, int64(0), parseSnowflake(""))
	assert.Equal(t, int64(0), parseSnowflake("not-a-number"))
}

func TestHighestRolePosition(t *testing.T) {
	guild := &discordgo.Guild{
		Roles: []*discordgo.Role{
			{ID: "r1", Position: 1},
			{ID: "r2", Position: 5},
			{ID: "r3", Position: 3},
		},
	}

	member := &discordgo.Member{Roles: []string{"r1", "r3"}}
	assert.Equal(t, 3, highestRolePosition(guild, member))

	everyone := &discordgo.Member{}
	assert.Equal(t, 0, highestRolePosition(guild, everyone))
}

func TestToMessageEmbed(t *testing.T) {
	embed := toMessageEmbed(Embed{
		Author:      "Test Guild",
		AuthorIcon:  "https://cdn.example/icon.png",
		Description: "description",
		Color:       0x5a0404,
		Footer:      "Case #3",
		Fields: []EmbedField{
			{Name: "Reason", Value: "spamming"},
		},
	})

	require.NotNil(t, embed.Author)
	assert.Equal(t, "Test Guild", embed.Author.Name)
	assert.Equal(t, "https://cdn.example/icon.png", embed.Author.IconURL)
	assert.Equal(t, "description", embed.Description)
	assert.Equal(t, 0x5a0404, embed.Color)
	require.NotNil(t, embed.Footer)
	assert.Equal(t, "Case #3", embed.Footer.Text)
	require.Len(t, embed.Fields, 1)
	assert.Equal(t, "Reason", embed.Fields[0].Name)

	bare := toMessageEmbed(Embed{Description: "only text"})
	assert.Nil(t, bare.Author)
	assert.Nil(t, bare.Footer)
}
