package gateway

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Discord adapts a discordgo session to the Client interface and converts
// raw interaction events into CommandEvents and component callbacks. The
// rest of the codebase never touches discordgo types directly.
type Discord struct {
	session *discordgo.Session
	logger  zerolog.Logger

	onCommand   func(*CommandEvent)
	onComponent func(token string, r Responder)
}

// NewDiscord builds the session but does not open the gateway connection
// yet; wire the callbacks first, then call Open.
func NewDiscord(token string, logger zerolog.Logger) (*Discord, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	d := &Discord{
		session: session,
		logger:  logger.With().Str("component", "discord").Logger(),
	}

	session.AddHandler(d.handleReady)
	session.AddHandler(d.handleInteraction)
	return d, nil
}

// OnCommand registers the sink for inbound application commands.
func (d *Discord) OnCommand(fn func(*CommandEvent)) {
	d.onCommand = fn
}

// OnComponent registers the sink for inbound button clicks. The token is
// the raw custom ID of the clicked component.
func (d *Discord) OnComponent(fn func(token string, r Responder)) {
	d.onComponent = fn
}

func (d *Discord) Open() error {
	if err := d.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord gateway: %w", err)
	}
	return nil
}

func (d *Discord) Close() error {
	return d.session.Close()
}

// SelfID returns the bot's own user id; zero before the ready event.
func (d *Discord) SelfID() int64 {
	if d.session.State.User == nil {
		return 0
	}
	return parseSnowflake(d.session.State.User.ID)
}

func (d *Discord) handleReady(_ *discordgo.Session, _ *discordgo.Ready) {
	d.logger.Info().Msg("discord gateway ready")
}

func (d *Discord) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		if d.onCommand == nil {
			return
		}
		d.onCommand(d.commandEvent(i))

	case discordgo.InteractionMessageComponent:
		if d.onComponent == nil {
			return
		}
		// Acknowledge the click immediately; the owning prompt decides what
		// the message ends up saying.
		err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseDeferredMessageUpdate,
		})
		if err != nil {
			d.logger.Warn().Err(err).Msg("failed to acknowledge component interaction")
		}
		data := i.MessageComponentData()
		d.onComponent(data.CustomID, &interactionResponder{session: s, interaction: i.Interaction, acked: true})
	}
}

func (d *Discord) commandEvent(i *discordgo.InteractionCreate) *CommandEvent {
	data := i.ApplicationCommandData()

	ev := &CommandEvent{
		Command:   data.Name,
		GuildID:   parseSnowflake(i.GuildID),
		ChannelID: parseSnowflake(i.ChannelID),
		Responder: &interactionResponder{session: d.session, interaction: i.Interaction},
	}
	if i.Member != nil && i.Member.User != nil {
		ev.SenderID = parseSnowflake(i.Member.User.ID)
	} else if i.User != nil {
		ev.SenderID = parseSnowflake(i.User.ID)
	}

	// Option values are transport input; a malformed payload degrades to
	// the option's zero value instead of panicking the handler.
	for _, opt := range data.Options {
		switch opt.Name {
		case "target":
			if id, ok := opt.Value.(string); ok {
				ev.Options.TargetID = parseSnowflake(id)
			}
		case "reason":
			if v, ok := opt.Value.(string); ok {
				ev.Options.Reason = &v
			}
		case "reference":
			if v, ok := opt.Value.(float64); ok {
				ref := int64(v)
				ev.Options.Reference = &ref
			}
		case "silent":
			if v, ok := opt.Value.(bool); ok {
				ev.Options.Silent = v
			}
		}
	}
	return ev
}

// GuildInfo implements Client.
func (d *Discord) GuildInfo(guildID int64) (GuildInfo, error) {
	id := formatSnowflake(guildID)
	guild, err := d.session.State.Guild(id)
	if err != nil {
		guild, err = d.session.Guild(id)
		if err != nil {
			return GuildInfo{}, fmt.Errorf("failed to fetch guild %d: %w", guildID, err)
		}
	}
	return GuildInfo{Name: guild.Name, IconURL: guild.IconURL("")}, nil
}

// UserTag implements Client. Falls back to the raw id when the user cannot
// be fetched; tags are display sugar, never load-bearing.
func (d *Discord) UserTag(userID int64) string {
	id := formatSnowflake(userID)
	user, err := d.session.User(id)
	if err != nil {
		return id
	}
	return user.String()
}

// SendDirectEmbed implements Client.
func (d *Discord) SendDirectEmbed(ctx context.Context, userID int64, embed Embed) error {
	channel, err := d.session.UserChannelCreate(formatSnowflake(userID), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open dm channel for user %d: %w", userID, err)
	}
	_, err = d.session.ChannelMessageSendEmbed(channel.ID, toMessageEmbed(embed), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send dm to user %d: %w", userID, err)
	}
	return nil
}

// SendChannelEmbed implements Client.
func (d *Discord) SendChannelEmbed(ctx context.Context, channelID int64, embed Embed) error {
	_, err := d.session.ChannelMessageSendEmbed(formatSnowflake(channelID), toMessageEmbed(embed), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send embed to channel %d: %w", channelID, err)
	}
	return nil
}

// HasChannel implements Client.
func (d *Discord) HasChannel(channelID int64) bool {
	id := formatSnowflake(channelID)
	if _, err := d.session.State.Channel(id); err == nil {
		return true
	}
	_, err := d.session.Channel(id)
	return err == nil
}

// CanSendEmbeds implements Client.
func (d *Discord) CanSendEmbeds(channelID int64) bool {
	if d.session.State.User == nil {
		return false
	}
	perms, err := d.session.UserChannelPermissions(d.session.State.User.ID, formatSnowflake(channelID))
	if err != nil {
		d.logger.Warn().Err(err).Int64("channel_id", channelID).Msg("failed to resolve channel permissions")
		return false
	}
	const needed = discordgo.PermissionSendMessages | discordgo.PermissionEmbedLinks
	return perms&needed == needed
}

// CanModerate implements Client. The actor must be present in the guild and
// sit strictly above the target in the role hierarchy (or own the guild).
func (d *Discord) CanModerate(guildID, actorID, targetID int64) bool {
	gid := formatSnowflake(guildID)
	guild, err := d.session.State.Guild(gid)
	if err != nil {
		guild, err = d.session.Guild(gid)
		if err != nil {
			return false
		}
	}

	target, err := d.member(gid, formatSnowflake(targetID))
	if err != nil {
		// Target not in the guild: nothing to moderate.
		return false
	}
	actor, err := d.member(gid, formatSnowflake(actorID))
	if err != nil {
		return false
	}

	if guild.OwnerID == actor.User.ID {
		return guild.OwnerID != target.User.ID
	}
	if guild.OwnerID == target.User.ID {
		return false
	}
	return highestRolePosition(guild, actor) > highestRolePosition(guild, target)
}

func (d *Discord) member(guildID, userID string) (*discordgo.Member, error) {
	if m, err := d.session.State.Member(guildID, userID); err == nil {
		return m, nil
	}
	return d.session.GuildMember(guildID, userID)
}

func highestRolePosition(guild *discordgo.Guild, member *discordgo.Member) int {
	highest := 0
	for _, roleID := range member.Roles {
		for _, role := range guild.Roles {
			if role.ID == roleID && role.Position > highest {
				highest = role.Position
			}
		}
	}
	return highest
}

func toMessageEmbed(e Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Description: e.Description,
		Color:       e.Color,
	}
	if e.Author != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: e.Author, IconURL: e.AuthorIcon}
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return embed
}

func parseSnowflake(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func formatSnowflake(v int64) string {
	return strconv.FormatInt(v, 10)
}
