package gateway

import "context"

// CommandEvent is one inbound application-command interaction, already
// flattened into the fields the commands care about. GuildID is zero when
// the command was invoked from a direct-message context.
type CommandEvent struct {
	Command   string
	GuildID   int64
	ChannelID int64
	SenderID  int64
	Options   CommandOptions

	// Responder answers this specific interaction. The first Reply/ReplyPrompt
	// consumes the interaction; later output goes through EditReply.
	Responder Responder
}

// CommandOptions carries the structured option values of a command
// invocation: a user reference, an optional string, an optional integer
// and an optional boolean.
type CommandOptions struct {
	TargetID  int64
	Reason    *string
	Reference *int64
	Silent    bool
}

// Responder is the handle used to answer an interaction. For a command
// event it edits the initial ephemeral reply; for a resolved button prompt
// it edits the message that carried the buttons. All replies are ephemeral.
type Responder interface {
	// Reply sends the initial plain-text reply.
	Reply(ctx context.Context, content string) error

	// ReplyPrompt sends the initial reply as an embed with one row of
	// buttons. Button custom IDs are the prompt tokens.
	ReplyPrompt(ctx context.Context, embed Embed, buttons ...Button) error

	// EditReply replaces the reply content and strips any buttons.
	EditReply(ctx context.Context, content string) error
}

// GuildInfo is the little the notification embeds need to know about a guild.
type GuildInfo struct {
	Name    string
	IconURL string
}

// Client is the outbound surface of the chat transport. Every send is
// fire-and-forget from the caller's point of view: an error means the
// delivery failed, never that prior state has to be rolled back.
type Client interface {
	// SelfID is the bot's own user id.
	SelfID() int64

	GuildInfo(guildID int64) (GuildInfo, error)

	// UserTag returns a best-effort human-readable tag for a user.
	UserTag(userID int64) string

	SendDirectEmbed(ctx context.Context, userID int64, embed Embed) error
	SendChannelEmbed(ctx context.Context, channelID int64, embed Embed) error

	// HasChannel reports whether the channel still exists and is visible
	// to the bot.
	HasChannel(channelID int64) bool

	// CanSendEmbeds reports whether the bot holds both send-message and
	// embed-links permission in the channel.
	CanSendEmbeds(channelID int64) bool

	// CanModerate reports whether actor outranks target in the guild's
	// role hierarchy and target is present in the guild.
	CanModerate(guildID, actorID, targetID int64) bool
}

// Embed is a transport-agnostic rich message.
type Embed struct {
	Author      string
	AuthorIcon  string
	Description string
	Color       int
	Footer      string
	Fields      []EmbedField
}

type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// ButtonStyle selects the visual weight of a prompt button.
type ButtonStyle int

const (
	ButtonSecondary ButtonStyle = iota
	ButtonDanger
)

// Button is one interactive control attached to a prompt reply. Token is
// the opaque correlation token delivered back when the button is clicked.
type Button struct {
	Token string
	Label string
	Style ButtonStyle
}
