// Package notify delivers the outcome of a recorded moderation case to its
// sinks: the target's inbox, the guild's mod log channel and the channel
// the command was invoked in. The case is already durable before any sink
// runs, so every sink is independently gated and independently allowed to
// fail — nothing here blocks or rolls back anything else.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"sentinel-bot/internal/gateway"
	"sentinel-bot/internal/metrics"
	"sentinel-bot/internal/model"
)

const (
	colorCase      = 0x5a0404
	colorBroadcast = 0x2f3136
)

// Request carries one recorded case plus the invocation context the sinks
// need for gating.
type Request struct {
	Case            *model.CaseRecord
	Guild           *model.GuildRecord
	OriginChannelID int64

	// Silent suppresses the origin-channel broadcast; the command's
	// invoker asked for it explicitly.
	Silent bool
}

// Result reports per-sink outcomes so the caller can word its confirmation
// reply. Only BroadcastDenied is surfaced to the moderator: a blocked DM or
// a skipped mod log is not the invoker's problem.
type Result struct {
	DMDelivered        bool
	ModLogDelivered    bool
	BroadcastDelivered bool

	// BroadcastDenied is true when the broadcast was wanted but the bot
	// lacks send or embed permission in the origin channel.
	BroadcastDenied bool
}

type Notifier struct {
	client gateway.Client
	logger zerolog.Logger
}

func NewNotifier(client gateway.Client, logger zerolog.Logger) *Notifier {
	return &Notifier{
		client: client,
		logger: logger.With().Str("component", "notifier").Logger(),
	}
}

// Publish fans the case out to all three sinks. Always returns a Result;
// never returns an error, because no sink failure invalidates the case.
func (n *Notifier) Publish(ctx context.Context, req Request) Result {
	var res Result
	res.DMDelivered = n.publishInbox(ctx, req)
	res.ModLogDelivered = n.publishModLog(ctx, req)
	res.BroadcastDelivered, res.BroadcastDenied = n.publishBroadcast(ctx, req)
	return res
}

// publishInbox DMs the target. Attempted unconditionally; a closed inbox is
// swallowed and never retried.
func (n *Notifier) publishInbox(ctx context.Context, req Request) bool {
	if err := n.client.SendDirectEmbed(ctx, req.Case.TargetID, n.inboxEmbed(req.Case)); err != nil {
		metrics.NotificationsFailed.WithLabelValues("inbox").Inc()
		n.logger.Info().Err(err).
			Int64("target_id", req.Case.TargetID).
			Int64("case_id", req.Case.ID).
			Msg("target inbox unavailable, notice dropped")
		return false
	}
	return true
}

// publishModLog posts to the guild's designated mod log channel, if the
// guild has one, the channel still exists and the bot may embed there.
// A missing gate is a silent skip, not an error.
func (n *Notifier) publishModLog(ctx context.Context, req Request) bool {
	if req.Guild == nil || req.Guild.ModLogChannelID == nil {
		return false
	}
	channelID := *req.Guild.ModLogChannelID
	if !n.client.HasChannel(channelID) || !n.client.CanSendEmbeds(channelID) {
		metrics.NotificationsFailed.WithLabelValues("mod_log").Inc()
		n.logger.Debug().
			Int64("guild_id", req.Case.GuildID).
			Int64("channel_id", channelID).
			Msg("mod log sink skipped")
		return false
	}
	if err := n.client.SendChannelEmbed(ctx, channelID, n.modLogEmbed(req.Case)); err != nil {
		metrics.NotificationsFailed.WithLabelValues("mod_log").Inc()
		n.logger.Warn().Err(err).Int64("channel_id", channelID).Msg("failed to post mod log notice")
		return false
	}
	return true
}

// publishBroadcast posts to the invoking channel unless the command asked
// for silence. A permission gap here is the one sink outcome the moderator
// is told about, via Result.BroadcastDenied.
func (n *Notifier) publishBroadcast(ctx context.Context, req Request) (delivered, denied bool) {
	if req.Silent {
		return false, false
	}
	if !n.client.CanSendEmbeds(req.OriginChannelID) {
		metrics.NotificationsFailed.WithLabelValues("broadcast").Inc()
		return false, true
	}
	if err := n.client.SendChannelEmbed(ctx, req.OriginChannelID, n.broadcastEmbed(req.Case)); err != nil {
		metrics.NotificationsFailed.WithLabelValues("broadcast").Inc()
		n.logger.Warn().Err(err).Int64("channel_id", req.OriginChannelID).Msg("failed to post channel broadcast")
		return false, false
	}
	return true, false
}

func (n *Notifier) inboxEmbed(rec *model.CaseRecord) gateway.Embed {
	info, err := n.client.GuildInfo(rec.GuildID)
	if err != nil {
		info = gateway.GuildInfo{Name: fmt.Sprintf("guild %d", rec.GuildID)}
	}

	desc := fmt.Sprintf("You have been %s by **%s** `%d` in guild **%s** `%d` on %s.",
		rec.Kind.PastTense(),
		n.client.UserTag(rec.ModeratorID),
		rec.ModeratorID,
		info.Name,
		rec.GuildID,
		discordTimestamp(rec),
	)

	embed := gateway.Embed{
		Author:      info.Name,
		AuthorIcon:  info.IconURL,
		Description: desc,
		Color:       colorCase,
		Footer:      caseFooter(rec),
	}
	if rec.Reason != nil {
		embed.Fields = append(embed.Fields, gateway.EmbedField{Name: "Reason", Value: *rec.Reason})
	}
	if rec.ExpiresAt != nil {
		embed.Fields = append(embed.Fields, gateway.EmbedField{
			Name:  "Expiration",
			Value: fmt.Sprintf("<t:%d:F>", rec.ExpiresAt.Unix()),
		})
	}
	return embed
}

func (n *Notifier) modLogEmbed(rec *model.CaseRecord) gateway.Embed {
	embed := gateway.Embed{
		Author: fmt.Sprintf("%s Member",
			// "Warned", capitalized past tense of the kind.
			capitalize(rec.Kind.PastTense())),
		Color:  colorCase,
		Footer: caseFooter(rec),
		Fields: []gateway.EmbedField{
			{Name: "Member", Value: fmt.Sprintf("%s `%d`", n.client.UserTag(rec.TargetID), rec.TargetID)},
			{Name: "Moderator", Value: fmt.Sprintf("%s `%d`", n.client.UserTag(rec.ModeratorID), rec.ModeratorID)},
			{Name: "Creation", Value: discordTimestamp(rec)},
		},
	}
	if rec.ExpiresAt != nil {
		embed.Fields = append(embed.Fields, gateway.EmbedField{
			Name:  "Expiration",
			Value: fmt.Sprintf("<t:%d:F>", rec.ExpiresAt.Unix()),
		})
	}
	if rec.ReferenceSeq != nil {
		embed.Fields = append(embed.Fields, gateway.EmbedField{
			Name:  "Reference",
			Value: fmt.Sprintf("Case #%d", *rec.ReferenceSeq),
		})
	}
	if rec.Reason != nil {
		embed.Fields = append(embed.Fields, gateway.EmbedField{Name: "Reason", Value: *rec.Reason})
	}
	return embed
}

func (n *Notifier) broadcastEmbed(rec *model.CaseRecord) gateway.Embed {
	desc := fmt.Sprintf("**%s** `%d` has been %s by **%s** `%d`",
		n.client.UserTag(rec.TargetID),
		rec.TargetID,
		rec.Kind.PastTense(),
		n.client.UserTag(rec.ModeratorID),
		rec.ModeratorID,
	)
	if rec.Reason != nil {
		desc += fmt.Sprintf(" for *%s*", *rec.Reason)
	}
	if rec.ReferenceSeq != nil {
		desc += fmt.Sprintf(" citing case #%d as a reference", *rec.ReferenceSeq)
	}
	desc += "."

	return gateway.Embed{
		Description: desc,
		Color:       colorBroadcast,
		Footer:      caseFooter(rec),
	}
}

func caseFooter(rec *model.CaseRecord) string {
	return fmt.Sprintf("Case #%d", rec.Seq)
}

func discordTimestamp(rec *model.CaseRecord) string {
	return fmt.Sprintf("<t:%d:F>", rec.CreatedAt.Unix())
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
