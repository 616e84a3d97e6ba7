package gateway

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// interactionResponder answers one interaction. For command interactions the
// first Reply/ReplyPrompt creates the (ephemeral) response; for component
// interactions the click was already acknowledged with a deferred update, so
// only EditReply is meaningful.
type interactionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	acked       bool
}

var _ Responder = (*interactionResponder)(nil)

func (r *interactionResponder) Reply(ctx context.Context, content string) error {
	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to reply to interaction: %w", err)
	}
	r.acked = true
	return nil
}

func (r *interactionResponder) ReplyPrompt(ctx context.Context, embed Embed, buttons ...Button) error {
	var components []discordgo.MessageComponent
	if len(buttons) > 0 {
		row := discordgo.ActionsRow{}
		for _, b := range buttons {
			row.Components = append(row.Components, discordgo.Button{
				Label:    b.Label,
				Style:    toButtonStyle(b.Style),
				CustomID: b.Token,
			})
		}
		components = append(components, row)
	}

	err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{toMessageEmbed(embed)},
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to send prompt reply: %w", err)
	}
	r.acked = true
	return nil
}

func (r *interactionResponder) EditReply(ctx context.Context, content string) error {
	// Stripping the components disables the buttons the prompt carried.
	empty := []discordgo.MessageComponent{}
	noEmbeds := []*discordgo.MessageEmbed{}
	_, err := r.session.InteractionResponseEdit(r.interaction, &discordgo.WebhookEdit{
		Content:    &content,
		Components: &empty,
		Embeds:     &noEmbeds,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to edit interaction reply: %w", err)
	}
	return nil
}

func toButtonStyle(s ButtonStyle) discordgo.ButtonStyle {
	switch s {
	case ButtonDanger:
		return discordgo.DangerButton
	default:
		return discordgo.SecondaryButton
	}
}
