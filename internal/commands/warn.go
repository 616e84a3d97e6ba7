package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"sentinel-bot/internal/gateway"
	"sentinel-bot/internal/messaging"
	"sentinel-bot/internal/metrics"
	"sentinel-bot/internal/model"
	"sentinel-bot/internal/notify"
	"sentinel-bot/internal/prompt"
	"sentinel-bot/internal/repository"
)

// User-facing texts of the warn flow.
const (
	msgWarnMissingTarget = "There was an error processing this command, contact Sentinel support if this issue persists."
	msgWarnSenderRank    = "You are unable to perform moderation actions on the target user.\n" +
		"This occurs if the user is not in this guild, or if they have a higher permission hierarchy position than you."
	msgWarnBotRank = "Sentinel is unable to perform moderation actions on the target user.\n" +
		"This occurs if the user has a higher permission hierarchy position than Sentinel."
	msgWarnReasonTooLong = "Your reason must be a max of 255 characters."
	msgWarnCancelled     = "Cancelled warning action."
	msgWarnTimedOut      = "Action timed out."
	msgWarnRecordFailed  = "The warning could not be recorded. Try again later."
	msgWarnNoBroadcast   = "The notice was not broadcast in this channel because Sentinel is missing send or embed permission here."
)

// Terminal states of one warn invocation. An invocation that reached the
// offer takes exactly one of these, decided by a single select.
type warnOutcome int

const (
	warnConfirmed warnOutcome = iota
	warnCancelled
	warnTimedOut
)

// WarnCommand applies a warning to a user after an explicit confirm/cancel
// round trip.
//
// Usage: /warn <target> [reason] [reference] [silent]
type WarnCommand struct {
	cases    repository.CaseRepository
	prompts  *prompt.Registry
	notifier *notify.Notifier
	events   messaging.CaseEventPublisher
	client   gateway.Client
	window   time.Duration
	logger   zerolog.Logger
}

var _ Command = (*WarnCommand)(nil)

func NewWarnCommand(
	cases repository.CaseRepository,
	prompts *prompt.Registry,
	notifier *notify.Notifier,
	events messaging.CaseEventPublisher,
	client gateway.Client,
	window time.Duration,
	logger zerolog.Logger,
) *WarnCommand {
	return &WarnCommand{
		cases:    cases,
		prompts:  prompts,
		notifier: notifier,
		events:   events,
		client:   client,
		window:   window,
		logger:   logger.With().Str("command", "warn").Logger(),
	}
}

func (c *WarnCommand) Execute(ctx context.Context, ev *gateway.CommandEvent, guild *model.GuildRecord) error {
	opts := ev.Options

	if opts.TargetID == 0 {
		c.logger.Warn().Int64("guild_id", ev.GuildID).Msg("warn invocation missing required target option")
		return ev.Responder.Reply(ctx, msgWarnMissingTarget)
	}

	if !c.client.CanModerate(ev.GuildID, ev.SenderID, opts.TargetID) {
		return ev.Responder.Reply(ctx, msgWarnSenderRank)
	}
	if !c.client.CanModerate(ev.GuildID, c.client.SelfID(), opts.TargetID) {
		return ev.Responder.Reply(ctx, msgWarnBotRank)
	}

	if opts.Reason != nil && len(*opts.Reason) > model.MaxReasonLength {
		return ev.Responder.Reply(ctx, msgWarnReasonTooLong)
	}

	// A reference must name an existing case of this guild, by its
	// guild-scoped number. Absence is a validation outcome, not a fault.
	var referenceID *int64
	if opts.Reference != nil {
		refCase, err := c.cases.GetBySeq(ctx, ev.GuildID, *opts.Reference)
		if err != nil {
			if errors.Is(err, repository.ErrCaseNotFound) {
				return ev.Responder.Reply(ctx,
					fmt.Sprintf("The case '%d' that you tried to reference does not exist.", *opts.Reference))
			}
			return fmt.Errorf("failed to resolve reference case: %w", err)
		}
		referenceID = &refCase.ID
	}

	// Advisory context for the moderator; never blocks the offer.
	warns := c.countPriorWarns(ctx, ev.GuildID, opts.TargetID)

	cancelToken, cancelCh := c.prompts.Create()
	confirmToken, confirmCh := c.prompts.Create()

	targetTag := c.client.UserTag(opts.TargetID)
	offer := c.offerEmbed(targetTag, opts, warns)
	err := ev.Responder.ReplyPrompt(ctx, offer,
		gateway.Button{Token: cancelToken.String(), Label: "Cancel", Style: gateway.ButtonSecondary},
		gateway.Button{Token: confirmToken.String(), Label: "Warn", Style: gateway.ButtonDanger},
	)
	if err != nil {
		c.prompts.Discard(cancelToken)
		c.prompts.Discard(confirmToken)
		return fmt.Errorf("failed to send warn offer: %w", err)
	}

	inv := &warnInvocation{
		ev:           ev,
		guild:        guild,
		targetTag:    targetTag,
		reason:       opts.Reason,
		referenceID:  referenceID,
		silent:       opts.Silent,
		offeredAt:    time.Now(),
		cancelToken:  cancelToken,
		confirmToken: confirmToken,
	}
	go c.await(ctx, inv, cancelCh, confirmCh)
	return nil
}

// warnInvocation is everything one offered warn carries into its terminal
// transition.
type warnInvocation struct {
	ev           *gateway.CommandEvent
	guild        *model.GuildRecord
	targetTag    string
	reason       *string
	referenceID  *int64
	silent       bool
	offeredAt    time.Time
	cancelToken  uuid.UUID
	confirmToken uuid.UUID
}

// await decides the invocation's single terminal state: whichever of
// cancel, confirm or the timer wins the select. The losing prompt(s) are
// discarded as part of the winning transition, so late callbacks resolve
// to nothing.
func (c *WarnCommand) await(ctx context.Context, inv *warnInvocation, cancelCh, confirmCh <-chan gateway.Responder) {
	timer := time.NewTimer(c.window)
	defer timer.Stop()

	var outcome warnOutcome
	var responder gateway.Responder

	select {
	case responder = <-cancelCh:
		outcome = warnCancelled
	case responder = <-confirmCh:
		outcome = warnConfirmed
	case <-timer.C:
		// A click may have resolved just as the timer fired. Drain both
		// channels once; the click wins over the timeout.
		select {
		case responder = <-cancelCh:
			outcome = warnCancelled
		case responder = <-confirmCh:
			outcome = warnConfirmed
		default:
			outcome = warnTimedOut
		}
	}

	c.prompts.Discard(inv.cancelToken)
	c.prompts.Discard(inv.confirmToken)

	switch outcome {
	case warnCancelled:
		c.editReply(ctx, responder, msgWarnCancelled)
	case warnTimedOut:
		c.editReply(ctx, inv.ev.Responder, msgWarnTimedOut)
	case warnConfirmed:
		c.execute(ctx, inv, responder)
	}
}

// execute runs the confirmed path: record the case, then fan out. The case
// is durable before any notification is attempted.
func (c *WarnCommand) execute(ctx context.Context, inv *warnInvocation, responder gateway.Responder) {
	rec, err := c.cases.Create(ctx, repository.CaseDraft{
		Kind:        model.CaseKindWarn,
		GuildID:     inv.ev.GuildID,
		TargetID:    inv.ev.Options.TargetID,
		ModeratorID: inv.ev.SenderID,
		Reason:      inv.reason,
		CreatedAt:   inv.offeredAt,
		ReferenceID: inv.referenceID,
	})
	if err != nil {
		c.logger.Error().Err(err).
			Int64("guild_id", inv.ev.GuildID).
			Int64("target_id", inv.ev.Options.TargetID).
			Msg("failed to record warn case")
		c.editReply(ctx, responder, msgWarnRecordFailed)
		return
	}
	metrics.CasesCreated.Inc()

	result := c.notifier.Publish(ctx, notify.Request{
		Case:            rec,
		Guild:           inv.guild,
		OriginChannelID: inv.ev.ChannelID,
		Silent:          inv.silent,
	})

	confirmation := fmt.Sprintf("Successfully warned %s.\nCase #%d", inv.targetTag, rec.Seq)
	if result.BroadcastDenied {
		confirmation += "\n" + msgWarnNoBroadcast
	}
	c.editReply(ctx, responder, confirmation)

	if err := c.events.PublishCaseCreated(ctx, rec); err != nil {
		c.logger.Warn().Err(err).Int64("case_id", rec.ID).Msg("case event publish failed")
	}
}

// countPriorWarns is the advisory read shown in the offer footer. Failures
// degrade to zero rather than blocking the offer.
func (c *WarnCommand) countPriorWarns(ctx context.Context, guildID, targetID int64) int {
	prior, err := c.cases.ListByTarget(ctx, guildID, targetID)
	if err != nil {
		c.logger.Warn().Err(err).Int64("guild_id", guildID).Int64("target_id", targetID).Msg("advisory case read failed")
		return 0
	}
	warns := 0
	for _, rec := range prior {
		if rec.Kind == model.CaseKindWarn {
			warns++
		}
	}
	return warns
}

func (c *WarnCommand) offerEmbed(targetTag string, opts gateway.CommandOptions, warns int) gateway.Embed {
	desc := fmt.Sprintf("This action will warn **%s**", targetTag)
	if opts.Reason != nil {
		desc += fmt.Sprintf(" for **%s**", *opts.Reason)
	}
	if opts.Reference != nil {
		desc += fmt.Sprintf(" referencing case #**%d**.", *opts.Reference)
	} else {
		desc += "."
	}

	return gateway.Embed{
		Author:      fmt.Sprintf("Are you sure you want to warn %s (%d)?", targetTag, opts.TargetID),
		Description: desc,
		Color:       0xc7bd2c,
		Footer:      fmt.Sprintf("%d warns.", warns),
	}
}

func (c *WarnCommand) editReply(ctx context.Context, responder gateway.Responder, content string) {
	if err := responder.EditReply(ctx, content); err != nil {
		c.logger.Warn().Err(err).Msg("failed to edit warn reply")
	}
}
