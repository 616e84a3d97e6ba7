package commands

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	gatewaymocks "sentinel-bot/internal/gateway/mocks"
	messagingmocks "sentinel-bot/internal/messaging/mocks"
	repomocks "sentinel-bot/internal/repository/mocks"

	"sentinel-bot/internal/gateway"
	"sentinel-bot/internal/model"
	"sentinel-bot/internal/notify"
	"sentinel-bot/internal/prompt"
	"sentinel-bot/internal/repository"
)

const (
	testGuildID   = int64(100)
	testChannelID = int64(2001)
	testSenderID  = int64(3001)
	testTargetID  = int64(42)
	testBotID     = int64(999)
)

type warnFixture struct {
	cases   *repomocks.CaseRepository
	client  *gatewaymocks.Client
	events  *messagingmocks.CaseEventPublisher
	prompts *prompt.Registry
	cmd     *WarnCommand
}

func newWarnFixture(t *testing.T, window time.Duration) *warnFixture {
	t.Helper()

	f := &warnFixture{
		cases:   new(repomocks.CaseRepository),
		client:  new(gatewaymocks.Client),
		events:  new(messagingmocks.CaseEventPublisher),
		prompts: prompt.NewRegistry(time.Minute, zerolog.Nop()),
	}
	t.Cleanup(f.prompts.Close)

	notifier := notify.NewNotifier(f.client, zerolog.Nop())
	f.cmd = NewWarnCommand(f.cases, f.prompts, notifier, f.events, f.client, window, zerolog.Nop())
	return f
}

// allowModeration arms the hierarchy checks for the happy path.
func (f *warnFixture) allowModeration() {
	f.client.On("CanModerate", testGuildID, testSenderID, testTargetID).Return(true)
	f.client.On("SelfID").Return(testBotID)
	f.client.On("CanModerate", testGuildID, testBotID, testTargetID).Return(true)
}

func warnEvent(responder gateway.Responder, opts gateway.CommandOptions) *gateway.CommandEvent {
	return &gateway.CommandEvent{
		Command:   "warn",
		GuildID:   testGuildID,
		ChannelID: testChannelID,
		SenderID:  testSenderID,
		Options:   opts,
		Responder: responder,
	}
}

func activeGuild() *model.GuildRecord {
	return &model.GuildRecord{GuildID: testGuildID, Status: model.GuildStatusActive}
}

// capturePrompt arms ReplyPrompt and hands back the offered buttons.
func capturePrompt(responder *gatewaymocks.Responder) <-chan []gateway.Button {
	out := make(chan []gateway.Button, 1)
	responder.On("ReplyPrompt", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { out <- args.Get(2).([]gateway.Button) }).
		Return(nil).Once()
	return out
}

func expectEdit(responder *gatewaymocks.Responder, content string) <-chan struct{} {
	done := make(chan struct{})
	responder.On("EditReply", mock.Anything, content).
		Run(func(mock.Arguments) { close(done) }).
		Return(nil).Once()
	return done
}

// offer runs Execute and returns the parsed cancel and confirm tokens.
func (f *warnFixture) offer(t *testing.T, ev *gateway.CommandEvent, buttons <-chan []gateway.Button) (cancel, confirm uuid.UUID) {
	t.Helper()
	require.NoError(t, f.cmd.Execute(context.Background(), ev, activeGuild()))

	offered := <-buttons
	require.Len(t, offered, 2)
	assert.Equal(t, "Cancel", offered[0].Label)
	assert.Equal(t, "Warn", offered[1].Label)

	cancel, err := uuid.Parse(offered[0].Token)
	require.NoError(t, err)
	confirm, err = uuid.Parse(offered[1].Token)
	require.NoError(t, err)
	return cancel, confirm
}

func TestWarnRejectsMissingTarget(t *testing.T) {
	f := newWarnFixture(t, time.Minute)
	responder := new(gatewaymocks.Responder)
	responder.On("Reply", mock.Anything, msgWarnMissingTarget).Return(nil).Once()

	err := f.cmd.Execute(context.Background(), warnEvent(responder, gateway.CommandOptions{}), activeGuild())

	require.NoError(t, err)
	responder.AssertExpectations(t)
	assert.Equal(t, 0, f.prompts.Len())
}

func TestWarnRejectsWhenSenderOutranked(t *testing.T) {
	f := newWarnFixture(t, time.Minute)
	f.client.On("CanModerate", testGuildID, testSenderID, testTargetID).Return(false)

	responder := new(gatewaymocks.Responder)
	responder.On("Reply", mock.Anything, msgWarnSenderRank).Return(nil).Once()

	err := f.cmd.Execute(context.Background(), warnEvent(responder, gateway.CommandOptions{TargetID: testTargetID}), activeGuild())

	require.NoError(t, err)
	responder.AssertExpectations(t)
	assert.Equal(t, 0, f.prompts.Len())
}

func TestWarnRejectsWhenBotOutranked(t *testing.T) {
	f := newWarnFixture(t, time.Minute)
	f.client.On("CanModerate", testGuildID, testSenderID, testTargetID).Return(true)
	f.client.On("SelfID").Return(testBotID)
	f.client.On("CanModerate", testGuildID, testBotID, testTargetID).Return(false)

	responder := new(gatewaymocks.Responder)
	responder.On("Reply", mock.Anything, msgWarnBotRank).Return(nil).Once()

	err := f.cmd.Execute(context.Background(), warnEvent(responder, gateway.CommandOptions{TargetID: testTargetID}), activeGuild())

	require.NoError(t, err)
	responder.AssertExpectations(t)
	assert.Equal(t, 0, f.prompts.Len())
}

func TestWarnRejectsOverlongReason(t *testing.T) {
	f := newWarnFixture(t, time.Minute)
	f.allowModeration()

	reason := strings.Repeat("a", model.MaxReasonLength+1)
	responder := new(gatewaymocks.Responder)
	responder.On("Reply", mock.Anything, msgWarnReasonTooLong).Return(nil).Once()

	err := f.cmd.Execute(context.Background(), warnEvent(responder, gateway.CommandOptions{
		TargetID: testTargetID,
		Reason:   &reason,
	}), activeGuild())

	require.NoError(t, err)
	responder.AssertExpectations(t)
	assert.Equal(t, 0, f.prompts.Len())
	f.cases.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestWarnRejectsUnknownReference(t *testing.T) {
	f := newWarnFixture(t, time.Minute)
	f.allowModeration()
	f.cases.On("GetBySeq", mock.Anything, testGuildID, int64(7)).
		Return(nil, repository.ErrCaseNotFound).Once()

	reference := int64(7)
	responder := new(gatewaymocks.Responder)
	responder.On("Reply", mock.Anything, "The case '7' that you tried to reference does not exist.").
		Return(nil).Once()

	err := f.cmd.Execute(context.Background(), warnEvent(responder, gateway.CommandOptions{
		TargetID:  testTargetID,
		Reference: &reference,
	}), activeGuild())

	require.NoError(t, err)
	responder.AssertExpectations(t)
	assert.Equal(t, 0, f.prompts.Len())
}

func TestWarnCancelAbandonsAction(t *testing.T) {
	f := newWarnFixture(t, time.Minute)
	f.allowModeration()
	f.client.On("UserTag", testTargetID).Return("target#0001")
	f.cases.On("ListByTarget", mock.Anything, testGuildID, testTargetID).
		Return([]*model.CaseRecord{}, nil).Once()

	responder := new(gatewaymocks.Responder)
	buttons := capturePrompt(responder)
	cancelToken, _ := f.offer(t, warnEvent(responder, gateway.CommandOptions{TargetID: testTargetID}), buttons)

	click := new(gatewaymocks.Responder)
	edited := expectEdit(click, msgWarnCancelled)

	f.prompts.Resolve(cancelToken, click)
	waitFor(t, edited, "cancel edit")

	assert.Equal(t, 0, f.prompts.Len(), "terminal transition must discard both prompts")
	f.cases.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "PublishCaseCreated", mock.Anything, mock.Anything)
}

func TestWarnConfirmRecordsCaseAndNotifies(t *testing.T) {
	f := newWarnFixture(t, time.Minute)
	f.allowModeration()
	f.client.On("UserTag", mock.Anything).Return("target#0001")
	f.cases.On("ListByTarget", mock.Anything, testGuildID, testTargetID).
		Return([]*model.CaseRecord{}, nil).Once()

	reason := "spamming"
	rec := &model.CaseRecord{
		ID:          555,
		Seq:         3,
		Kind:        model.CaseKindWarn,
		GuildID:     testGuildID,
		TargetID:    testTargetID,
		ModeratorID: testSenderID,
		Reason:      &reason,
		CreatedAt:   time.Now(),
		Active:      true,
	}
	f.cases.On("Create", mock.Anything, mock.MatchedBy(func(draft repository.CaseDraft) bool {
		return draft.Kind == model.CaseKindWarn &&
			draft.GuildID == testGuildID &&
			draft.TargetID == testTargetID &&
			draft.ModeratorID == testSenderID &&
			draft.Reason != nil && *draft.Reason == reason &&
			draft.ReferenceID == nil
	})).Return(rec, nil).Once()

	// Fan-out sinks: DM plus channel broadcast; no mod log configured.
	f.client.On("GuildInfo", testGuildID).Return(gateway.GuildInfo{Name: "Test Guild"}, nil)
	f.client.On("SendDirectEmbed", mock.Anything, testTargetID, mock.Anything).Return(nil).Once()
	f.client.On("CanSendEmbeds", testChannelID).Return(true)
	f.client.On("SendChannelEmbed", mock.Anything, testChannelID, mock.Anything).Return(nil).Once()

	published := make(chan struct{})
	f.events.On("PublishCaseCreated", mock.Anything, rec).
		Run(func(mock.Arguments) { close(published) }).
		Return(nil).Once()

	responder := new(gatewaymocks.Responder)
	buttons := capturePrompt(responder)
	_, confirmToken := f.offer(t, warnEvent(responder, gateway.CommandOptions{
		TargetID: testTargetID,
		Reason:   &reason,
	}), buttons)

	click := new(gatewaymocks.Responder)
	edited := expectEdit(click, "Successfully warned target#0001.\nCase #3")

	f.prompts.Resolve(confirmToken, click)
	waitFor(t, edited, "confirmation edit")
	waitFor(t, published, "case event publish")

	assert.Equal(t, 0, f.prompts.Len())
	f.cases.AssertExpectations(t)
	f.client.AssertExpectations(t)
}

func TestWarnConfirmReportsDeniedBroadcast(t *testing.T) {
	f := newWarnFixture(t, time.Minute)
	f.allowModeration()
	f.client.On("UserTag", mock.Anything).Return("target#0001")
	f.cases.On("ListByTarget", mock.Anything, testGuildID, testTargetID).
		Return([]*model.CaseRecord{}, nil).Once()

	rec := &model.CaseRecord{
		ID: 556, Seq: 4, Kind: model.CaseKindWarn,
		GuildID: testGuildID, TargetID: testTargetID, ModeratorID: testSenderID,
		CreatedAt: time.Now(), Active: true,
	}
	f.cases.On("Create", mock.Anything, mock.Anything).Return(rec, nil).Once()

	f.client.On("GuildInfo", testGuildID).Return(gateway.GuildInfo{Name: "Test Guild"}, nil)
	f.client.On("SendDirectEmbed", mock.Anything, testTargetID, mock.Anything).Return(nil).Once()
	f.client.On("CanSendEmbeds", testChannelID).Return(false)
	f.events.On("PublishCaseCreated", mock.Anything, rec).Return(nil).Once()

	responder := new(gatewaymocks.Responder)
	buttons := capturePrompt(responder)
	_, confirmToken := f.offer(t, warnEvent(responder, gateway.CommandOptions{TargetID: testTargetID}), buttons)

	click := new(gatewaymocks.Responder)
	edited := expectEdit(click, "Successfully warned target#0001.\nCase #4\n"+msgWarnNoBroadcast)

	f.prompts.Resolve(confirmToken, click)
	waitFor(t, edited, "confirmation edit")

	f.client.AssertNotCalled(t, "SendChannelEmbed", mock.Anything, testChannelID, mock.Anything)
}

func TestWarnConfirmSurfacesRecordFailure(t *testing.T) {
	f := newWarnFixture(t, time.Minute)
	f.allowModeration()
	f.client.On("UserTag", testTargetID).Return("target#0001")
	f.cases.On("ListByTarget", mock.Anything, testGuildID, testTargetID).
		Return([]*model.CaseRecord{}, nil).Once()
	f.cases.On("Create", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset")).Once()

	responder := new(gatewaymocks.Responder)
	buttons := capturePrompt(responder)
	_, confirmToken := f.offer(t, warnEvent(responder, gateway.CommandOptions{TargetID: testTargetID}), buttons)

	click := new(gatewaymocks.Responder)
	edited := expectEdit(click, msgWarnRecordFailed)

	f.prompts.Resolve(confirmToken, click)
	waitFor(t, edited, "record-failure edit")

	// No case, no fan-out, no event.
	f.client.AssertNotCalled(t, "SendDirectEmbed", mock.Anything, mock.Anything, mock.Anything)
	f.events.AssertNotCalled(t, "PublishCaseCreated", mock.Anything, mock.Anything)
}

func TestWarnTimeoutExpiresBothPrompts(t *testing.T) {
	f := newWarnFixture(t, 30*time.Millisecond)
	f.allowModeration()
	f.client.On("UserTag", testTargetID).Return("target#0001")
	f.cases.On("ListByTarget", mock.Anything, testGuildID, testTargetID).
		Return([]*model.CaseRecord{}, nil).Once()

	responder := new(gatewaymocks.Responder)
	buttons := capturePrompt(responder)
	timedOut := expectEdit(responder, msgWarnTimedOut)

	_, confirmToken := f.offer(t, warnEvent(responder, gateway.CommandOptions{TargetID: testTargetID}), buttons)

	waitFor(t, timedOut, "timeout edit")
	assert.Equal(t, 0, f.prompts.Len())

	// A click that arrives after the window resolves to nothing.
	late := new(gatewaymocks.Responder)
	f.prompts.Resolve(confirmToken, late)
	time.Sleep(20 * time.Millisecond)

	f.cases.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	late.AssertNotCalled(t, "EditReply", mock.Anything, mock.Anything)
}

func TestWarnConfirmRacingTimerStillExecutes(t *testing.T) {
	// A zero-length window makes the timer ready the moment the terminal
	// select runs, so a click resolved before it must still win.
	f := newWarnFixture(t, 0)
	f.client.On("UserTag", mock.Anything).Return("target#0001")

	rec := &model.CaseRecord{
		ID: 557, Seq: 5, Kind: model.CaseKindWarn,
		GuildID: testGuildID, TargetID: testTargetID, ModeratorID: testSenderID,
		CreatedAt: time.Now(), Active: true,
	}
	f.cases.On("Create", mock.Anything, mock.Anything).Return(rec, nil).Once()
	f.client.On("GuildInfo", testGuildID).Return(gateway.GuildInfo{Name: "Test Guild"}, nil)
	f.client.On("SendDirectEmbed", mock.Anything, testTargetID, mock.Anything).Return(nil).Once()
	f.client.On("CanSendEmbeds", testChannelID).Return(true)
	f.client.On("SendChannelEmbed", mock.Anything, testChannelID, mock.Anything).Return(nil).Once()
	f.events.On("PublishCaseCreated", mock.Anything, rec).Return(nil).Once()

	cancelToken, cancelCh := f.prompts.Create()
	confirmToken, confirmCh := f.prompts.Create()

	click := new(gatewaymocks.Responder)
	edited := expectEdit(click, "Successfully warned target#0001.\nCase #5")
	f.prompts.Resolve(confirmToken, click)

	inv := &warnInvocation{
		ev:           warnEvent(new(gatewaymocks.Responder), gateway.CommandOptions{TargetID: testTargetID}),
		guild:        activeGuild(),
		targetTag:    "target#0001",
		offeredAt:    time.Now(),
		cancelToken:  cancelToken,
		confirmToken: confirmToken,
	}
	f.cmd.await(context.Background(), inv, cancelCh, confirmCh)

	waitFor(t, edited, "confirmation edit")
	assert.Equal(t, 0, f.prompts.Len())
	f.cases.AssertExpectations(t)
}

func TestWarnTakesExactlyOneTerminalState(t *testing.T) {
	f := newWarnFixture(t, time.Minute)
	f.allowModeration()
	f.client.On("UserTag", testTargetID).Return("target#0001")
	f.cases.On("ListByTarget", mock.Anything, testGuildID, testTargetID).
		Return([]*model.CaseRecord{}, nil).Once()

	responder := new(gatewaymocks.Responder)
	buttons := capturePrompt(responder)
	cancelToken, confirmToken := f.offer(t, warnEvent(responder, gateway.CommandOptions{TargetID: testTargetID}), buttons)

	click := new(gatewaymocks.Responder)
	edited := expectEdit(click, msgWarnCancelled)

	f.prompts.Resolve(cancelToken, click)
	waitFor(t, edited, "cancel edit")

	// The sibling prompt died with the cancel transition.
	lateClick := new(gatewaymocks.Responder)
	f.prompts.Resolve(confirmToken, lateClick)
	time.Sleep(20 * time.Millisecond)

	f.cases.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	lateClick.AssertNotCalled(t, "EditReply", mock.Anything, mock.Anything)
	click.AssertExpectations(t)
}
