package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sentinel-bot/internal/gateway"
)

// Mock gateway.Client
type Client struct {
	mock.Mock
}

func (m *Client) SelfID() int64 {
	args := m.Called()
	return args.Get(0).(int64)
}

func (m *Client) GuildInfo(guildID int64) (gateway.GuildInfo, error) {
	args := m.Called(guildID)
	return args.Get(0).(gateway.GuildInfo), args.Error(1)
}

func (m *Client) UserTag(userID int64) string {
	args := m.Called(userID)
	return args.String(0)
}

func (m *Client) SendDirectEmbed(ctx context.Context, userID int64, embed gateway.Embed) error {
	args := m.Called(ctx, userID, embed)
	return args.Error(0)
}

func (m *Client) SendChannelEmbed(ctx context.Context, channelID int64, embed gateway.Embed) error {
	args := m.Called(ctx, channelID, embed)
	return args.Error(0)
}

func (m *Client) HasChannel(channelID int64) bool {
	args := m.Called(channelID)
	return args.Bool(0)
}

func (m *Client) CanSendEmbeds(channelID int64) bool {
	args := m.Called(channelID)
	return args.Bool(0)
}

func (m *Client) CanModerate(guildID, actorID, targetID int64) bool {
	args := m.Called(guildID, actorID, targetID)
	return args.Bool(0)
}

// Mock gateway.Responder
type Responder struct {
	mock.Mock
}

func (m *Responder) Reply(ctx context.Context, content string) error {
	args := m.Called(ctx, content)
	return args.Error(0)
}

func (m *Responder) ReplyPrompt(ctx context.Context, embed gateway.Embed, buttons ...gateway.Button) error {
	args := m.Called(ctx, embed, buttons)
	return args.Error(0)
}

func (m *Responder) EditReply(ctx context.Context, content string) error {
	args := m.Called(ctx, content)
	return args.Error(0)
}
