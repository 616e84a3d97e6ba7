package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sentinel-bot/internal/model"
	"sentinel-bot/internal/repository"
)

// Mock GuildRepository
type GuildRepository struct {
	mock.Mock
}

func (m *GuildRepository) Create(ctx context.Context, guildID int64) error {
	args := m.Called(ctx, guildID)
	return args.Error(0)
}

func (m *GuildRepository) Get(ctx context.Context, guildID int64) (*model.GuildRecord, error) {
	args := m.Called(ctx, guildID)
	if rec := args.Get(0); rec != nil {
		return rec.(*model.GuildRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *GuildRepository) UpdateModLogChannel(ctx context.Context, guildID int64, channelID *int64) error {
	args := m.Called(ctx, guildID, channelID)
	return args.Error(0)
}

func (m *GuildRepository) UpdateMutedRole(ctx context.Context, guildID int64, roleID *int64) error {
	args := m.Called(ctx, guildID, roleID)
	return args.Error(0)
}

func (m *GuildRepository) UpdateStatus(ctx context.Context, guildID int64, status model.GuildStatus) error {
	args := m.Called(ctx, guildID, status)
	return args.Error(0)
}

func (m *GuildRepository) Delete(ctx context.Context, guildID int64) error {
	args := m.Called(ctx, guildID)
	return args.Error(0)
}

// Mock CaseRepository
type CaseRepository struct {
	mock.Mock
}

func (m *CaseRepository) Create(ctx context.Context, draft repository.CaseDraft) (*model.CaseRecord, error) {
	args := m.Called(ctx, draft)
	if rec := args.Get(0); rec != nil {
		return rec.(*model.CaseRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CaseRepository) GetBySeq(ctx context.Context, guildID, seq int64) (*model.CaseRecord, error) {
	args := m.Called(ctx, guildID, seq)
	if rec := args.Get(0); rec != nil {
		return rec.(*model.CaseRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CaseRepository) ListByTarget(ctx context.Context, guildID, targetID int64) ([]*model.CaseRecord, error) {
	args := m.Called(ctx, guildID, targetID)
	if recs := args.Get(0); recs != nil {
		return recs.([]*model.CaseRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *CaseRepository) SeqByID(ctx context.Context, guildID, id int64) (int64, error) {
	args := m.Called(ctx, guildID, id)
	return args.Get(0).(int64), args.Error(1)
}
