package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"sentinel-bot/internal/model"
)

// Mock CaseEventPublisher
type CaseEventPublisher struct {
	mock.Mock
}

func (m *CaseEventPublisher) PublishCaseCreated(ctx context.Context, rec *model.CaseRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}
