// Package commands routes inbound command events to their handlers behind
// the per-guild policy gate, and hosts the handlers themselves.
package commands

import (
	"context"

	"sentinel-bot/internal/gateway"
	"sentinel-bot/internal/model"
)

// Command is one registered command handler. Execute runs after the
// dispatcher's policy checks with a resolved guild record and an
// already-validated sender on the event.
//
// Validation failures are the command's own business: it replies to the
// user and returns nil. A non-nil error means an infrastructure fault; the
// dispatcher logs it and sends the generic retry advisory.
type Command interface {
	Execute(ctx context.Context, ev *gateway.CommandEvent, guild *model.GuildRecord) error
}

// CommandFactory constructs a handler at registration time. A failing
// factory leaves the command unroutable instead of aborting startup.
type CommandFactory func() (Command, error)
