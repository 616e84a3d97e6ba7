package commands

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"sentinel-bot/internal/gateway"
	"sentinel-bot/internal/metrics"
	"sentinel-bot/internal/model"
	"sentinel-bot/internal/repository"
)

// Fixed user-facing advisories. Policy rejections are expected traffic,
// worded once and never logged as errors.
const (
	msgGuildOnly      = "Sentinel commands currently only support guilds."
	msgNotImplemented = "This command is not yet implemented."
	msgGuildDisabled  = "Sentinel is disabled in this guild. Contact Sentinel support if you believe this is an error."
	msgDispatchError  = "An error occurred while dispatching this command. Try again later."
)

const lazyCreateTimeout = 10 * time.Second

// Dispatcher converts inbound command events into policy-checked handler
// executions. Each dispatch runs in its own goroutine with failure
// containment at the boundary, so one failing command never affects the
// other events in flight.
type Dispatcher struct {
	mu       sync.RWMutex
	commands map[string]Command

	guilds repository.GuildRepository
	logger zerolog.Logger
}

func NewDispatcher(guilds repository.GuildRepository, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		commands: make(map[string]Command),
		guilds:   guilds,
		logger:   logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Register constructs and stores the handler for a command name. A second
// registration of the same name is a no-op; a failing factory is logged
// and leaves the name unroutable.
func (d *Dispatcher) Register(name string, factory CommandFactory) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.commands[name]; exists {
		return
	}

	cmd, err := factory()
	if err != nil {
		d.logger.Warn().Err(err).Str("command", name).Msg("failed to construct command handler")
		return
	}
	d.commands[name] = cmd
	d.logger.Info().Str("command", name).Msg("registered command")
}

// Dispatch applies the policy gate and hands the event to its handler.
// Returns as soon as the handler goroutine is started; the caller (the
// gateway event loop) must never block on command work.
func (d *Dispatcher) Dispatch(ev *gateway.CommandEvent) {
	ctx := context.Background()

	// Commands only operate inside guild communities.
	if ev.GuildID == 0 {
		metrics.CommandsDispatched.WithLabelValues(ev.Command, metrics.OutcomeRejectedDM).Inc()
		d.reply(ctx, ev, msgGuildOnly)
		return
	}

	d.logger.Info().
		Str("command", ev.Command).
		Int64("guild_id", ev.GuildID).
		Int64("sender_id", ev.SenderID).
		Msg("command event received")

	d.mu.RLock()
	cmd, ok := d.commands[ev.Command]
	d.mu.RUnlock()

	// Expected for partially deployed command sets, not an error.
	if !ok {
		metrics.CommandsDispatched.WithLabelValues(ev.Command, metrics.OutcomeUnknownCommand).Inc()
		d.logger.Warn().Str("command", ev.Command).Int64("guild_id", ev.GuildID).Msg("no implementation registered for command")
		d.reply(ctx, ev, msgNotImplemented)
		return
	}

	go d.run(ctx, ev, cmd)
}

// run is the per-dispatch failure boundary: panics and handler errors are
// contained here, logged, and surfaced to the user as a retry advisory.
func (d *Dispatcher) run(ctx context.Context, ev *gateway.CommandEvent, cmd Command) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.CommandsDispatched.WithLabelValues(ev.Command, metrics.OutcomeError).Inc()
			d.logger.Error().
				Interface("panic", rec).
				Str("command", ev.Command).
				Int64("guild_id", ev.GuildID).
				Msg("panic during command dispatch")
			d.reply(ctx, ev, msgDispatchError)
		}
	}()

	guild, err := d.resolveGuild(ctx, ev.GuildID)
	if err != nil {
		metrics.CommandsDispatched.WithLabelValues(ev.Command, metrics.OutcomeError).Inc()
		d.logger.Error().Err(err).Str("command", ev.Command).Int64("guild_id", ev.GuildID).Msg("failed to resolve guild record")
		d.reply(ctx, ev, msgDispatchError)
		return
	}

	if guild.Status == model.GuildStatusDisabled {
		metrics.CommandsDispatched.WithLabelValues(ev.Command, metrics.OutcomeGuildDisabled).Inc()
		d.logger.Info().Str("command", ev.Command).Int64("guild_id", ev.GuildID).Msg("command rejected, guild disabled")
		d.reply(ctx, ev, msgGuildDisabled)
		return
	}

	if err := cmd.Execute(ctx, ev, guild); err != nil {
		metrics.CommandsDispatched.WithLabelValues(ev.Command, metrics.OutcomeError).Inc()
		d.logger.Error().Err(err).Str("command", ev.Command).Int64("guild_id", ev.GuildID).Msg("command execution failed")
		d.reply(ctx, ev, msgDispatchError)
		return
	}

	metrics.CommandsDispatched.WithLabelValues(ev.Command, metrics.OutcomeHandled).Inc()
}

// resolveGuild fetches the guild record, lazily creating the row with the
// default ACTIVE status on first contact. The write happens off the
// dispatch path: the in-memory default record is authoritative for this
// invocation, and a concurrent dispatch that misses the row simply takes
// the same lazy path again.
func (d *Dispatcher) resolveGuild(ctx context.Context, guildID int64) (*model.GuildRecord, error) {
	guild, err := d.guilds.Get(ctx, guildID)
	if err == nil {
		return guild, nil
	}
	if !errors.Is(err, repository.ErrGuildNotFound) {
		return nil, err
	}

	go func() {
		createCtx, cancel := context.WithTimeout(context.Background(), lazyCreateTimeout)
		defer cancel()
		if err := d.guilds.Create(createCtx, guildID); err != nil {
			d.logger.Error().Err(err).Int64("guild_id", guildID).Msg("failed to lazily create guild record")
		}
	}()

	return model.DefaultGuildRecord(guildID), nil
}

func (d *Dispatcher) reply(ctx context.Context, ev *gateway.CommandEvent, content string) {
	if err := ev.Responder.Reply(ctx, content); err != nil {
		d.logger.Warn().Err(err).Str("command", ev.Command).Msg("failed to send dispatch reply")
	}
}
