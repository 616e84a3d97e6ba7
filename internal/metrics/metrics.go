// Package metrics holds the bot's prometheus collectors. Everything is
// registered on the default registry and served by the ops HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Dispatch outcomes used as label values.
const (
	OutcomeHandled        = "handled"
	OutcomeRejectedDM     = "rejected_dm_context"
	OutcomeUnknownCommand = "unknown_command"
	OutcomeGuildDisabled  = "guild_disabled"
	OutcomeError          = "error"
)

var (
	CommandsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_commands_dispatched_total",
			Help: "Total number of command dispatches, partitioned by command and outcome.",
		},
		[]string{"command", "outcome"},
	)

	CasesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_cases_created_total",
			Help: "Total number of moderation cases recorded in the ledger.",
		},
	)

	PromptsExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sentinel_prompts_expired_total",
			Help: "Total number of prompt tokens evicted by the janitor sweep.",
		},
	)

	NotificationsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sentinel_notifications_failed_total",
			Help: "Total number of notification deliveries that failed or were skipped, partitioned by sink.",
		},
		[]string{"sink"},
	)
)
