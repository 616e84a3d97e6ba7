package gateway

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// applicationCommands is the slash-command surface the bot declares on
// startup. Routing happens by command name.
var applicationCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "warn",
		Description: "Applies a warning to a user.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "target",
				Description: "The user to warn.",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "reason",
				Description: "The reason for the warning (max 255 characters).",
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "reference",
				Description: "A case number to link this case to.",
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "silent",
				Description: "Skip the broadcast to the current channel.",
			},
		},
	},
}

// RegisterApplicationCommands declares the bot's slash commands globally.
// Must be called after Open, once the session knows its own application id.
func (d *Discord) RegisterApplicationCommands() error {
	if d.session.State.User == nil {
		return fmt.Errorf("cannot register commands before the gateway is ready")
	}
	appID := d.session.State.User.ID
	for _, cmd := range applicationCommands {
		if _, err := d.session.ApplicationCommandCreate(appID, "", cmd); err != nil {
			return fmt.Errorf("failed to register command %q: %w", cmd.Name, err)
		}
		d.logger.Info().Str("command", cmd.Name).Msg("registered application command")
	}
	return nil
}
