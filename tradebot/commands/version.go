package commands

import (
	"fmt"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"

	"github.com/disgoorg/tradebot/tradebot"
)

var VersionCommand = discord.SlashCommandCreate{
	Name:        "version",
	Description: "Show the running bot version",
}

func VersionHandler(b *tradebot.Bot) handler.CommandHandler {
	return func(e *handler.CommandEvent) error {
		return e.CreateMessage(discord.MessageCreate{
			Content: fmt.Sprintf("Version: %s\nCommit: %s\nBackground processes: %d", b.Version, b.Commit, b.Processes.GetProcessCount()),
			Flags:   discord.MessageFlagEphemeral,
		})
	}
}
