package utils

import (
	"github.com/disgoorg/disgo/discord"

	"github.com/disgoorg/tradebot/tradebot/config"
)

// EphemeralError is the reply every trade handler uses for a rejected action.
func EphemeralError(message string) discord.MessageCreate {
	return ephemeralEmbed("❌ "+message, config.ErrorColor)
}

func EphemeralSuccess(message string) discord.MessageCreate {
	return ephemeralEmbed("✅ "+message, config.SuccessColor)
}

func EphemeralInfo(message string) discord.MessageCreate {
	return ephemeralEmbed(message, config.InfoColor)
}

func ephemeralEmbed(description string, color int) discord.MessageCreate {
	return discord.MessageCreate{
		Embeds: []discord.Embed{
			discord.NewEmbedBuilder().
				SetDescription(description).
				SetColor(color).
				Build(),
		},
		Flags: discord.MessageFlagEphemeral,
	}
}
