package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/handler"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/paginator"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/tradebot"
	"github.com/disgoorg/tradebot/tradebot/config"
	"github.com/disgoorg/tradebot/tradebot/economy/trading"
	"github.com/disgoorg/tradebot/tradebot/handlers"
	"github.com/disgoorg/tradebot/tradebot/logger"
	"github.com/disgoorg/tradebot/tradebot/utils"
)

// historyLimit caps how many records /trade history pages through.
const historyLimit = 50

var TradeCommand = discord.SlashCommandCreate{
	Name:        "trade",
	Description: "Trade cards and flakes with another player",
	Options: []discord.ApplicationCommandOption{
		discord.ApplicationCommandOptionSubCommand{
			Name:        "start",
			Description: "Open a trade with another player",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "The player you want to trade with",
					Required:    true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "add",
			Description: "Add a card to your offer",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "card",
					Description:  "Card name or id",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "remove",
			Description: "Remove a card from your offer",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:         "card",
					Description:  "Card name or id",
					Required:     true,
					Autocomplete: true,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "gold",
			Description: "Set how many flakes you offer",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionInt{
					Name:        "amount",
					Description: "Amount of flakes, 0 to clear",
					Required:    true,
					MinValue:    intPtr(0),
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "confirm",
			Description: "Lock in your offer",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "cancel",
			Description: "Cancel your current trade",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "status",
			Description: "Show your current trade",
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "history",
			Description: "Show recent trades",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionUser{
					Name:        "user",
					Description: "Whose trades to show (default: you)",
					Required:    false,
				},
			},
		},
		discord.ApplicationCommandOptionSubCommand{
			Name:        "outcome",
			Description: "Show how a trade ended",
			Options: []discord.ApplicationCommandOption{
				discord.ApplicationCommandOptionString{
					Name:        "session",
					Description: "Trade session id (e.g. TR-...)",
					Required:    true,
				},
			},
		},
	},
}

type TradeHandler struct {
	coordinator *trade.Coordinator
	messenger   *trading.Messenger
	names       *trading.CardNameCache
	paginator   *paginator.Manager
	pageSize    int
}

func NewTradeHandler(b *tradebot.Bot) *TradeHandler {
	pageSize := b.Cfg.Trade.HistoryPageSize
	if pageSize <= 0 {
		pageSize = config.HistoryPageSize
	}
	return &TradeHandler{
		coordinator: b.Coordinator,
		messenger:   b.Messenger,
		names:       b.CardNames,
		paginator:   b.Paginator,
		pageSize:    pageSize,
	}
}

func (h *TradeHandler) Register(r handler.Router) {
	r.Route("/trade", func(r handler.Router) {
		r.Command("/start", handlers.WrapWithLogging("trade-start", h.HandleStart))
		r.Command("/add", handlers.WrapWithLogging("trade-add", h.HandleAdd))
		r.Command("/remove", handlers.WrapWithLogging("trade-remove", h.HandleRemove))
		r.Command("/gold", handlers.WrapWithLogging("trade-gold", h.HandleGold))
		r.Command("/confirm", handlers.WrapWithLogging("trade-confirm", h.HandleConfirm))
		r.Command("/cancel", handlers.WrapWithLogging("trade-cancel", h.HandleCancel))
		r.Command("/status", handlers.WrapWithLogging("trade-status", h.HandleStatus))
		r.Command("/history", handlers.WrapWithLogging("trade-history", h.HandleHistory))
		r.Command("/outcome", handlers.WrapWithLogging("trade-outcome", h.HandleOutcome))
		r.Autocomplete("/add", h.cardAutocomplete(false))
		r.Autocomplete("/remove", h.cardAutocomplete(true))
	})

	r.Component("/trade/confirm/{session}", handlers.WrapComponentWithLogging("trade-confirm-button", h.HandleConfirmButton))
	r.Component("/trade/final/{session}/{answer}", handlers.WrapComponentWithLogging("trade-final-button", h.HandleFinalButton))
	r.Component("/trade/cancel/{session}", handlers.WrapComponentWithLogging("trade-cancel-button", h.HandleCancelButton))
}

func intPtr(v int) *int {
	return &v
}

func tradeUser(u discord.User) trade.User {
	return trade.User{ID: u.ID.String(), Name: u.EffectiveName(), Bot: u.Bot || u.System}
}

// userMessage renders err for an ephemeral reply.
func userMessage(err error) string {
	switch {
	case errors.Is(err, trading.ErrNoPendingPrompt):
		return "You have no offer waiting for input."
	case errors.Is(err, trading.ErrNoCardMatch):
		return "No card in your tradeable inventory matches that name."
	}
	return trade.HumanMessage(err)
}

func (h *TradeHandler) HandleStart(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	target := e.SlashCommandInteractionData().User("user")
	s, err := h.coordinator.Start(ctx, tradeUser(e.User()), tradeUser(target))
	if err != nil {
		var userErr *trade.UserError
		if !errors.As(err, &userErr) {
			logger.LogError("Failed to open trade", err,
				slog.String("initiator", e.User().ID.String()),
				slog.String("counterparty", target.ID.String()))
		}
		return e.CreateMessage(utils.EphemeralError(userMessage(err)))
	}

	window := h.coordinator.Config().OfferWindow
	embed := discord.NewEmbedBuilder().
		SetTitle("🤝 Trade opened").
		SetDescription(fmt.Sprintf("%s wants to trade with %s.\nBoth of you have a DM to build your offer. Offers close in %s.",
			e.User().Mention(), target.Mention(), utils.FormatDuration(window))).
		SetColor(config.BackgroundColor).
		SetFooter("Session "+s.ID, "").
		Build()

	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{embed},
	})
}

func (h *TradeHandler) HandleAdd(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	card, err := h.messenger.AddCard(ctx, e.User().ID.String(), e.SlashCommandInteractionData().String("card"))
	if err != nil {
		return e.CreateMessage(utils.EphemeralError(userMessage(err)))
	}
	return e.CreateMessage(utils.EphemeralSuccess(fmt.Sprintf("Added %s **%s** to your offer.",
		utils.GetStarsDisplay(card.Level), utils.FormatCardName(card.Name))))
}

func (h *TradeHandler) HandleRemove(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	card, err := h.messenger.RemoveCard(ctx, e.User().ID.String(), e.SlashCommandInteractionData().String("card"))
	if err != nil {
		return e.CreateMessage(utils.EphemeralError(userMessage(err)))
	}
	return e.CreateMessage(utils.EphemeralSuccess(fmt.Sprintf("Removed **%s** from your offer.",
		utils.FormatCardName(card.Name))))
}

func (h *TradeHandler) HandleGold(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	amount := int64(e.SlashCommandInteractionData().Int("amount"))
	if err := h.messenger.SetCurrency(ctx, e.User().ID.String(), amount); err != nil {
		return e.CreateMessage(utils.EphemeralError(userMessage(err)))
	}
	if amount == 0 {
		return e.CreateMessage(utils.EphemeralSuccess("Your offer no longer includes flakes."))
	}
	return e.CreateMessage(utils.EphemeralSuccess(fmt.Sprintf("You now offer %s.", utils.FormatCurrency(amount))))
}

func (h *TradeHandler) HandleConfirm(e *handler.CommandEvent) error {
	return h.confirm(e.User().ID.String(), "", e.CreateMessage)
}

func (h *TradeHandler) HandleConfirmButton(e *handler.ComponentEvent) error {
	return h.confirm(e.User().ID.String(), e.Vars["session"], e.CreateMessage)
}

func (h *TradeHandler) confirm(userID, sessionID string, reply func(discord.MessageCreate, ...rest.RequestOpt) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	offer, err := h.messenger.ConfirmOffer(ctx, userID, sessionID)
	if err != nil {
		return reply(utils.EphemeralError(userMessage(err)))
	}
	return reply(utils.EphemeralSuccess(fmt.Sprintf("Offer locked with %d card(s) and %s. Waiting for your partner.",
		len(offer.Cards), utils.FormatCurrency(offer.Currency))))
}

func (h *TradeHandler) HandleCancel(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	if err := h.coordinator.CancelUser(ctx, e.User().ID.String()); err != nil {
		return e.CreateMessage(utils.EphemeralError(userMessage(err)))
	}
	return e.CreateMessage(utils.EphemeralSuccess("Trade cancelled."))
}

func (h *TradeHandler) HandleCancelButton(e *handler.ComponentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	sessionID := e.Vars["session"]
	if err := h.coordinator.Cancel(ctx, sessionID, e.User().ID.String()); err != nil {
		return e.CreateMessage(utils.EphemeralError(userMessage(err)))
	}
	logger.LogTrade("Trade cancelled from button", sessionID, slog.String("user_id", e.User().ID.String()))
	return e.UpdateMessage(discord.MessageUpdate{
		Components: &[]discord.ContainerComponent{},
	})
}

func (h *TradeHandler) HandleFinalButton(e *handler.ComponentEvent) error {
	sessionID := e.Vars["session"]
	accept := e.Vars["answer"] == "accept"

	if err := h.messenger.AnswerFinal(e.User().ID.String(), sessionID, accept); err != nil {
		return e.CreateMessage(utils.EphemeralError(userMessage(err)))
	}

	content := "❌ You declined the trade."
	if accept {
		content = "✅ You accepted. Waiting for your partner."
	}
	return e.UpdateMessage(discord.MessageUpdate{
		Content:    &content,
		Components: &[]discord.ContainerComponent{},
	})
}

func (h *TradeHandler) HandleStatus(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	userID := e.User().ID.String()
	if embed, ok := h.messenger.DraftEmbed(ctx, userID); ok {
		return e.CreateMessage(discord.MessageCreate{
			Embeds: []discord.Embed{embed},
			Flags:  discord.MessageFlagEphemeral,
		})
	}

	s, ok := h.coordinator.SessionFor(userID)
	if !ok {
		return e.CreateMessage(utils.EphemeralError(userMessage(trade.ErrNoActiveSession)))
	}
	return e.CreateMessage(utils.EphemeralInfo(fmt.Sprintf("Trade `%s` is %s.",
		s.ID, strings.ToLower(strings.ReplaceAll(s.State().String(), "_", " ")))))
}

func (h *TradeHandler) HandleHistory(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	user := e.User()
	if u, ok := e.SlashCommandInteractionData().OptUser("user"); ok {
		user = u
	}
	userID := user.ID.String()

	records, err := h.coordinator.History(ctx, userID, historyLimit)
	if err != nil {
		logger.LogError("Failed to load trade history", err, slog.String("user_id", userID))
		return e.CreateMessage(utils.EphemeralError("Failed to load trade history."))
	}
	if len(records) == 0 {
		return e.CreateMessage(utils.EphemeralInfo(fmt.Sprintf("%s has no finished trades yet.", user.EffectiveName())))
	}

	totalPages := (len(records) + h.pageSize - 1) / h.pageSize
	return h.paginator.Create(e.Respond, paginator.Pages{
		ID:      e.ID().String(),
		Creator: e.User().ID,
		PageFunc: func(page int, embed *discord.EmbedBuilder) {
			start := page * h.pageSize
			end := min(start+h.pageSize, len(records))

			var description strings.Builder
			for _, rec := range records[start:end] {
				description.WriteString(trading.HistoryLine(rec, userID))
				description.WriteString("\n")
			}

			embed.
				SetTitle(fmt.Sprintf("📜 Trades of %s", user.EffectiveName())).
				SetDescription(description.String()).
				SetColor(config.BackgroundColor).
				SetFooter(fmt.Sprintf("Page %d/%d • %d trade(s)", page+1, totalPages, len(records)), "")
		},
		Pages:      totalPages,
		ExpireMode: paginator.ExpireModeAfterLastUsage,
	}, true)
}

func (h *TradeHandler) HandleOutcome(e *handler.CommandEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.DefaultQueryTimeout)
	defer cancel()

	sessionID := strings.TrimSpace(e.SlashCommandInteractionData().String("session"))
	userID := e.User().ID.String()

	rec, err := h.coordinator.Outcome(ctx, sessionID)
	switch {
	case errors.Is(err, trade.ErrSessionActive):
		return e.CreateMessage(utils.EphemeralInfo("That trade is still running."))
	case err != nil:
		return e.CreateMessage(utils.EphemeralError(userMessage(err)))
	}
	if _, ok := rec.PartyOf(userID); !ok {
		return e.CreateMessage(utils.EphemeralError(userMessage(trade.ErrNotParticipant)))
	}

	names := h.names.Lookup(ctx, append(append([]trade.CardID{}, rec.InitiatorOffer.Cards...), rec.CounterpartyOffer.Cards...))
	return e.CreateMessage(discord.MessageCreate{
		Embeds: []discord.Embed{trading.OutcomeEmbed(rec, userID, names)},
		Flags:  discord.MessageFlagEphemeral,
	})
}

// cardAutocomplete suggests cards from the caller's snapshot. With offered
// set it only suggests cards already in the offer.
func (h *TradeHandler) cardAutocomplete(offered bool) handler.AutocompleteHandler {
	return func(e *handler.AutocompleteEvent) error {
		focused := e.Data.Focused()
		if focused.Name != "card" {
			return nil
		}

		query := ""
		if focused.Value != nil {
			var s string
			if err := json.Unmarshal(focused.Value, &s); err == nil {
				query = strings.TrimSpace(s)
			}
		}

		userID := e.User().ID.String()
		cards := h.messenger.Tradeable(userID)
		if offered {
			_, draft, _ := h.messenger.Draft(userID)
			kept := cards[:0:0]
			for _, c := range cards {
				if draft.Contains(c.ID) {
					kept = append(kept, c)
				}
			}
			cards = kept
		}

		suggestions := trading.SuggestCards(cards, query, config.MaxPageSize)
		choices := make([]discord.AutocompleteChoice, 0, len(suggestions))
		for _, c := range suggestions {
			choices = append(choices, discord.AutocompleteChoiceString{
				Name:  fmt.Sprintf("%s %s", strings.Repeat("★", max(c.Level, 0)), utils.FormatCardName(c.Name)),
				Value: strconv.FormatInt(int64(c.ID), 10),
			})
		}
		return e.AutocompleteResult(choices)
	}
}
