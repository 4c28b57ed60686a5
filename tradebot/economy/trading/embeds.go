package trading

import (
	"fmt"
	"strings"
	"time"

	"github.com/disgoorg/disgo/discord"

	"github.com/disgoorg/tradebot/internal/domain/trade"
	"github.com/disgoorg/tradebot/tradebot/config"
	"github.com/disgoorg/tradebot/tradebot/utils"
)

// Component ids. Handlers are registered on the prefixes in commands.
const (
	ConfirmPrefix = "/trade/confirm/"
	FinalPrefix   = "/trade/final/"
	CancelPrefix  = "/trade/cancel/"
)

func ConfirmID(sessionID string) string { return ConfirmPrefix + sessionID }
func CancelID(sessionID string) string  { return CancelPrefix + sessionID }
func FinalID(sessionID string, accept bool) string {
	if accept {
		return FinalPrefix + sessionID + "/accept"
	}
	return FinalPrefix + sessionID + "/decline"
}

func formatOffer(o trade.Offer, names map[trade.CardID]CardName) string {
	if o.IsEmpty() {
		return "*nothing*"
	}
	var b strings.Builder
	for _, id := range o.Cards {
		n := names[id]
		fmt.Fprintf(&b, "%s %s\n", utils.GetStarsDisplay(n.Level), utils.FormatCardName(n.Name))
	}
	if o.Currency > 0 {
		fmt.Fprintf(&b, "💰 %s\n", utils.FormatCurrency(o.Currency))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func offerNames(offers ...trade.Offer) []trade.CardID {
	var ids []trade.CardID
	for _, o := range offers {
		ids = append(ids, o.Cards...)
	}
	return ids
}

func offerEmbed(p trade.OfferPrompt, draft trade.Offer, confirmed bool, names map[trade.CardID]CardName, now time.Time) discord.Embed {
	status := fmt.Sprintf("Build your offer with `/trade add`, `/trade remove` and `/trade gold`, then press **Confirm**. Closes in %s.",
		utils.FormatDuration(p.Deadline.Sub(now)))
	if confirmed {
		status = fmt.Sprintf("Offer confirmed. Waiting for **%s**.", p.Partner.Name)
	}

	return discord.NewEmbedBuilder().
		SetTitle(fmt.Sprintf("🤝 Trade with %s", p.Partner.Name)).
		SetDescription(status).
		AddField("Your offer", formatOffer(draft, names), false).
		AddField("Tradeable cards", fmt.Sprintf("%d", len(p.Snapshot.Cards)), true).
		AddField("Balance", utils.FormatCurrency(p.Snapshot.Balance), true).
		AddField("Card limit", fmt.Sprintf("%d/%d", len(draft.Cards), p.MaxCards), true).
		SetColor(config.BackgroundColor).
		SetFooter("Session "+p.SessionID, "").
		SetTimestamp(p.Deadline).
		Build()
}

func offerComponents(sessionID string, confirmed bool) []discord.ContainerComponent {
	if confirmed {
		return []discord.ContainerComponent{
			discord.NewActionRow(discord.NewDangerButton("Cancel trade", CancelID(sessionID))),
		}
	}
	return []discord.ContainerComponent{
		discord.NewActionRow(
			discord.NewSuccessButton("Confirm offer", ConfirmID(sessionID)),
			discord.NewDangerButton("Cancel trade", CancelID(sessionID)),
		),
	}
}

func finalEmbed(p trade.FinalPrompt, partner trade.Party, names map[trade.CardID]CardName, now time.Time) discord.Embed {
	return discord.NewEmbedBuilder().
		SetTitle("📜 Final confirmation").
		SetDescription(fmt.Sprintf("Both offers are locked. Accept within %s to complete the trade with **%s**.",
			utils.FormatDuration(p.Deadline.Sub(now)), partner.Name)).
		AddField("You give", formatOffer(p.Own, names), true).
		AddField("You receive", formatOffer(p.Partner, names), true).
		SetColor(config.WarningColor).
		SetFooter("Session "+p.SessionID, "").
		SetTimestamp(p.Deadline).
		Build()
}

func finalComponents(sessionID string) []discord.ContainerComponent {
	return []discord.ContainerComponent{
		discord.NewActionRow(
			discord.NewSuccessButton("Accept", FinalID(sessionID, true)),
			discord.NewDangerButton("Decline", FinalID(sessionID, false)),
		),
	}
}

var outcomeTitles = map[trade.Outcome]string{
	trade.OutcomeCompleted: "✅ Trade completed",
	trade.OutcomeCancelled: "🚫 Trade cancelled",
	trade.OutcomeFailed:    "❌ Trade failed",
	trade.OutcomeTimedOut:  "⌛ Trade timed out",
}

func outcomeColor(o trade.Outcome) int {
	switch o {
	case trade.OutcomeCompleted:
		return config.SuccessColor
	case trade.OutcomeFailed:
		return config.ErrorColor
	}
	return config.BackgroundColor
}

// OutcomeEmbed renders a finished session from userID's side.
func OutcomeEmbed(rec trade.Record, userID string, names map[trade.CardID]CardName) discord.Embed {
	me, ok := rec.PartyOf(userID)
	if !ok {
		me = rec.Initiator
	}
	partner := rec.Counterparty
	if me.Role == trade.RoleCounterparty {
		partner = rec.Initiator
	}

	description := fmt.Sprintf("Your trade with **%s** has ended.", partner.Name)
	if rec.Outcome == trade.OutcomeCompleted {
		description = fmt.Sprintf("Your trade with **%s** went through.", partner.Name)
	}
	if rec.Reason != "" {
		description += "\n" + rec.Reason
	}

	give, receive := "You gave", "You received"
	if rec.Outcome != trade.OutcomeCompleted {
		give, receive = "You offered", "They offered"
	}

	return discord.NewEmbedBuilder().
		SetTitle(outcomeTitles[rec.Outcome]).
		SetDescription(description).
		AddField(give, formatOffer(rec.Offer(me.Role), names), true).
		AddField(receive, formatOffer(rec.Offer(partner.Role), names), true).
		SetColor(outcomeColor(rec.Outcome)).
		SetFooter("Session "+rec.SessionID, "").
		SetTimestamp(rec.FinishedAt).
		Build()
}

// HistoryLine is one row of /trade history.
func HistoryLine(rec trade.Record, userID string) string {
	me, _ := rec.PartyOf(userID)
	partner := rec.Counterparty
	if me.Role == trade.RoleCounterparty {
		partner = rec.Initiator
	}
	own, other := rec.Offer(me.Role), rec.Offer(partner.Role)
	return fmt.Sprintf("`%s` **%s** with %s · gave %d card(s) + %s · got %d card(s) + %s · <t:%d:R>",
		rec.SessionID,
		strings.ReplaceAll(string(rec.Outcome), "_", " "),
		partner.Name,
		len(own.Cards), utils.FormatCurrency(own.Currency),
		len(other.Cards), utils.FormatCurrency(other.Currency),
		rec.FinishedAt.Unix())
}
