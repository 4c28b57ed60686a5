package trade

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Revalidate checks every offer against the live store inside tx. Rows are
// locked owner by owner in ascending user id order.
func Revalidate(ctx context.Context, tx InventoryTx, offers ...Offer) error {
	ordered := slices.Clone(offers)
	slices.SortStableFunc(ordered, func(a, b Offer) int {
		return strings.Compare(a.Owner.UserID, b.Owner.UserID)
	})

	var stale []StaleSide
	for _, o := range ordered {
		side, err := revalidateOffer(ctx, tx, o)
		if err != nil {
			return err
		}
		if side != nil {
			stale = append(stale, *side)
		}
	}

	if len(stale) > 0 {
		slices.SortFunc(stale, func(a, b StaleSide) int {
			return strings.Compare(string(a.Role), string(b.Role))
		})
		return &StaleOfferError{Sides: stale}
	}
	return nil
}

func revalidateOffer(ctx context.Context, tx InventoryTx, o Offer) (*StaleSide, error) {
	owner := o.Owner.UserID

	var missing []CardID
	if len(o.Cards) > 0 {
		owned, err := tx.LockCards(ctx, owner, o.Cards)
		if err != nil {
			return nil, fmt.Errorf("failed to lock cards of %s: %w", owner, err)
		}
		for _, id := range o.Cards {
			if !slices.Contains(owned, id) {
				missing = append(missing, id)
			}
		}
	}

	balance, err := tx.LockBalance(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance of %s: %w", owner, err)
	}

	if len(missing) == 0 && balance >= o.Currency {
		return nil, nil
	}
	return &StaleSide{
		Role:         o.Owner.Role,
		UserID:       owner,
		MissingCards: missing,
		Balance:      balance,
		Required:     o.Currency,
	}, nil
}
