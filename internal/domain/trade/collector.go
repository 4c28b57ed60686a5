package trade

import (
	"context"
	"slices"
	"sync"
)

// OfferCollector gathers one party's offer. Checks run against the snapshot
// taken when collection started; execution re-checks against the live store.
type OfferCollector struct {
	mu        sync.Mutex
	snapshot  Snapshot
	maxCards  int
	offer     Offer
	confirmed bool
	err       error
	done      chan struct{}
}

func NewOfferCollector(owner Party, snap Snapshot, maxCards int) *OfferCollector {
	return &OfferCollector{
		snapshot: snap,
		maxCards: maxCards,
		offer:    Offer{Owner: owner},
		done:     make(chan struct{}),
	}
}

func (c *OfferCollector) Owner() Party {
	return c.offer.Owner
}

func (c *OfferCollector) Snapshot() Snapshot {
	return c.snapshot
}

func (c *OfferCollector) MaxCards() int {
	return c.maxCards
}

func (c *OfferCollector) AddCard(id CardID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	if !c.snapshot.Owns(id) {
		return ErrCardNotOwned
	}
	if c.offer.Contains(id) {
		return ErrDuplicateCard
	}
	if c.maxCards > 0 && len(c.offer.Cards) >= c.maxCards {
		return ErrTooManyCards
	}

	c.offer.Cards = append(c.offer.Cards, id)
	slices.Sort(c.offer.Cards)
	return nil
}

func (c *OfferCollector) RemoveCard(id CardID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	idx := slices.Index(c.offer.Cards, id)
	if idx < 0 {
		return ErrCardNotOffered
	}
	c.offer.Cards = slices.Delete(c.offer.Cards, idx, idx+1)
	return nil
}

func (c *OfferCollector) SetCurrency(amount int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return err
	}
	if amount < 0 {
		return ErrNegativeAmount
	}
	if amount > c.snapshot.Balance {
		return ErrInsufficientBalance
	}
	c.offer.Currency = amount
	return nil
}

// Draft returns a copy of the offer as it currently stands.
func (c *OfferCollector) Draft() Offer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offer.Clone()
}

func (c *OfferCollector) Confirmed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.confirmed
}

// Confirm freezes the offer and releases Collect.
func (c *OfferCollector) Confirm() (Offer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return Offer{}, err
	}
	c.confirmed = true
	close(c.done)
	return c.offer.Clone(), nil
}

// Abort releases Collect with err, or ErrCancelled when err is nil. It has no
// effect once the collector has been confirmed or aborted.
func (c *OfferCollector) Abort(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.confirmed || c.err != nil {
		return
	}
	if err == nil {
		err = ErrCancelled
	}
	c.err = err
	close(c.done)
}

// Collect blocks until the offer is confirmed, aborted, or ctx is done.
func (c *OfferCollector) Collect(ctx context.Context) (Offer, error) {
	select {
	case <-c.done:
	case <-ctx.Done():
		c.Abort(ctx.Err())
		<-c.done
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.confirmed {
		return c.offer.Clone(), nil
	}
	return Offer{}, c.err
}

func (c *OfferCollector) editableLocked() error {
	if c.confirmed {
		return ErrOfferFrozen
	}
	if c.err != nil {
		return c.err
	}
	return nil
}
