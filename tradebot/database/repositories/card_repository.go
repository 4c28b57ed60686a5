package repositories

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/disgoorg/tradebot/tradebot/database/models"
)

type CardRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Card, error)
	GetByIDs(ctx context.Context, ids []int64) ([]*models.Card, error)
}

type cardRepository struct {
	*BaseRepository
}

func NewCardRepository(db *bun.DB) CardRepository {
	return &cardRepository{BaseRepository: NewBaseRepository(db)}
}

func (r *cardRepository) GetByID(ctx context.Context, id int64) (*models.Card, error) {
	card := new(models.Card)
	err := r.SelectWithTimeout(ctx, "get", "cards", id, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(card).
			Where("id = ?", id).
			Scan(ctx)
	})
	if err != nil {
		return nil, err
	}
	return card, nil
}

func (r *cardRepository) GetByIDs(ctx context.Context, ids []int64) ([]*models.Card, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var cards []*models.Card
	err := r.SelectWithTimeout(ctx, "get_many", "cards", ids, func(ctx context.Context) error {
		return r.db.NewSelect().
			Model(&cards).
			Where("id IN (?)", bun.In(ids)).
			Scan(ctx)
	})
	if err != nil && !IsNotFound(err) {
		return nil, err
	}
	return cards, nil
}
