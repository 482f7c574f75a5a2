package repositories

import (
	"context"
	"errors"
	"net/url"

	"wonmoreBack/internal/models"
)

var ErrNotFound = errors.New("record not found")

// SubscriptionRepository reads and writes the subscriptions table through
// PostgREST. Rows are keyed by purchase_token.
type SubscriptionRepository struct {
	Rest *SupabaseREST
}

func NewSubscriptionRepository(rest *SupabaseREST) *SubscriptionRepository {
	return &SubscriptionRepository{Rest: rest}
}

// LatestByUser returns the most recently created subscription row for a user,
// optionally narrowed to one store. ErrNotFound when the user has no row.
func (r *SubscriptionRepository) LatestByUser(ctx context.Context, userID, store string) (models.SubscriptionRecord, error) {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	if store != "" {
		q.Set("store", "eq."+store)
	}
	q.Set("select", "*")
	q.Set("order", "created_at.desc")
	q.Set("limit", "1")

	var rows []models.SubscriptionRecord
	if err := r.Rest.Select(ctx, "subscriptions", q, &rows); err != nil {
		return models.SubscriptionRecord{}, err
	}
	if len(rows) == 0 {
		return models.SubscriptionRecord{}, ErrNotFound
	}
	return rows[0], nil
}

// UpdateByToken patches the row holding this purchase token. The payload is
// whatever subset of columns the caller wants changed.
func (r *SubscriptionRepository) UpdateByToken(ctx context.Context, purchaseToken string, payload any) error {
	q := url.Values{}
	q.Set("purchase_token", "eq."+purchaseToken)
	return r.Rest.Patch(ctx, "subscriptions", q, payload)
}
