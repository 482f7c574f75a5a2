package repositories

import (
	"context"
	"net/url"
)

// AccountRepository handles the row-level side of account deletion: the users
// profile is pseudonymized in place so foreign keys from ledgers and shared
// groups stay intact, and push tokens are dropped.
type AccountRepository struct {
	Rest *SupabaseREST
}

func NewAccountRepository(rest *SupabaseREST) *AccountRepository {
	return &AccountRepository{Rest: rest}
}

// AnonymizeUser strips everything personal from the users row while keeping
// the row itself. The email gets an internal non-routable placeholder.
func (r *AccountRepository) AnonymizeUser(ctx context.Context, userID string) error {
	q := url.Values{}
	q.Set("id", "eq."+userID)
	payload := map[string]any{
		"email":       "deleted_" + userID + "@zlabo.local",
		"name":        "탈퇴한 사용자",
		"group_name":  nil,
		"profile_url": nil,
		"is_profile":  false,
	}
	return r.Rest.Patch(ctx, "users", q, payload)
}

// DeleteDeviceTokens removes every registered push token for the user.
func (r *AccountRepository) DeleteDeviceTokens(ctx context.Context, userID string) error {
	q := url.Values{}
	q.Set("user_id", "eq."+userID)
	return r.Rest.Delete(ctx, "user_device_tokens", q)
}
