package models

// Store identifiers as stored in the subscriptions table.
const (
	StoreGooglePlay    = "google_play"
	StoreAppleAppStore = "apple_app_store"
)

// Canonical subscription statuses, independent of which store produced them.
const (
	StatusPending  = "pending"
	StatusActive   = "active"
	StatusCanceled = "canceled"
	StatusExpired  = "expired"
	StatusPaused   = "paused"
	StatusPastDue  = "past_due"
	StatusUnknown  = "unknown"
)

// SubscriptionRecord mirrors a row of the subscriptions table. Rows are owned
// by the Supabase project and addressed by purchase_token; this service never
// creates them, only reads the latest one per user and patches it back.
type SubscriptionRecord struct {
	UserID                string  `json:"user_id"`
	Store                 string  `json:"store"`
	PurchaseToken         string  `json:"purchase_token"`
	ProductID             string  `json:"product_id,omitempty"`
	Status                string  `json:"status"`
	StartDate             *string `json:"start_date"`
	EndDate               *string `json:"end_date"`
	LastVerifiedDate      string  `json:"last_verified_date,omitempty"`
	IsSandbox             bool    `json:"is_sandbox"`
	CanceledDatePeriodEnd bool    `json:"canceled_date_period_end"`
	CreatedAt             string  `json:"created_at,omitempty"`
}

// SubscriptionUpdate is the full normalized state written after a successful
// store verification. StartDate/EndDate are always sent so a stale period is
// cleared rather than left behind.
type SubscriptionUpdate struct {
	ProductID             string  `json:"product_id,omitempty"`
	Status                string  `json:"status"`
	StartDate             *string `json:"start_date"`
	EndDate               *string `json:"end_date"`
	LastVerifiedDate      string  `json:"last_verified_date"`
	IsSandbox             bool    `json:"is_sandbox"`
	CanceledDatePeriodEnd *bool   `json:"canceled_date_period_end,omitempty"`
}

// SubscriptionTouch is the partial write used on soft failures: the record
// keeps its dates but last_verified_date still advances.
type SubscriptionTouch struct {
	Status           string `json:"status,omitempty"`
	LastVerifiedDate string `json:"last_verified_date"`
	IsSandbox        *bool  `json:"is_sandbox,omitempty"`
}

// VerifyRequest is the body of POST /verify-subscription.
type VerifyRequest struct {
	UserID        string `json:"user_id"`
	PurchaseToken string `json:"purchase_token,omitempty"`
	ProductID     string `json:"product_id,omitempty"`
	Store         string `json:"store,omitempty"`
}

// VerifyResult is the response envelope of the reconciler. Soft failures are
// reported with OK=false and HTTP 200; hard upstream failures are mapped to
// 4xx/5xx by the handler.
type VerifyResult struct {
	OK        bool    `json:"ok"`
	Status    string  `json:"status,omitempty"`
	Active    *bool   `json:"active,omitempty"`
	IsSandbox *bool   `json:"is_sandbox,omitempty"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`
	Source    string  `json:"source,omitempty"`
	Reason    string  `json:"reason,omitempty"`
	Error     string  `json:"error,omitempty"`
	Detail    string  `json:"detail,omitempty"`
}

// BoolPtr is a small helper for the nullable flags above.
func BoolPtr(v bool) *bool { return &v }

// StringPtr mirrors BoolPtr for the nullable date fields.
func StringPtr(v string) *string { return &v }
