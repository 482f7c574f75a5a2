package models

// GoogleSubscription is the normalized result of a Play Developer API
// subscriptions-v2 lookup: the raw store state plus the canonical mapping.
type GoogleSubscription struct {
	ProductID            string
	SubscriptionState    string
	AcknowledgementState string
	Status               string
	CanceledPeriodEnd    bool
	StartDate            *string
	EndDate              *string
	IsSandbox            bool
	Raw                  string
}
