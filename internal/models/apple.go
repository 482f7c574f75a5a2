package models

import "strings"

// StoreKitToken is the JSON-shaped purchase token the iOS client uploads
// after a StoreKit2 purchase. Older clients sent camelCase, the Flutter
// bridge sends snake_case, so both spellings are accepted.
type StoreKitToken struct {
	OriginalTransactionID      string `json:"originalTransactionId"`
	OriginalTransactionIDSnake string `json:"original_transaction_id"`
	ProductID                  string `json:"productId"`
	ProductIDSnake             string `json:"product_id"`
}

// OriginalTransaction returns the original transaction id regardless of the
// spelling the client used.
func (t StoreKitToken) OriginalTransaction() string {
	if v := strings.TrimSpace(t.OriginalTransactionID); v != "" {
		return v
	}
	return strings.TrimSpace(t.OriginalTransactionIDSnake)
}

// Product returns the product id regardless of the spelling the client used.
func (t StoreKitToken) Product() string {
	if v := strings.TrimSpace(t.ProductID); v != "" {
		return v
	}
	return strings.TrimSpace(t.ProductIDSnake)
}

// AppleTransactionPayload is the decoded payload of a signedTransactionInfo
// JWS returned by the App Store Server API. Timestamps are millisecond epochs.
type AppleTransactionPayload struct {
	TransactionID         string `json:"transactionId"`
	OriginalTransactionID string `json:"originalTransactionId"`
	ProductID             string `json:"productId"`
	BundleID              string `json:"bundleId"`
	PurchaseDate          int64  `json:"purchaseDate,omitempty"`
	OriginalPurchaseDate  int64  `json:"originalPurchaseDate,omitempty"`
	SignedDate            int64  `json:"signedDate,omitempty"`
	ExpiresDate           int64  `json:"expiresDate,omitempty"`
	RevocationDate        int64  `json:"revocationDate,omitempty"`
	RevocationReason      *int   `json:"revocationReason,omitempty"`
	Environment           string `json:"environment,omitempty"`
}

// Revoked reports whether Apple has refunded or revoked the transaction.
func (p AppleTransactionPayload) Revoked() bool {
	return p.RevocationDate > 0 || p.RevocationReason != nil
}

// AppleReceiptResponse is the verifyReceipt response of the legacy endpoint.
// Status 0 means success; 21007 means a sandbox receipt was sent to the
// production host and the call must be retried against the sandbox host.
type AppleReceiptResponse struct {
	Status            int                `json:"status"`
	Environment       string             `json:"environment,omitempty"`
	LatestReceiptInfo []AppleReceiptInfo `json:"latest_receipt_info,omitempty"`
}

// AppleReceiptInfo is one entry of latest_receipt_info. The legacy endpoint
// reports millisecond epochs as decimal strings.
type AppleReceiptInfo struct {
	ProductID              string `json:"product_id"`
	TransactionID          string `json:"transaction_id,omitempty"`
	OriginalTransactionID  string `json:"original_transaction_id,omitempty"`
	PurchaseDateMS         string `json:"purchase_date_ms,omitempty"`
	OriginalPurchaseDateMS string `json:"original_purchase_date_ms,omitempty"`
	ExpiresDateMS          string `json:"expires_date_ms,omitempty"`
	CancellationDateMS     string `json:"cancellation_date_ms,omitempty"`
}
