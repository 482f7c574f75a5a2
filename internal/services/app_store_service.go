package services

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt"

	"wonmoreBack/internal/models"
)

const (
	appStoreProdBase    = "https://api.storekit.itunes.apple.com"
	appStoreSandboxBase = "https://api.storekit-sandbox.itunes.apple.com"

	verifyReceiptProdURL    = "https://buy.itunes.apple.com/verifyReceipt"
	verifyReceiptSandboxURL = "https://sandbox.itunes.apple.com/verifyReceipt"

	// "sandbox receipt used against production" on the legacy endpoint
	receiptStatusSandbox = 21007
)

var receiptShape = regexp.MustCompile(`^[A-Za-z0-9+/=\s]+$`)

type AppStoreConfig struct {
	IssuerID     string
	KeyID        string
	BundleID     string
	PrivateKey   string // .p8 PEM, literal "\n" sequences tolerated
	SharedSecret string // legacy verifyReceipt password

	// Optional overrides, used by tests to point the client at fake hosts.
	ProdBaseURL       string
	SandboxBaseURL    string
	ReceiptProdURL    string
	ReceiptSandboxURL string

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// AppStoreService talks to both generations of Apple's verification surface:
// the App Store Server API (ES256-signed JWT, JWS-encoded transactions) and
// the legacy verifyReceipt endpoint.
type AppStoreService struct {
	issuerID     string
	bundleID     string
	keyID        string
	sharedSecret string
	key          *ecdsa.PrivateKey

	prodBase       string
	sandboxBase    string
	receiptProd    string
	receiptSandbox string

	client *http.Client
	logger *slog.Logger
}

func NewAppStoreService(cfg AppStoreConfig) (*AppStoreService, error) {
	if strings.TrimSpace(cfg.IssuerID) == "" || strings.TrimSpace(cfg.KeyID) == "" || strings.TrimSpace(cfg.PrivateKey) == "" {
		return nil, fmt.Errorf("app store: issuer_id, key_id and private_key are required")
	}
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(normalizeP8(cfg.PrivateKey)))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &AppStoreService{
		issuerID:       strings.TrimSpace(cfg.IssuerID),
		bundleID:       strings.TrimSpace(cfg.BundleID),
		keyID:          strings.TrimSpace(cfg.KeyID),
		sharedSecret:   cfg.SharedSecret,
		key:            key,
		prodBase:       appStoreProdBase,
		sandboxBase:    appStoreSandboxBase,
		receiptProd:    verifyReceiptProdURL,
		receiptSandbox: verifyReceiptSandboxURL,
		client:         client,
		logger:         logger,
	}
	if cfg.ProdBaseURL != "" {
		s.prodBase = strings.TrimRight(cfg.ProdBaseURL, "/")
	}
	if cfg.SandboxBaseURL != "" {
		s.sandboxBase = strings.TrimRight(cfg.SandboxBaseURL, "/")
	}
	if cfg.ReceiptProdURL != "" {
		s.receiptProd = cfg.ReceiptProdURL
	}
	if cfg.ReceiptSandboxURL != "" {
		s.receiptSandbox = cfg.ReceiptSandboxURL
	}
	return s, nil
}

// normalizeP8 turns an env-var-mangled .p8 into parseable PEM: literal \n
// sequences become newlines, surrounding quotes and whitespace go away.
func normalizeP8(pem string) string {
	if strings.Contains(pem, `\n`) {
		pem = strings.ReplaceAll(pem, `\n`, "\n")
	}
	return strings.Trim(strings.TrimSpace(pem), `"`)
}

// signedToken mints the App Store Server API JWT. The bid claim is required
// by the current API and is always included.
func (s *AppStoreService) signedToken() (string, error) {
	now := time.Now().UTC()
	claims := jwt.MapClaims{
		"iss": s.issuerID,
		"iat": now.Add(-5 * time.Second).Unix(),
		"exp": now.Add(20 * time.Minute).Unix(),
		"aud": "appstoreconnect-v1",
		"bid": s.bundleID,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	t.Header["kid"] = s.keyID
	return t.SignedString(s.key)
}

// SubscriptionStatuses looks up all subscription transactions for an original
// transaction id, production first, retrying against sandbox on any failure
// (a sandbox purchase gets 401/404 from the production host). Each returned
// transaction is the decoded payload of Apple's JWS; the signature is not
// re-verified because the lookup itself is authenticated.
func (s *AppStoreService) SubscriptionStatuses(ctx context.Context, originalTransactionID string) ([]models.AppleTransactionPayload, bool, error) {
	token, err := s.signedToken()
	if err != nil {
		return nil, false, fmt.Errorf("sign asc jwt: %w", err)
	}

	candidates, err := s.fetchStatuses(ctx, s.prodBase, originalTransactionID, token)
	if err == nil {
		return candidates, false, nil
	}
	prodErr := err

	candidates, err = s.fetchStatuses(ctx, s.sandboxBase, originalTransactionID, token)
	if err != nil {
		return nil, false, prodErr
	}
	return candidates, true, nil
}

func (s *AppStoreService) fetchStatuses(ctx context.Context, base, otid, token string) ([]models.AppleTransactionPayload, error) {
	url := fmt.Sprintf("%s/inApps/v1/subscriptions/%s", base, otid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return nil, &StoreError{Source: "asc", StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(body))}
	}

	var payload struct {
		Data []struct {
			LastTransactions []struct {
				SignedTransactionInfo string `json:"signedTransactionInfo"`
				SignedRenewalInfo     string `json:"signedRenewalInfo"`
			} `json:"lastTransactions"`
		} `json:"data"`
		SignedTransactions []string `json:"signedTransactions"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode asc response: %w", err)
	}

	var candidates []models.AppleTransactionPayload
	for _, d := range payload.Data {
		for _, t := range d.LastTransactions {
			jws := t.SignedTransactionInfo
			if jws == "" {
				jws = t.SignedRenewalInfo
			}
			if jws == "" {
				continue
			}
			txn, err := decodeTransactionJWS(jws)
			if err != nil {
				s.logger.Warn("skip undecodable transaction", "op", "SubscriptionStatuses", "err", err)
				continue
			}
			candidates = append(candidates, txn)
		}
	}
	for _, jws := range payload.SignedTransactions {
		txn, err := decodeTransactionJWS(jws)
		if err != nil {
			continue
		}
		candidates = append(candidates, txn)
	}
	return candidates, nil
}

// decodeTransactionJWS extracts the payload of a compact JWS without
// verifying the signature chain.
func decodeTransactionJWS(token string) (models.AppleTransactionPayload, error) {
	jws, err := jose.ParseSigned(token, []jose.SignatureAlgorithm{jose.ES256})
	if err != nil {
		return models.AppleTransactionPayload{}, err
	}
	var txn models.AppleTransactionPayload
	if err := json.Unmarshal(jws.UnsafePayloadWithoutVerification(), &txn); err != nil {
		return models.AppleTransactionPayload{}, err
	}
	return txn, nil
}

// VerifyReceipt posts a base64 receipt to the legacy endpoint, production
// first. Status 21007 means the receipt is from the sandbox environment, so
// exactly one retry goes to the sandbox host.
func (s *AppStoreService) VerifyReceipt(ctx context.Context, receipt string) (models.AppleReceiptResponse, bool, error) {
	resp, err := s.postReceipt(ctx, s.receiptProd, receipt)
	if err != nil {
		return models.AppleReceiptResponse{}, false, err
	}
	if resp.Status != receiptStatusSandbox {
		return resp, false, nil
	}
	resp, err = s.postReceipt(ctx, s.receiptSandbox, receipt)
	if err != nil {
		return models.AppleReceiptResponse{}, true, err
	}
	return resp, true, nil
}

func (s *AppStoreService) postReceipt(ctx context.Context, url, receipt string) (models.AppleReceiptResponse, error) {
	body, _ := json.Marshal(map[string]any{
		"receipt-data":             receipt,
		"password":                 s.sharedSecret,
		"exclude-old-transactions": true,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return models.AppleReceiptResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.AppleReceiptResponse{}, fmt.Errorf("verifyReceipt request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return models.AppleReceiptResponse{}, &StoreError{Source: "apple", StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(b))}
	}
	var out models.AppleReceiptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.AppleReceiptResponse{}, fmt.Errorf("decode verifyReceipt: %w", err)
	}
	return out, nil
}

// LooksLikeReceipt reports whether a purchase token has the shape of a base64
// App Store receipt rather than a StoreKit2 JSON blob.
func LooksLikeReceipt(token string) bool {
	token = strings.TrimSpace(token)
	if token == "" || strings.HasPrefix(token, "{") {
		return false
	}
	return receiptShape.MatchString(token)
}

// SelectLatestTransaction filters StoreKit2 candidates by product id (when
// given) and returns the latest-expiring one.
func SelectLatestTransaction(candidates []models.AppleTransactionPayload, productID string) (models.AppleTransactionPayload, bool) {
	filtered := candidates
	if productID != "" {
		filtered = nil
		for _, c := range candidates {
			if c.ProductID == productID {
				filtered = append(filtered, c)
			}
		}
	}
	if len(filtered) == 0 {
		return models.AppleTransactionPayload{}, false
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return normalizeMillis(filtered[i].ExpiresDate) < normalizeMillis(filtered[j].ExpiresDate)
	})
	return filtered[len(filtered)-1], true
}

// SelectLatestReceipt picks the latest-expiring latest_receipt_info entry.
// Unlike the StoreKit2 path, an empty product filter falls back to the whole
// list: old receipts predate per-product tokens.
func SelectLatestReceipt(infos []models.AppleReceiptInfo, productID string) (models.AppleReceiptInfo, bool) {
	filtered := infos
	if productID != "" {
		filtered = nil
		for _, it := range infos {
			if it.ProductID == productID {
				filtered = append(filtered, it)
			}
		}
		if len(filtered) == 0 {
			filtered = infos
		}
	}
	if len(filtered) == 0 {
		return models.AppleReceiptInfo{}, false
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return receiptMillis(filtered[i].ExpiresDateMS) < receiptMillis(filtered[j].ExpiresDateMS)
	})
	return filtered[len(filtered)-1], true
}
