package services

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"
)

// CollectionRequest holds the correlation ids the gateway assigns to an STK
// push so the eventual callback can be matched back to its payment.
type CollectionRequest struct {
	MerchantRequestID string `json:"merchantRequestID"`
	CheckoutRequestID string `json:"checkoutRequestID"`
}

// GatewayStatus is the result of a synchronous status poll.
type GatewayStatus struct {
	ResultCode int    `json:"resultCode"`
	ResultDesc string `json:"resultDesc"`
}

// GatewayCallback is the asynchronous confirmation delivered by the gateway
// after the customer approves or rejects the charge on their handset.
type GatewayCallback struct {
	TransactionID     string `json:"transactionID"`
	ReceiptNumber     string `json:"receiptNumber"`
	PhoneNumber       string `json:"phoneNumber"`
	Amount            int64  `json:"amount"`
	CheckoutRequestID string `json:"checkoutRequestID"`
	MerchantRequestID string `json:"merchantRequestID"`
	ResultCode        int    `json:"resultCode"`
	ResultDesc        string `json:"resultDesc"`
}

// PaymentGateway is the narrow contract the payment service depends on.
// Implementations must not mutate payment records; reconciliation is the
// payment service's job.
type PaymentGateway interface {
	RequestCollection(phoneNumber string, amount int64, accountReference, description string) (*CollectionRequest, error)
	QueryStatus(checkoutRequestID string) (*GatewayStatus, error)
}

// DarajaGateway collects via Safaricom's Daraja STK-push API.
type DarajaGateway struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	ShortCode      string
	Passkey        string
	CallbackURL    string

	client *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewDarajaGatewayFromEnv builds a gateway from DARAJA_* environment
// variables. Missing credentials panic at startup rather than at the first
// collection attempt.
func NewDarajaGatewayFromEnv() *DarajaGateway {
	g := &DarajaGateway{
		BaseURL:        os.Getenv("DARAJA_BASE_URL"),
		ConsumerKey:    os.Getenv("DARAJA_CONSUMER_KEY"),
		ConsumerSecret: os.Getenv("DARAJA_CONSUMER_SECRET"),
		ShortCode:      os.Getenv("DARAJA_SHORTCODE"),
		Passkey:        os.Getenv("DARAJA_PASSKEY"),
		CallbackURL:    os.Getenv("DARAJA_CALLBACK_URL"),
		client:         &http.Client{Timeout: 30 * time.Second},
	}
	if g.BaseURL == "" {
		g.BaseURL = "https://sandbox.safaricom.co.ke"
	}
	if g.ConsumerKey == "" || g.ConsumerSecret == "" || g.ShortCode == "" || g.Passkey == "" {
		log.Panic("DARAJA_CONSUMER_KEY, DARAJA_CONSUMER_SECRET, DARAJA_SHORTCODE and DARAJA_PASSKEY are required")
	}
	return g
}

func (g *DarajaGateway) token() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.accessToken != "" && time.Now().Before(g.tokenExpiry) {
		return g.accessToken, nil
	}

	req, err := http.NewRequest(http.MethodGet, g.BaseURL+"/oauth/v1/generate?grant_type=client_credentials", nil)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(g.ConsumerKey, g.ConsumerSecret)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: oauth request: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: oauth status %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   string `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: oauth decode: %v", ErrGatewayUnavailable, err)
	}

	ttl := 3600
	if n, err := strconv.Atoi(body.ExpiresIn); err == nil && n > 0 {
		ttl = n
	}
	g.accessToken = body.AccessToken
	// Refresh a minute early so in-flight requests never carry a stale token.
	g.tokenExpiry = time.Now().Add(time.Duration(ttl-60) * time.Second)
	return g.accessToken, nil
}

func (g *DarajaGateway) password(timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(g.ShortCode + g.Passkey + timestamp))
}

func (g *DarajaGateway) post(path string, payload interface{}, out interface{}) error {
	token, err := g.token()
	if err != nil {
		return err
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, g.BaseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode: %v", ErrGatewayUnavailable, err)
	}
	return nil
}

func (g *DarajaGateway) RequestCollection(phoneNumber string, amount int64, accountReference, description string) (*CollectionRequest, error) {
	timestamp := time.Now().Format("20060102150405")
	payload := map[string]interface{}{
		"BusinessShortCode": g.ShortCode,
		"Password":          g.password(timestamp),
		"Timestamp":         timestamp,
		"TransactionType":   "CustomerPayBillOnline",
		"Amount":            amount,
		"PartyA":            phoneNumber,
		"PartyB":            g.ShortCode,
		"PhoneNumber":       phoneNumber,
		"CallBackURL":       g.CallbackURL,
		"AccountReference":  accountReference,
		"TransactionDesc":   description,
	}

	var body struct {
		MerchantRequestID   string `json:"MerchantRequestID"`
		CheckoutRequestID   string `json:"CheckoutRequestID"`
		ResponseCode        string `json:"ResponseCode"`
		ResponseDescription string `json:"ResponseDescription"`
	}
	if err := g.post("/mpesa/stkpush/v1/processrequest", payload, &body); err != nil {
		return nil, err
	}
	if body.ResponseCode != "0" {
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, body.ResponseDescription)
	}
	return &CollectionRequest{MerchantRequestID: body.MerchantRequestID, CheckoutRequestID: body.CheckoutRequestID}, nil
}

func (g *DarajaGateway) QueryStatus(checkoutRequestID string) (*GatewayStatus, error) {
	timestamp := time.Now().Format("20060102150405")
	payload := map[string]interface{}{
		"BusinessShortCode": g.ShortCode,
		"Password":          g.password(timestamp),
		"Timestamp":         timestamp,
		"CheckoutRequestID": checkoutRequestID,
	}

	var body struct {
		ResultCode string `json:"ResultCode"`
		ResultDesc string `json:"ResultDesc"`
	}
	if err := g.post("/mpesa/stkpushquery/v1/query", payload, &body); err != nil {
		return nil, err
	}
	code, err := strconv.Atoi(body.ResultCode)
	if err != nil {
		return nil, fmt.Errorf("%w: unparsable result code %q", ErrGatewayUnavailable, body.ResultCode)
	}
	return &GatewayStatus{ResultCode: code, ResultDesc: body.ResultDesc}, nil
}
