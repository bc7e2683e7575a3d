package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Paystack REST API: card checkout initialization for
// wallet top-ups and the transfers API for bank payouts. It only carries the
// thin HTTP surface the ledger needs; gateway semantics stay on Paystack's side.
type Client struct {
	BaseURL    string
	SecretKey  string
	HTTPClient *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	return &Client{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type initializeRequest struct {
	Email       string `json:"email"`
	Amount      int64  `json:"amount"` // kobo
	Reference   string `json:"reference"`
	CallbackURL string `json:"callback_url,omitempty"`
	Currency    string `json:"currency"`
}

// Checkout is the hosted-payment handle returned by transaction initialization.
type Checkout struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type transferRequest struct {
	Source    string `json:"source"`
	Amount    int64  `json:"amount"` // kobo
	Reference string `json:"reference"`
	Recipient string `json:"recipient"`
	Reason    string `json:"reason,omitempty"`
}

type recipientRequest struct {
	Type          string `json:"type"`
	Name          string `json:"name"`
	AccountNumber string `json:"account_number"`
	BankCode      string `json:"bank_code"`
	Currency      string `json:"currency"`
}

// Transfer is the state of a payout as reported by Paystack.
type Transfer struct {
	TransferCode string `json:"transfer_code"`
	Reference    string `json:"reference"`
	Status       string `json:"status"` // pending, success, failed, reversed
	Amount       int64  `json:"amount"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError is a non-2xx or status=false response from Paystack.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack api error (%d): %s", e.StatusCode, e.Message)
}

// InitializeTransaction creates a hosted checkout for a card top-up. The
// reference is the ledger's idempotency key; the charge.success webhook
// echoes it back so the credit correlates with this initialization.
func (c *Client) InitializeTransaction(ctx context.Context, email string, amountKobo int64, reference, callbackURL string) (*Checkout, error) {
	payload := initializeRequest{
		Email:       email,
		Amount:      amountKobo,
		Reference:   reference,
		CallbackURL: callbackURL,
		Currency:    "NGN",
	}

	var checkout Checkout
	if err := c.post(ctx, "/transaction/initialize", payload, &checkout); err != nil {
		return nil, err
	}
	return &checkout, nil
}

// CreateRecipient registers a bank account as a transfer recipient and
// returns its recipient code.
func (c *Client) CreateRecipient(ctx context.Context, name, accountNumber, bankCode string) (string, error) {
	payload := recipientRequest{
		Type:          "nuban",
		Name:          name,
		AccountNumber: accountNumber,
		BankCode:      bankCode,
		Currency:      "NGN",
	}

	var data struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := c.post(ctx, "/transferrecipient", payload, &data); err != nil {
		return "", err
	}
	return data.RecipientCode, nil
}

// InitiateTransfer starts a bank payout for a withdrawal request.
func (c *Client) InitiateTransfer(ctx context.Context, recipientCode string, amountKobo int64, reference, reason string) (*Transfer, error) {
	payload := transferRequest{
		Source:    "balance",
		Amount:    amountKobo,
		Reference: reference,
		Recipient: recipientCode,
		Reason:    reason,
	}

	var transfer Transfer
	if err := c.post(ctx, "/transfer", payload, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// VerifyTransfer fetches the current payout state by ledger reference. The
// reconciliation sweep uses this to finalize long-pending withdrawals.
func (c *Client) VerifyTransfer(ctx context.Context, reference string) (*Transfer, error) {
	var transfer Transfer
	if err := c.get(ctx, "/transfer/verify/"+reference, &transfer); err != nil {
		return nil, err
	}
	return &transfer, nil
}

// VerifySignature checks the x-paystack-signature webhook header, an
// HMAC-SHA512 of the raw body keyed by the secret key.
func (c *Client) VerifySignature(body []byte, signature string) bool {
	mac := hmac.New(sha512.New, []byte(c.SecretKey))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(body), out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "malformed response body"}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Status {
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}

	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode paystack response: %w", err)
		}
	}
	return nil
}
