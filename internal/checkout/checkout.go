package checkout

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	KeyID     string `json:"key_id" mapstructure:"key_id"`
	KeySecret string `json:"key_secret" mapstructure:"key_secret"`

	// BaseURL is the provider API root used to create orders.
	BaseURL string `json:"base_url" mapstructure:"base_url"`

	// ScriptURL is the hosted checkout script the browser widget loads.
	ScriptURL string `json:"script_url" mapstructure:"script_url"`

	DisplayName        string `json:"display_name" mapstructure:"display_name"`
	DisplayDescription string `json:"display_description" mapstructure:"display_description"`
	ThemeColor         string `json:"theme_color" mapstructure:"theme_color"`
	Currency           string `json:"currency" mapstructure:"currency"`
}

// Prefill is the customer data shown in the hosted dialog.
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// Options parameterize one opening of the hosted checkout dialog.
// Amount is in minor units.
type Options struct {
	Amount      decimal.Decimal   `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Prefill     Prefill           `json:"prefill"`
	ThemeColor  string            `json:"theme_color"`
	Receipt     string            `json:"receipt"`
	Notes       map[string]string `json:"notes,omitempty"`
}

// Session is the provider order the widget opens against.
type Session struct {
	OrderID     string          `json:"order_id"`
	KeyID       string          `json:"key"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Prefill     Prefill         `json:"prefill"`
	ThemeColor  string          `json:"theme_color"`
	ScriptURL   string          `json:"script_url"`
}

// PaymentResponse is the success callback payload of the widget.
type PaymentResponse struct {
	PaymentID string `json:"razorpay_payment_id"`
	OrderID   string `json:"razorpay_order_id,omitempty"`
	Signature string `json:"razorpay_signature,omitempty"`
}

// Client talks to the checkout provider backend. Obtain one through a
// Loader so the shared handle is initialized exactly once.
type Client struct {
	keyID     string
	keySecret string
	baseURL   string
	scriptURL string

	// hc is the http client.
	hc *http.Client
}

func newClient(cfg *Config, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		keyID:     cfg.KeyID,
		keySecret: cfg.KeySecret,
		baseURL:   cfg.BaseURL,
		scriptURL: cfg.ScriptURL,
		hc:        hc,
	}
}

// MinorUnits converts a major-unit integer price to provider minor
// units (price * 100). Exact for integer prices.
func MinorUnits(price int) decimal.Decimal {
	return decimal.NewFromInt(int64(price)).Mul(decimal.NewFromInt(100))
}

// Open creates a provider order for opts and returns the session the
// hosted widget opens with. The dialog itself is user-paced; the only
// suspension point back into the service is the success callback.
func (c *Client) Open(ctx context.Context, opts *Options) (*Session, error) {
	reqBody := struct {
		Amount   decimal.Decimal   `json:"amount"`
		Currency string            `json:"currency"`
		Receipt  string            `json:"receipt,omitempty"`
		Notes    map[string]string `json:"notes,omitempty"`
	}{
		Amount:   opts.Amount,
		Currency: opts.Currency,
		Receipt:  opts.Receipt,
		Notes:    opts.Notes,
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("checkout.Open: json.Marshal: %w", err)
	}
	body := bytes.NewBuffer(b)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/v1/orders", c.baseURL), body)
	if err != nil {
		return nil, fmt.Errorf("checkout.Open: http.NewRequestWithContext: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checkout.Open: hc.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		rbody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("checkout.Open: resp.StatusCode: %d, resp.Body: %s", resp.StatusCode, rbody)
	}

	var reply struct {
		ID       string          `json:"id"`
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
		Status   string          `json:"status"`
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(&reply); err != nil {
		return nil, fmt.Errorf("checkout.Open: json.Decode: %w", err)
	}

	return &Session{
		OrderID:     reply.ID,
		KeyID:       c.keyID,
		Amount:      opts.Amount,
		Currency:    opts.Currency,
		Name:        opts.Name,
		Description: opts.Description,
		Prefill:     opts.Prefill,
		ThemeColor:  opts.ThemeColor,
		ScriptURL:   c.scriptURL,
	}, nil
}

// VerifySignature checks the provider signature over orderID|paymentID.
// A response without order id or signature (widgets configured without
// an order) is accepted as-is.
func (c *Client) VerifySignature(resp *PaymentResponse) bool {
	if resp.OrderID == "" || resp.Signature == "" {
		return true
	}
	expected := hmac256([]byte(c.keySecret), []byte(resp.OrderID+"|"+resp.PaymentID))
	return hmac.Equal([]byte(resp.Signature), []byte(expected))
}

func hmac256(key, data []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CompareOpsToken compares a plaintext ops token against its stored
// bcrypt hash.
func CompareOpsToken(hash, token string) bool {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(token)); err != nil {
		return false
	}
	return true
}
