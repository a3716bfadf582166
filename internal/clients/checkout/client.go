// Package checkout talks to the payment provider that hosts wallet top-up
// checkouts and verifies the webhooks it sends back.
package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fastprodman/creatorledger/internal/apperr"
)

type Config struct {
	BaseURL   string
	APIKey    string
	CompanyID string
	Timeout   time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{cfg: cfg, http: &http.Client{Timeout: timeout}}
}

type CreateRequest struct {
	HolderID    string
	ActorID     string
	Amount      int64 // minor units
	Currency    string
	RedirectURL string
}

type Checkout struct {
	ID  string `json:"checkoutId"`
	URL string `json:"checkoutUrl"`
}

type createBody struct {
	CompanyID   string            `json:"company_id"`
	Mode        string            `json:"mode"`
	Currency    string            `json:"currency"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Metadata    map[string]string `json:"metadata"`
}

type createResponse struct {
	ID          string `json:"id"`
	PurchaseURL string `json:"purchase_url"`
	URL         string `json:"url"`
	CheckoutURL string `json:"checkout_url"`
}

// CreateCheckout opens a hosted payment checkout for a wallet top-up. The
// holder and amount travel in the checkout metadata and come back on the
// webhook.
func (c *Client) CreateCheckout(ctx context.Context, req CreateRequest) (Checkout, error) {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = "usd"
	}

	b, err := json.Marshal(createBody{
		CompanyID:   c.cfg.CompanyID,
		Mode:        "payment",
		Currency:    currency,
		RedirectURL: req.RedirectURL,
		Metadata: map[string]string{
			MetaHolderID: req.HolderID,
			MetaActorID:  req.ActorID,
			MetaAmount:   strconv.FormatInt(req.Amount, 10),
			"purpose":    "wallet_topup",
		},
	})
	if err != nil {
		return Checkout{}, fmt.Errorf("encode checkout: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/checkout_configurations", bytes.NewReader(b))
	if err != nil {
		return Checkout{}, fmt.Errorf("build checkout request: %w", err)
	}

	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Checkout{}, fmt.Errorf("create checkout: %w: %w", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Checkout{}, fmt.Errorf("read checkout response: %w: %w", apperr.ErrUpstream, err)
	}

	if resp.StatusCode >= 300 {
		return Checkout{}, fmt.Errorf("create checkout: provider returned %s: %w", resp.Status, apperr.ErrUpstream)
	}

	var out createResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return Checkout{}, fmt.Errorf("decode checkout response: %w: %w", apperr.ErrUpstream, err)
	}

	if out.ID == "" {
		return Checkout{}, fmt.Errorf("create checkout: empty checkout id: %w", apperr.ErrUpstream)
	}

	url := out.PurchaseURL
	if url == "" {
		url = out.URL
	}
	if url == "" {
		url = out.CheckoutURL
	}

	return Checkout{ID: out.ID, URL: url}, nil
}
