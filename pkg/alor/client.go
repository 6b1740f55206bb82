package alor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// Sign maps buy to +1 and sell to -1.
func (s Side) Sign() int64 {
	if s == SideBuy {
		return 1
	}
	return -1
}

// OrderAck is the venue acknowledgement for a submitted market order.
// Price is zero when the order was accepted but a fill was not yet observed
// within the status-poll budget.
type OrderAck struct {
	OrderID string
	Price   float64
	Filled  bool
}

// Summary is the portfolio snapshot used for balance reports.
type Summary struct {
	Portfolio      string
	PortfolioValue float64
	BuyingPower    float64
	Profit         float64
	ProfitRate     float64
}

// Config holds Alor credentials and routing.
type Config struct {
	BaseURL      string // default https://api.alor.ru
	OAuthURL     string // default https://oauth.alor.ru
	RefreshToken string
	ClientID     string
	ClientSecret string
	Portfolio    string // e.g. 7502QAB
	Exchange     string // default MOEX
}

// Client talks to the Alor REST API: market orders, order status, live
// positions and portfolio summary.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tokens     *TokenSource
	limiter    *rate.Limiter

	statusPollEvery time.Duration
	statusPollMax   int
}

// New creates an Alor client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.alor.ru"
	}
	if cfg.OAuthURL == "" {
		cfg.OAuthURL = "https://oauth.alor.ru"
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "MOEX"
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}
	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		tokens:     NewTokenSource(cfg.OAuthURL, cfg.RefreshToken, cfg.ClientID, cfg.ClientSecret, httpClient),
		// Alor allows 40 req/s per account; stay well under it.
		limiter:         rate.NewLimiter(rate.Limit(10), 20),
		statusPollEvery: 500 * time.Millisecond,
		statusPollMax:   20,
	}
}

func (c *Client) do(ctx context.Context, op string, req *http.Request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusUnauthorized {
		// Token may have been revoked early; force a refresh for the next call.
		c.tokens.Invalidate()
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newAPIError(op, resp.StatusCode, string(body))
	}
	return body, nil
}

// PlaceMarketOrder submits a market order and polls its status until it
// fills, is rejected, or the poll budget runs out. A still-working order is
// returned as an unfilled ack; callers confirm via the live position.
func (c *Client) PlaceMarketOrder(ctx context.Context, symbol string, side Side, qty int64) (OrderAck, error) {
	payload := map[string]any{
		"side":     string(side),
		"quantity": qty,
		"instrument": map[string]string{
			"symbol":   symbol,
			"exchange": c.cfg.Exchange,
		},
		"user": map[string]string{
			"portfolio": c.cfg.Portfolio,
		},
		"timeInForce":     "Day",
		"allowMargin":     false,
		"checkDuplicates": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return OrderAck{}, fmt.Errorf("marshal order: %w", err)
	}

	url := c.cfg.BaseURL + "/commandapi/warptrans/TRADE/v2/client/orders/actions/market"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return OrderAck{}, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-REQID", uuid.NewString())

	respBody, err := c.do(ctx, "place market order", req)
	if err != nil {
		return OrderAck{}, err
	}

	var ack struct {
		OrderNumber string `json:"orderNumber"`
	}
	if err := json.Unmarshal(respBody, &ack); err != nil || ack.OrderNumber == "" {
		return OrderAck{}, &Error{Op: "place market order", StatusCode: http.StatusOK,
			Message: "response without orderNumber: " + string(respBody)}
	}

	return c.waitForFill(ctx, ack.OrderNumber)
}

func (c *Client) waitForFill(ctx context.Context, orderID string) (OrderAck, error) {
	for i := 0; i < c.statusPollMax; i++ {
		st, err := c.OrderStatus(ctx, orderID)
		if err != nil {
			return OrderAck{}, err
		}
		switch st.Status {
		case "filled":
			return OrderAck{OrderID: orderID, Price: st.Price, Filled: true}, nil
		case "rejected", "canceled", "cancelled":
			return OrderAck{}, &Error{Op: "order status", Message: "order " + orderID + " " + st.Status}
		}

		select {
		case <-ctx.Done():
			return OrderAck{}, ctx.Err()
		case <-time.After(c.statusPollEvery):
		}
	}
	// Accepted but not observed filled yet.
	return OrderAck{OrderID: orderID}, nil
}

// OrderState is the subset of the order record we care about.
type OrderState struct {
	Status string
	Price  float64
}

// OrderStatus fetches the current state of an order.
func (c *Client) OrderStatus(ctx context.Context, orderID string) (OrderState, error) {
	url := c.cfg.BaseURL + "/commandapi/warptrans/TRADE/v2/client/orders/" + orderID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return OrderState{}, fmt.Errorf("build status request: %w", err)
	}
	body, err := c.do(ctx, "order status", req)
	if err != nil {
		return OrderState{}, err
	}

	var raw struct {
		Status      string  `json:"status"`
		FilledPrice float64 `json:"filledPrice"`
		Price       float64 `json:"price"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return OrderState{}, fmt.Errorf("decode order status: %w", err)
	}
	price := raw.FilledPrice
	if price == 0 {
		price = raw.Price
	}
	return OrderState{Status: raw.Status, Price: price}, nil
}

// Position returns the live signed contract quantity for an instrument.
// A missing position record means flat.
func (c *Client) Position(ctx context.Context, symbol string) (int64, error) {
	url := fmt.Sprintf("%s/md/v2/Clients/%s/%s/positions/%s",
		c.cfg.BaseURL, c.cfg.Exchange, c.cfg.Portfolio, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build position request: %w", err)
	}
	body, err := c.do(ctx, "get position", req)
	if err != nil {
		var ae *Error
		if errors.As(err, &ae) && ae.StatusCode == http.StatusNotFound {
			return 0, nil
		}
		return 0, err
	}

	var raw struct {
		QtyUnits float64 `json:"qtyUnits"`
		Qty      float64 `json:"qty"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return 0, fmt.Errorf("decode position: %w", err)
	}
	if raw.QtyUnits != 0 {
		return int64(raw.QtyUnits), nil
	}
	return int64(raw.Qty), nil
}

// GetSummary returns the portfolio valuation used for balance reports.
func (c *Client) GetSummary(ctx context.Context) (Summary, error) {
	url := fmt.Sprintf("%s/md/v2/Clients/%s/%s/summary",
		c.cfg.BaseURL, c.cfg.Exchange, c.cfg.Portfolio)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("build summary request: %w", err)
	}
	body, err := c.do(ctx, "get summary", req)
	if err != nil {
		return Summary{}, err
	}

	var raw struct {
		PortfolioEvaluation float64 `json:"portfolioEvaluation"`
		BuyingPower         float64 `json:"buyingPower"`
		Profit              float64 `json:"profit"`
		ProfitRate          float64 `json:"profitRate"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Summary{}, fmt.Errorf("decode summary: %w", err)
	}
	return Summary{
		Portfolio:      c.cfg.Portfolio,
		PortfolioValue: raw.PortfolioEvaluation,
		BuyingPower:    raw.BuyingPower,
		Profit:         raw.Profit,
		ProfitRate:     raw.ProfitRate,
	}, nil
}
