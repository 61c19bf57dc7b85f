package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// RazorpayGateway talks to a Razorpay-compatible REST API with basic auth.
type RazorpayGateway struct {
	baseURL    string
	keyID      string
	secret     string
	unit       currency.Unit
	httpClient *http.Client
}

func NewRazorpayGateway(baseURL, keyID, secret, currencyCode string, timeout time.Duration) (*RazorpayGateway, error) {
	unit, err := currency.ParseISO(currencyCode)
	if err != nil {
		return nil, fmt.Errorf("currency.ParseISO[%s]: %w", currencyCode, err)
	}

	return &RazorpayGateway{
		baseURL:    baseURL,
		keyID:      keyID,
		secret:     secret,
		unit:       unit,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (g *RazorpayGateway) MinorUnits(amount decimal.Decimal) int64 {
	return toMinorUnits(amount, g.unit)
}

type razorpayOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type razorpayOrderResponse struct {
	ID string `json:"id"`
}

func (g *RazorpayGateway) OpenIntent(ctx context.Context, amount decimal.Decimal, receipt string) (string, error) {
	body, err := json.Marshal(razorpayOrderRequest{
		Amount:   g.MinorUnits(amount),
		Currency: g.unit.String(),
		Receipt:  receipt,
	})
	if err != nil {
		return "", fmt.Errorf("marshal order request: %w", err)
	}

	var out razorpayOrderResponse
	if err := g.do(ctx, http.MethodPost, "/orders", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("gateway returned an empty order id")
	}

	return out.ID, nil
}

func (g *RazorpayGateway) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	var p Payment
	if err := g.do(ctx, http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (g *RazorpayGateway) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("http.NewRequest: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.secret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("gateway %s %s returned status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}

// toMinorUnits scales amount by the currency's standard number of decimals.
func toMinorUnits(amount decimal.Decimal, unit currency.Unit) int64 {
	scale, _ := currency.Standard.Rounding(unit)
	return amount.Shift(int32(scale)).Round(0).IntPart()
}
