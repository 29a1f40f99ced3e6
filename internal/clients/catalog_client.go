// internal/clients/catalog_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"perknexus/internal/catalog"
)

// CatalogClient calls the coupon catalog service. Calls run through a
// circuit breaker so a struggling catalog fails fast instead of stalling
// the redemption path.
type CatalogClient struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewCatalogClient(baseURL string) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "catalog",
			Timeout: 15 * time.Second,
		}),
	}
}

func (c *CatalogClient) GetCoupon(ctx context.Context, id uuid.UUID) (*catalog.Coupon, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/coupons/%s", c.baseURL, id), nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if err := couponStatusError(resp.StatusCode); err != nil {
			return nil, err
		}

		var coupon catalog.Coupon
		if err := json.NewDecoder(resp.Body).Decode(&coupon); err != nil {
			return nil, err
		}
		return &coupon, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*catalog.Coupon), nil
}

func (c *CatalogClient) FindActiveByCode(ctx context.Context, businessID uuid.UUID, code string, at time.Time) (*catalog.Coupon, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		endpoint := fmt.Sprintf("%s/businesses/%s/codes/%s?at=%s",
			c.baseURL, businessID, url.PathEscape(code), url.QueryEscape(at.Format(time.RFC3339)))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if err := couponStatusError(resp.StatusCode); err != nil {
			return nil, err
		}

		var coupon catalog.Coupon
		if err := json.NewDecoder(resp.Body).Decode(&coupon); err != nil {
			return nil, err
		}
		return &coupon, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*catalog.Coupon), nil
}

func (c *CatalogClient) AdjustUsage(ctx context.Context, id uuid.UUID, delta int) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		body, err := json.Marshal(struct {
			Delta int `json:"delta"`
		}{Delta: delta})
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/coupons/%s/usage", c.baseURL, id), bytes.NewBuffer(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		return nil, couponStatusError(resp.StatusCode)
	})
	return err
}

// couponStatusError maps catalog HTTP statuses back onto the catalog's
// error variants so callers can use errors.Is across the service boundary.
func couponStatusError(status int) error {
	switch status {
	case http.StatusOK, http.StatusCreated:
		return nil
	case http.StatusNotFound:
		return catalog.ErrCouponNotFound
	case http.StatusGone:
		return catalog.ErrCouponExpired
	default:
		return fmt.Errorf("catalog service: unexpected status code %d", status)
	}
}
