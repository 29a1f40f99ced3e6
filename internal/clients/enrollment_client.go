// internal/clients/enrollment_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"perknexus/internal/enrollment"
)

// EnrollmentClient calls the enrollment service for the customer-aggregate
// side effects of a redemption.
type EnrollmentClient struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

func NewEnrollmentClient(baseURL string) *EnrollmentClient {
	return &EnrollmentClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "enrollment",
			Timeout: 15 * time.Second,
		}),
	}
}

// RecordVisit stamps lastVisit and bumps totalVisits for the customer.
func (c *EnrollmentClient) RecordVisit(ctx context.Context, customerID, businessID uuid.UUID) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		body, err := json.Marshal(struct {
			BusinessID uuid.UUID `json:"business_id"`
		}{BusinessID: businessID})
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/customers/%s/visits", c.baseURL, customerID), bytes.NewBuffer(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("enrollment service: unexpected status code %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}

// GetCustomer retrieves a business-scoped customer record.
func (c *EnrollmentClient) GetCustomer(ctx context.Context, customerID, businessID uuid.UUID) (*enrollment.Customer, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		endpoint := fmt.Sprintf("%s/businesses/%s/customers/%s", c.baseURL, businessID, customerID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusOK:
		case http.StatusNotFound:
			return nil, enrollment.ErrCustomerNotFound
		default:
			return nil, fmt.Errorf("enrollment service: unexpected status code %d", resp.StatusCode)
		}

		var customer enrollment.Customer
		if err := json.NewDecoder(resp.Body).Decode(&customer); err != nil {
			return nil, err
		}
		return &customer, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(*enrollment.Customer), nil
}
