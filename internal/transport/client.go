// Package transport implements the client for the remote order service.
package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"ordersync/internal/core"
	apperrors "ordersync/pkg/errors"
	pkghttp "ordersync/pkg/http"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// listEnvelope is the List response shape of the order service.
type listEnvelope struct {
	Success bool          `json:"success"`
	Orders  []*core.Order `json:"orders"`
	Error   string        `json:"error,omitempty"`
}

// orderEnvelope is the Create response shape.
type orderEnvelope struct {
	Success bool        `json:"success"`
	Order   *core.Order `json:"order,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ackEnvelope is the Update/Delete response shape.
type ackEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type updateRequest struct {
	OrderID string          `json:"orderId"`
	Payload core.OrderPatch `json:"payload"`
}

type deleteRequest struct {
	ID string `json:"id"`
}

// tokenSigner attaches the bearer token and a correlation ID to each request.
type tokenSigner struct {
	token string
}

func (s *tokenSigner) SignRequest(req *http.Request) error {
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())
	return nil
}

// Client implements core.Transport over the resilient HTTP client. Write
// calls share a rate limiter so a misbehaving surface cannot flood the
// backend with mutations.
type Client struct {
	http    *pkghttp.Client
	logger  core.Logger
	limiter *rate.Limiter
}

// NewClient creates an order service client.
func NewClient(baseURL, apiToken string, timeout time.Duration, logger core.Logger) *Client {
	return &Client{
		http:    pkghttp.NewClient(baseURL, timeout, &tokenSigner{token: apiToken}),
		logger:  logger.WithField("component", "order_client"),
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// ListOrders fetches the full order collection visible to the actor.
func (c *Client) ListOrders(ctx context.Context) ([]*core.Order, error) {
	body, err := c.http.Get(ctx, "/orders", nil)
	if err != nil {
		return nil, c.translate("list", err)
	}

	var env listEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed list response: %v", apperrors.ErrBackendRejected, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrBackendRejected, env.Error)
	}
	return env.Orders, nil
}

// CreateOrder submits a complete draft (pre-assigned ID included) and
// returns the server-confirmed order.
func (c *Client) CreateOrder(ctx context.Context, order *core.Order) (*core.Order, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	body, err := c.http.Post(ctx, "/orders", order)
	if err != nil {
		return nil, c.translate("create", err)
	}

	var env orderEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: malformed create response: %v", apperrors.ErrBackendRejected, err)
	}
	if !env.Success {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrBackendRejected, env.Error)
	}
	if env.Order == nil {
		// Server confirmed but normalized nothing; echo the submitted order.
		return order, nil
	}
	return env.Order, nil
}

// UpdateOrder sends a partial payload for the given order ID.
func (c *Client) UpdateOrder(ctx context.Context, id string, patch core.OrderPatch) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}

	body, err := c.http.Put(ctx, "/orders/"+id, updateRequest{OrderID: id, Payload: patch})
	if err != nil {
		return c.translate("update", err)
	}

	var env ackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: malformed update response: %v", apperrors.ErrBackendRejected, err)
	}
	if !env.Success {
		// Application-level failure flag counts as a rejection even on 200.
		return fmt.Errorf("%w: %s", apperrors.ErrBackendRejected, env.Error)
	}
	return nil
}

// DeleteOrder permanently removes an order.
func (c *Client) DeleteOrder(ctx context.Context, id string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}

	body, err := c.http.Delete(ctx, "/orders/"+id, deleteRequest{ID: id})
	if err != nil {
		return c.translate("delete", err)
	}

	var env ackEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: malformed delete response: %v", apperrors.ErrBackendRejected, err)
	}
	if !env.Success {
		return fmt.Errorf("%w: %s", apperrors.ErrBackendRejected, env.Error)
	}
	return nil
}

// translate maps low-level HTTP failures onto the transport error taxonomy.
func (c *Client) translate(op string, err error) error {
	var apiErr *pkghttp.APIError
	if errors.As(err, &apiErr) {
		c.logger.Warn("Order service rejected request",
			"op", op,
			"status", apiErr.StatusCode)
		if apiErr.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", apperrors.ErrOrderNotFound, err)
		}
		return fmt.Errorf("%w: %v", apperrors.ErrBackendRejected, err)
	}

	c.logger.Warn("Order service unreachable", "op", op, "error", err.Error())
	return fmt.Errorf("%w: %v", apperrors.ErrNetwork, err)
}
