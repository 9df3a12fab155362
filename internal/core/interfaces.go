// Package core defines the core types and interfaces for the order sync engine
package core

import (
	"context"
)

// Transport defines the interface to the remote order service. Implementations
// translate transport failures into the typed errors in pkg/errors.
type Transport interface {
	ListOrders(ctx context.Context) ([]*Order, error)
	CreateOrder(ctx context.Context, order *Order) (*Order, error)
	UpdateOrder(ctx context.Context, id string, patch OrderPatch) error
	DeleteOrder(ctx context.Context, id string) error
}

// CapabilityGate answers yes/no permission questions for an actor. Consumed,
// never implemented by the engine itself.
type CapabilityGate interface {
	HasPermission(actor *Actor, permission string) bool
}

// CapabilityGateFunc adapts a plain function to the CapabilityGate interface.
type CapabilityGateFunc func(actor *Actor, permission string) bool

func (f CapabilityGateFunc) HasPermission(actor *Actor, permission string) bool {
	return f(actor, permission)
}

// Confirmer represents the irreversible-action confirmation step that must
// run between an authorized delete and its transport call.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmerFunc adapts a plain function to the Confirmer interface.
type ConfirmerFunc func(ctx context.Context, prompt string) bool

func (f ConfirmerFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// RefreshFunc is a collaborator callback (inventory, ledger) invoked after
// completion-affecting mutations.
type RefreshFunc func(ctx context.Context)

// NotifyState remembers, per order, the last status an audible notification
// was fired for.
type NotifyState interface {
	LastNotified(orderID string) (string, bool)
	Record(orderID, status string) error
	Forget(orderID string) error
	Close() error
}

// Logger defines the interface for logging
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}
