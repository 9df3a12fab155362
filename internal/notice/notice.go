// Package notice fans user-facing notices (toasts, chimes, staff alerts) out
// to pluggable channels without blocking the order store's critical path.
package notice

import (
	"context"
	"sync"
	"time"

	"ordersync/internal/core"
)

type Level string

const (
	Info    Level = "INFO"
	Warning Level = "WARNING"
	Error   Level = "ERROR"
)

// Kind separates audible chimes from transient toasts.
type Kind string

const (
	KindToast Kind = "toast"
	KindChime Kind = "chime"
)

type Notice struct {
	Kind      Kind
	Level     Level
	Title     string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// Channel delivers a notice to one surface (console, Telegram, a sound
// device).
type Channel interface {
	Send(ctx context.Context, n Notice) error
	Name() string
}

// Center broadcasts notices to all registered channels. Delivery is
// asynchronous with a per-channel timeout; a dead channel never stalls a
// mutation or a poll.
type Center struct {
	channels []Channel
	logger   core.Logger
	mu       sync.RWMutex
}

func NewCenter(logger core.Logger) *Center {
	return &Center{
		channels: make([]Channel, 0),
		logger:   logger.WithField("component", "notice_center"),
	}
}

func (c *Center) AddChannel(ch Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channels = append(c.channels, ch)
	c.logger.Info("Added notice channel", "name", ch.Name())
}

// Toast reports a recoverable failure to the UI boundary.
func (c *Center) Toast(ctx context.Context, level Level, title, message string, fields map[string]string) {
	c.publish(ctx, Notice{
		Kind:      KindToast,
		Level:     level,
		Title:     title,
		Message:   message,
		Timestamp: time.Now(),
		Fields:    fields,
	})
}

// Chime fires the audible alert for an order arriving at a notifiable status.
func (c *Center) Chime(ctx context.Context, orderID, status string) {
	c.publish(ctx, Notice{
		Kind:      KindChime,
		Level:     Info,
		Title:     "Order needs attention",
		Message:   "order " + orderID + " entered status " + status,
		Timestamp: time.Now(),
		Fields:    map[string]string{"order_id": orderID, "status": status},
	})
}

func (c *Center) publish(ctx context.Context, n Notice) {
	c.logger.Debug("Publishing notice", "kind", n.Kind, "title", n.Title, "level", n.Level)

	c.mu.RLock()
	channels := append([]Channel(nil), c.channels...)
	c.mu.RUnlock()

	for _, ch := range channels {
		go func(ch Channel) {
			timeoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()

			if err := ch.Send(timeoutCtx, n); err != nil {
				c.logger.Error("Failed to deliver notice", "channel", ch.Name(), "error", err)
			}
		}(ch)
	}
}
