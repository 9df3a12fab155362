package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderType tags how an order is fulfilled.
type OrderType string

const (
	OrderTypeDineIn   OrderType = "dine_in"
	OrderTypeTakeaway OrderType = "takeaway"
	OrderTypeDelivery OrderType = "delivery"
)

// Permission names consumed through the capability gate.
const (
	PermDeleteOrders = "orders.delete"
)

// Actor is the authenticated principal acting on orders.
type Actor struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Role   string `json:"role"`
}

// Customer is the order's customer sub-record. Mobile is the only
// mandatory field; UserID links to a registered account when known.
type Customer struct {
	UserID  string `json:"user_id,omitempty"`
	Name    string `json:"name,omitempty"`
	Mobile  string `json:"mobile"`
	Address string `json:"address,omitempty"`
	Email   string `json:"email,omitempty"`
}

// Feedback is an optional post-completion customer rating.
type Feedback struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// Payment records how an order was settled.
type Payment struct {
	Method    string `json:"method"`
	Detail    string `json:"detail,omitempty"`
	ReceiptID string `json:"receipt_id,omitempty"`
}

// OrderItem references a product snapshot taken at ordering time, so later
// catalog edits never change what was sold.
type OrderItem struct {
	ProductID       string            `json:"product_id"`
	ProductName     string            `json:"product_name"`
	UnitPrice       decimal.Decimal   `json:"unit_price"`
	Quantity        int               `json:"quantity"`
	Options         map[string]string `json:"options,omitempty"`
	DiscountPercent decimal.Decimal   `json:"discount_percent"`
}

// LineTotal returns the discounted price for this line.
func (it OrderItem) LineTotal() decimal.Decimal {
	price := it.UnitPrice
	if !it.DiscountPercent.IsZero() {
		factor := decimal.NewFromInt(100).Sub(it.DiscountPercent).Div(decimal.NewFromInt(100))
		price = price.Mul(factor)
	}
	return price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// ComputeTotal sums the discounted line totals. Every mutation path that
// changes items must write the result back together with the items.
func ComputeTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Order is the central entity. The ID is assigned client-side at creation
// time and never reused; Status is an open set defined by the restaurant's
// configured pipeline, not an enum.
type Order struct {
	ID            string          `json:"id"`
	Items         []OrderItem     `json:"items"`
	Total         decimal.Decimal `json:"total"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	Type          OrderType       `json:"type"`
	Customer      Customer        `json:"customer"`
	TableNumber   *int            `json:"table_number,omitempty"`
	CreatedBy     string          `json:"created_by,omitempty"`
	Notes         string          `json:"notes,omitempty"`
	RefusalReason string          `json:"refusal_reason,omitempty"`
	Feedback      *Feedback       `json:"feedback,omitempty"`
	Payment       *Payment        `json:"payment,omitempty"`
}

// Clone returns a deep copy. Rollback snapshots and read snapshots depend on
// clones never sharing item slices or sub-records with the stored order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	cp := *o
	if o.Items != nil {
		cp.Items = make([]OrderItem, len(o.Items))
		copy(cp.Items, o.Items)
		for i, it := range o.Items {
			if it.Options != nil {
				opts := make(map[string]string, len(it.Options))
				for k, v := range it.Options {
					opts[k] = v
				}
				cp.Items[i].Options = opts
			}
		}
	}
	if o.TableNumber != nil {
		n := *o.TableNumber
		cp.TableNumber = &n
	}
	if o.Feedback != nil {
		f := *o.Feedback
		cp.Feedback = &f
	}
	if o.Payment != nil {
		p := *o.Payment
		cp.Payment = &p
	}
	return &cp
}

// OrderDraft is the placement input: an order lacking ID and timestamp.
// Drafts carry no status; every order enters the pipeline at its initial
// status.
type OrderDraft struct {
	Items       []OrderItem `json:"items"`
	Type        OrderType   `json:"type"`
	Customer    Customer    `json:"customer"`
	TableNumber *int        `json:"table_number,omitempty"`
	Notes       string      `json:"notes,omitempty"`
}

// OrderPatch is the partial payload for UpdateOrder. Nil fields are left
// untouched; set fields shallow-merge onto the current order. Items changes
// recompute the total in the same merge.
type OrderPatch struct {
	Items         *[]OrderItem `json:"items,omitempty"`
	Status        *string      `json:"status,omitempty"`
	Notes         *string      `json:"notes,omitempty"`
	RefusalReason *string      `json:"refusal_reason,omitempty"`
	TableNumber   *int         `json:"table_number,omitempty"`
	Customer      *Customer    `json:"customer,omitempty"`
	Feedback      *Feedback    `json:"feedback,omitempty"`
	Payment       *Payment     `json:"payment,omitempty"`
}

// Apply merges the patch onto a clone of cur and returns the candidate next
// state.
func (p OrderPatch) Apply(cur *Order) *Order {
	next := cur.Clone()
	if p.Items != nil {
		next.Items = make([]OrderItem, len(*p.Items))
		copy(next.Items, *p.Items)
		next.Total = ComputeTotal(next.Items)
	}
	if p.Status != nil {
		next.Status = *p.Status
	}
	if p.Notes != nil {
		next.Notes = *p.Notes
	}
	if p.RefusalReason != nil {
		next.RefusalReason = *p.RefusalReason
	}
	if p.TableNumber != nil {
		n := *p.TableNumber
		next.TableNumber = &n
	}
	if p.Customer != nil {
		next.Customer = *p.Customer
	}
	if p.Feedback != nil {
		f := *p.Feedback
		next.Feedback = &f
	}
	if p.Payment != nil {
		pay := *p.Payment
		next.Payment = &pay
	}
	return next
}

// StatusDef is one entry of the restaurant-configured status pipeline.
type StatusDef struct {
	ID        string `json:"id" yaml:"id"`
	Name      string `json:"name" yaml:"name"`
	Color     string `json:"color" yaml:"color"`
	PlaySound bool   `json:"play_sound" yaml:"play_sound"`
}

// Pipeline is the ordered status configuration consumed, not owned, by the
// engine. CompletedID and RefusedID designate the two statuses the engine
// attaches special behavior to.
type Pipeline struct {
	Statuses    []StatusDef
	CompletedID string
	RefusedID   string
}

// InitialStatus returns the pipeline's first status, normally "received".
func (p Pipeline) InitialStatus() string {
	if len(p.Statuses) == 0 {
		return ""
	}
	return p.Statuses[0].ID
}

// Contains reports whether id is a configured pipeline status.
func (p Pipeline) Contains(id string) bool {
	for _, s := range p.Statuses {
		if s.ID == id {
			return true
		}
	}
	return false
}

// ShouldNotify reports whether arriving at id must fire an audible alert.
func (p Pipeline) ShouldNotify(id string) bool {
	for _, s := range p.Statuses {
		if s.ID == id {
			return s.PlaySound
		}
	}
	return false
}
