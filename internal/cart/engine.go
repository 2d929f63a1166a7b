// Package cart implements the in-memory sale construction engine: an
// ordered line item store, synchronous pricing recomputation, advisory stock
// reconciliation and a validation gate consulted before commit.
package cart

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tipatpati/golden-phone-management-sub007/internal/domain"
	"github.com/tipatpati/golden-phone-management-sub007/internal/inventory"
	"github.com/tipatpati/golden-phone-management-sub007/internal/pricing"
	"github.com/tipatpati/golden-phone-management-sub007/internal/realtime"
	"github.com/tipatpati/golden-phone-management-sub007/internal/stock"
	"github.com/tipatpati/golden-phone-management-sub007/internal/telemetry"
)

var (
	ErrInvalidQuantity = &domain.Error{Code: domain.EINVALID, Message: "Quantity must be greater than 0"}
	ErrLineNotFound    = &domain.Error{Code: domain.ENOTFOUND, Message: "Cart line not found"}
	ErrCartInvalid     = &domain.Error{Code: domain.EINVALID, Message: "Cart has validation issues"}
)

// FormData is the order-level state of a sale under construction. The
// selected client never affects totals.
type FormData struct {
	PaymentMethod domain.PaymentMethod
	Split         domain.PaymentSplit
	Discount      pricing.Discount
	VATIncluded   bool
	ClientID      *uuid.UUID
}

// Engine is a sale construction state container. Every mutation synchronously
// recomputes totals and validation issues. Collaborators are injected: the
// inventory provider feeds the stock cache, the realtime subscriber delivers
// push refresh triggers for exactly the products currently in the cart.
//
// The engine's verdict is advisory. Commit goes through domain.SaleService,
// which revalidates authoritatively.
//
// All methods are safe for concurrent use; realtime callbacks and request
// handlers are independent writers.
type Engine struct {
	cache      *stock.Cache
	subscriber realtime.Subscriber
	calc       pricing.Calculator
	logger     *slog.Logger
	metrics    *telemetry.Metrics

	mu     sync.Mutex
	lines  []Line
	form   FormData
	totals pricing.Totals
	issues []Issue
	subs   map[uuid.UUID]realtime.Subscription
	closed bool
}

// NewEngine creates an engine with its collaborators. subscriber and metrics
// may be nil (no push refresh, no instrumentation).
func NewEngine(provider inventory.Provider, subscriber realtime.Subscriber, calc pricing.Calculator, logger *slog.Logger, metrics *telemetry.Metrics) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		cache:      stock.NewCache(provider, logger),
		subscriber: subscriber,
		calc:       calc,
		logger:     logger,
		metrics:    metrics,
		subs:       make(map[uuid.UUID]realtime.Subscription),
	}
	e.recompute()
	return e
}

// AddLine adds a line to the cart. Same product non-serialized lines merge
// by summing quantities; adding a serialized unit already in the cart is a
// silent no-op (the same physical unit cannot be sold twice in one sale).
// Serialized lines are forced to quantity 1.
func (e *Engine) AddLine(line Line) error {
	if line.HasSerial {
		line.Quantity = 1
	} else if line.Quantity <= 0 {
		return ErrInvalidQuantity
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Prefer the live cached figure for the stock snapshot when one
	// exists; the caller's value may predate a refresh.
	if level, ok := e.cache.Get(line.ProductID); ok {
		line.Stock = level
	}

	for i := range e.lines {
		if !sameLine(e.lines[i], line) {
			continue
		}
		if line.HasSerial {
			e.logger.Debug("duplicate serialized unit ignored",
				"product_id", line.ProductID, "identity", line.IdentityKey())
			return nil
		}
		e.lines[i].Quantity += line.Quantity
		if e.metrics != nil {
			e.metrics.CartLinesAdded.Inc()
		}
		e.afterMutation()
		return nil
	}

	e.lines = append(e.lines, line)
	if e.metrics != nil {
		e.metrics.CartLinesAdded.Inc()
	}
	e.afterMutation()
	return nil
}

// UpdateLine merges a partial update into the line identified by
// (productID, identityKey). identityKey is empty for non-serialized lines.
func (e *Engine) UpdateLine(productID uuid.UUID, identityKey string, upd LineUpdate) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.findLine(productID, identityKey)
	if i < 0 {
		return ErrLineNotFound
	}

	line := &e.lines[i]
	if upd.Quantity != nil {
		if line.HasSerial {
			// Serialized quantity invariant: always exactly 1,
			// regardless of the requested value.
			line.Quantity = 1
		} else {
			if *upd.Quantity <= 0 {
				return ErrInvalidQuantity
			}
			line.Quantity = *upd.Quantity
		}
	}
	if upd.UnitPrice != nil {
		line.UnitPrice = *upd.UnitPrice
	}
	if upd.Discount != nil {
		line.Discount = *upd.Discount
	}

	e.afterMutation()
	return nil
}

// RemoveLine removes the line identified by (productID, identityKey).
// Removing an absent line is a no-op.
func (e *Engine) RemoveLine(productID uuid.UUID, identityKey string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	i := e.findLine(productID, identityKey)
	if i < 0 {
		return
	}
	e.lines = append(e.lines[:i], e.lines[i+1:]...)
	if e.metrics != nil {
		e.metrics.CartLinesRemoved.Inc()
	}
	e.afterMutation()
}

// RemoveProduct removes every line for the product, serialized units
// included.
func (e *Engine) RemoveProduct(productID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	kept := e.lines[:0]
	removed := 0
	for _, l := range e.lines {
		if l.ProductID == productID {
			removed++
			continue
		}
		kept = append(kept, l)
	}
	if removed == 0 {
		return
	}
	e.lines = kept
	if e.metrics != nil {
		e.metrics.CartLinesRemoved.Add(float64(removed))
	}
	e.afterMutation()
}

// InitLines replaces the whole store atomically for edit-mode loads. The
// source is already-normalized persisted data, so merge and quantity
// enforcement are bypassed.
func (e *Engine) InitLines(lines []Line) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lines = append([]Line(nil), lines...)
	e.afterMutation()
}

// Reset empties the lines and the order-level form data. The stock cache is
// independent and survives.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lines = nil
	e.form = FormData{}
	if e.metrics != nil {
		e.metrics.CartResets.Inc()
	}
	e.afterMutation()
}

// SetForm replaces the order-level form data.
func (e *Engine) SetForm(form FormData) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.form = form
	e.recompute()
}

// SetClient attaches or detaches the selected client.
func (e *Engine) SetClient(clientID *uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.form.ClientID = clientID
	e.recompute()
}

// Lines returns a copy of the current cart lines.
func (e *Engine) Lines() []Line {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Line(nil), e.lines...)
}

// Form returns the current order-level form data.
func (e *Engine) Form() FormData {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form
}

// Totals returns the latest computed totals.
func (e *Engine) Totals() pricing.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.totals
}

// Issues returns a copy of the current validation issues.
func (e *Engine) Issues() []Issue {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Issue(nil), e.issues...)
}

// Valid reports whether the cart currently passes validation.
func (e *Engine) Valid() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.issues) == 0
}

// CachedStock returns the cached effective stock for a product.
func (e *Engine) CachedStock(productID uuid.UUID) (int, bool) {
	return e.cache.Get(productID)
}

// StockWarning returns the failure from the most recent stock refresh, or
// nil. Non-fatal: validation keeps using stale figures.
func (e *Engine) StockWarning() error {
	return e.cache.LastError()
}

// RefreshStock fetches effective stock for the given products, defaulting to
// every product currently in the cart, and recomputes validation with the
// merged figures. The returned error is a warning, not a failure: cached
// values stay usable.
func (e *Engine) RefreshStock(ctx context.Context, productIDs ...uuid.UUID) error {
	if len(productIDs) == 0 {
		productIDs = e.productIDs()
	}
	if len(productIDs) == 0 {
		return nil
	}

	if e.metrics != nil {
		e.metrics.StockRefreshes.Inc()
	}
	err := e.cache.Refresh(ctx, productIDs...)
	if err != nil && e.metrics != nil {
		e.metrics.StockRefreshFailures.Inc()
	}

	e.mu.Lock()
	e.recompute()
	e.mu.Unlock()
	return err
}

// ValidateSale runs one final recompute (no forced network refresh) and
// returns the verdict. Server-side revalidation at commit time remains
// authoritative regardless.
func (e *Engine) ValidateSale() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.recompute()
	if e.metrics != nil {
		for _, issue := range e.issues {
			e.metrics.ValidationFailures.WithLabelValues(string(issue.Code)).Inc()
		}
	}
	return len(e.issues) == 0
}

// Payload builds the normalized commit payload for the persistence
// collaborator. Fails when the cart does not pass validation; monetary
// figures are rounded to two decimals at this boundary only.
func (e *Engine) Payload() (domain.SalePayload, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.recompute()
	if len(e.issues) > 0 {
		return domain.SalePayload{}, ErrCartInvalid
	}

	items := make([]domain.SaleItem, len(e.lines))
	for i, l := range e.lines {
		items[i] = domain.SaleItem{
			ProductID:     l.ProductID,
			ProductUnitID: l.ProductUnitID,
			SerialNumber:  l.SerialNumber,
			Quantity:      l.Quantity,
			UnitPrice:     pricing.Round2(l.UnitPrice),
			DiscountType:  string(l.Discount.Type),
			DiscountValue: l.Discount.Value,
		}
	}

	method := e.form.PaymentMethod
	if method == "" {
		method = domain.PaymentCash
	}

	return domain.SalePayload{
		ClientID:      e.form.ClientID,
		PaymentMethod: method,
		Split:         e.form.Split,
		DiscountType:  string(e.form.Discount.Type),
		DiscountValue: e.form.Discount.Value,
		VATIncluded:   e.form.VATIncluded,
		Subtotal:      pricing.Round2(e.totals.Subtotal),
		Discount:      pricing.Round2(e.totals.Discount),
		Tax:           pricing.Round2(e.totals.Tax),
		Total:         pricing.Round2(e.totals.Total),
		Items:         items,
	}, nil
}

// Close tears the engine down: all realtime subscriptions are released and
// no further push refreshes arrive. In-flight refreshes finish on their own.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.closed = true
	for id, sub := range e.subs {
		if err := sub.Unsubscribe(); err != nil {
			e.logger.Warn("unsubscribe failed", "product_id", id, "error", err)
		}
		delete(e.subs, id)
	}
}

// findLine locates a line by product and identity key. Callers hold e.mu.
func (e *Engine) findLine(productID uuid.UUID, identityKey string) int {
	for i, l := range e.lines {
		if l.ProductID == productID && l.IdentityKey() == identityKey {
			return i
		}
	}
	return -1
}

// productIDs returns the distinct product ids currently in the cart.
func (e *Engine) productIDs() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()

	seen := make(map[uuid.UUID]struct{}, len(e.lines))
	ids := make([]uuid.UUID, 0, len(e.lines))
	for _, l := range e.lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		ids = append(ids, l.ProductID)
	}
	return ids
}

// afterMutation recomputes and reconciles realtime subscriptions with the
// cart's product set. Callers hold e.mu.
func (e *Engine) afterMutation() {
	e.recompute()
	e.syncSubscriptions()
}

// recompute derives totals and validation issues from current state.
// Callers hold e.mu. Issues are collected exhaustively, never short-circuited.
func (e *Engine) recompute() {
	lines := make([]pricing.Line, len(e.lines))
	for i, l := range e.lines {
		lines[i] = l.pricingLine()
	}
	e.totals = e.calc.Calculate(lines, e.form.Discount, e.form.VATIncluded)

	var issues []Issue

	if len(e.lines) == 0 {
		issues = append(issues, Issue{
			Code:    IssueEmptyCart,
			Message: "add at least one product to the sale",
		})
	}

	for _, l := range e.lines {
		// A serialized unit's presence in the cart is itself the stock
		// signal; only aggregate lines are checked.
		if l.HasSerial {
			continue
		}
		available := l.Stock
		if level, ok := e.cache.Get(l.ProductID); ok {
			available = level
		}
		if l.Quantity > available {
			id := l.ProductID
			issues = append(issues, Issue{
				Code:      IssueStock,
				ProductID: &id,
				Message: fmt.Sprintf("%s %s: requested %d but only %d available",
					l.Brand, l.Model, l.Quantity, available),
			})
		}
	}

	if e.form.PaymentMethod == domain.PaymentHybrid {
		if !pricing.AmountsEqual(e.form.Split.Total(), e.totals.Total) {
			issues = append(issues, Issue{
				Code: IssueSplitMismatch,
				Message: fmt.Sprintf("hybrid payment amounts sum to %.2f, sale total is %.2f",
					e.form.Split.Total(), e.totals.Total),
			})
		}
	}

	if e.form.Discount.Type == pricing.DiscountAmount &&
		e.form.Discount.Value > e.totals.TotalBeforeDiscount+pricing.Tolerance {
		issues = append(issues, Issue{
			Code: IssueDiscountBound,
			Message: fmt.Sprintf("discount %.2f exceeds the sale total %.2f",
				e.form.Discount.Value, e.totals.TotalBeforeDiscount),
		})
	}

	e.issues = issues
}

// syncSubscriptions diffs the realtime subscription set against the cart's
// product set. Callers hold e.mu.
func (e *Engine) syncSubscriptions() {
	if e.subscriber == nil || e.closed {
		return
	}

	want := make(map[uuid.UUID]struct{}, len(e.lines))
	for _, l := range e.lines {
		want[l.ProductID] = struct{}{}
	}

	for id, sub := range e.subs {
		if _, ok := want[id]; ok {
			continue
		}
		if err := sub.Unsubscribe(); err != nil {
			e.logger.Warn("unsubscribe failed", "product_id", id, "error", err)
		}
		delete(e.subs, id)
	}

	for id := range want {
		if _, ok := e.subs[id]; ok {
			continue
		}
		sub, err := e.subscriber.Subscribe(id, e.handleEvent)
		if err != nil {
			e.logger.Warn("subscribe failed", "product_id", id, "error", err)
			continue
		}
		e.subs[id] = sub
	}
}

// handleEvent reacts to an inventory change notification by refreshing the
// affected product only. Runs off the subscriber's delivery goroutine; the
// refresh itself must not block delivery.
func (e *Engine) handleEvent(event realtime.Event) {
	if e.metrics != nil {
		e.metrics.RealtimeEvents.Inc()
	}
	go func() {
		if err := e.RefreshStock(context.Background(), event.ProductID); err != nil {
			e.logger.Warn("push-triggered stock refresh failed",
				"product_id", event.ProductID, "error", err)
		}
	}()
}
