package cart

import "github.com/google/uuid"

// IssueCode classifies a validation issue.
type IssueCode string

const (
	// IssueEmptyCart: the cart has no lines.
	IssueEmptyCart IssueCode = "empty_cart"

	// IssueStock: a non-serialized line requests more than the cached
	// effective stock. Advisory; the cache can be stale and commit-time
	// validation is authoritative.
	IssueStock IssueCode = "stock_exceeded"

	// IssueSplitMismatch: hybrid payment sub-amounts do not sum to the
	// grand total within tolerance.
	IssueSplitMismatch IssueCode = "split_mismatch"

	// IssueDiscountBound: a flat order-level discount exceeds the
	// tax-included total.
	IssueDiscountBound IssueCode = "discount_bound"
)

// Issue is one validation failure. Issues are data, not errors: every
// recompute collects the complete list so the operator can fix everything in
// one pass.
type Issue struct {
	Code      IssueCode  `json:"code"`
	ProductID *uuid.UUID `json:"product_id,omitempty"`
	Message   string     `json:"message"`
}
