package domain

// ErrorCode is the machine-readable reason a cart mutation was rejected.
type ErrorCode string

const (
	ErrInsufficientStock     ErrorCode = "insufficient_stock"
	ErrMaxQuantityExceeded   ErrorCode = "max_quantity_exceeded"
	ErrMaxTotalItemsExceeded ErrorCode = "max_total_items_exceeded"
	ErrItemNotFound          ErrorCode = "item_not_found"
	ErrInternal              ErrorCode = "internal_error"
)

// MutationResult is the outcome of a cart mutation. Failures are values,
// not errors: the caller branches on Success and shows Message, and State
// always carries a consistent snapshot (unchanged on failure).
type MutationResult struct {
	Success bool      `json:"success"`
	Message string    `json:"message"`
	Code    ErrorCode `json:"errorCode,omitempty"`
	Item    *LineItem `json:"item,omitempty"`
	State   CartState `json:"cartState"`
}

func OK(message string, item *LineItem, state CartState) MutationResult {
	return MutationResult{
		Success: true,
		Message: message,
		Item:    item,
		State:   state,
	}
}

func Rejected(code ErrorCode, message string, state CartState) MutationResult {
	return MutationResult{
		Success: false,
		Message: message,
		Code:    code,
		State:   state,
	}
}
