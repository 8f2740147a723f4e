package core

import (
	"fmt"
	"time"
)

// NativeCurrency is the reporting currency every amount ultimately resolves to.
const NativeCurrency = "USD"

type (
	// Expense is a validated monetary outflow attributed to a spending category.
	Expense struct {
		ID         string    `json:"id,omitempty"`
		Amount     float64   `json:"amount"`
		Currency   string    `json:"currency"`
		CategoryID string    `json:"categoryId"`
		MemberID   string    `json:"memberId,omitempty"`
		Date       time.Time `json:"date"`
		Notes      string    `json:"notes,omitempty"`
	}

	// Income is a validated monetary inflow attributed to a source.
	Income struct {
		ID       string    `json:"id,omitempty"`
		Amount   float64   `json:"amount"`
		Currency string    `json:"currency"`
		Source   string    `json:"source"`
		MemberID string    `json:"memberId,omitempty"`
		Date     time.Time `json:"date"`
		Notes    string    `json:"notes,omitempty"`
	}
)

// ValidationError reports bad or missing required input. Callers translate it
// into a 4xx-class response.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func validationErr(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// InfrastructureError reports a store or transport failure. It is never
// retried here; callers translate it into a 5xx-class response.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}
