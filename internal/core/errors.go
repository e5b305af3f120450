package core

import "fmt"

// ValidationError reports a missing required input field. It is returned
// before any transaction is opened, so a validation failure never has side
// effects to roll back.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// Validate checks the required header fields. Zero values count as missing,
// matching the originating system's treatment of absent inputs.
func (h *PayableHeader) Validate() error {
	switch {
	case h.Title == "":
		return &ValidationError{Field: "title"}
	case h.TotalValue.IsZero():
		return &ValidationError{Field: "totalValue"}
	case h.IssueDate.IsZero():
		return &ValidationError{Field: "issueDate"}
	case h.CompanyID == 0:
		return &ValidationError{Field: "companyId"}
	case h.CounterpartyID == 0:
		return &ValidationError{Field: "counterparty"}
	}
	return nil
}
