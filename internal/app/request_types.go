package app

import (
	"github.com/shopspring/decimal"
)

// CreatePayableRequest is the normalized input for creating a payable.
// Legacy request aliases (camelCase vs snake_case, cadastroId vs cadastro)
// are collapsed by the web adapter before this struct is built; dates travel
// as YYYY-MM-DD strings and are parsed once here in the app layer.
type CreatePayableRequest struct {
	Title                 string
	CounterpartyID        int
	TotalValue            decimal.Decimal
	ChartOfAccountID      *int
	CostCenterID          *int
	IssueDate             string // YYYY-MM-DD
	SettlementDate        string // optional
	Period                string
	Origin                string
	Notes                 string
	Status                string // defaults to "pendente"
	CompanyID             int
	InstallmentPlanID     *int
	Installments          []InstallmentRequest
	AccountAllocations    []AllocationRequest
	CostCenterAllocations []AllocationRequest
	Actor                 string
}

// InstallmentRequest is a single installment within a CreatePayableRequest.
type InstallmentRequest struct {
	Title           string
	DueDate         string // YYYY-MM-DD, optional
	PaymentDate     string // optional
	ClearingDate    string // optional
	Value           decimal.Decimal
	Difference      decimal.Decimal
	TotalValue      *decimal.Decimal
	Status          string
	PaymentMethodID *int
	BankAccountID   *int
}

// AllocationRequest is one {target, value, percent} entry.
type AllocationRequest struct {
	TargetID int
	Value    decimal.Decimal
	Percent  decimal.Decimal
}
