package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type PayableStatus string

const (
	StatusPending PayableStatus = "pendente"
	StatusPaid    PayableStatus = "pago"
)

type MovementDirection string

const (
	MovementIn  MovementDirection = "entrada"
	MovementOut MovementDirection = "saida"
)

// PayableHeader is the normalized header of a payable document. Legacy
// request aliases are collapsed at the web boundary before this struct is
// populated; the core never sees dual field shapes.
type PayableHeader struct {
	Title             string
	TotalValue        decimal.Decimal
	ChartOfAccountID  *int // scalar fallback allocation target
	CostCenterID      *int // scalar fallback allocation target
	IssueDate         time.Time
	SettlementDate    *time.Time
	Period            string
	Origin            string
	Notes             string
	Status            PayableStatus
	CompanyID         int
	CounterpartyID    int
	InstallmentPlanID *int
}

// InstallmentInput is one scheduled partial payment of a payable document.
// TotalValue may differ from Value (late fees, discounts); when present it
// takes precedence for movement synthesis.
type InstallmentInput struct {
	Title           string
	DueDate         *time.Time
	PaymentDate     *time.Time
	ClearingDate    *time.Time
	Value           decimal.Decimal
	Difference      decimal.Decimal
	TotalValue      *decimal.Decimal
	Status          PayableStatus
	PaymentMethodID *int
	BankAccountID   *int
}

// CreatedInstallment is an installment as persisted, identity included.
// Returning identities from the bulk insert lets downstream steps reference
// installments directly instead of re-resolving them by title.
type CreatedInstallment struct {
	ID int
	InstallmentInput
}

// AllocationInput is one {target, value, percent} entry of a rateio list,
// targeting either a chart-of-accounts entry or a cost center depending on
// the distribution kind.
type AllocationInput struct {
	TargetID int
	Value    decimal.Decimal
	Percent  decimal.Decimal
}

type AllocationKind string

const (
	AllocationAccount    AllocationKind = "account"
	AllocationCostCenter AllocationKind = "costCenter"
)

// BankMovement is a row of a bank account's transaction history. Movements
// synthesized from paid installments carry the origin triple that backs the
// idempotency guard.
type BankMovement struct {
	ID               int
	BankAccountID    int
	Direction        MovementDirection
	Value            decimal.Decimal
	Description      string
	DetailedDesc     string
	MovementDate     time.Time
	PriorBalance     decimal.Decimal
	PosteriorBalance decimal.Decimal
	Status           PayableStatus
	CreatedBy        string
	OriginID         *int
	OriginScreen     *string
	InstallmentID    *int
}

// installmentOriginScreen tags movements synthesized from paid installments;
// the partial unique index on (origem_tela, parcela_id) is scoped to it.
const installmentOriginScreen = "contas_pagar_parcelas"
