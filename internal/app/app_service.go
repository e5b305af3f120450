package app

import (
	"context"
	"fmt"
	"time"

	"payables-service/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
)

type appService struct {
	pool     *pgxpool.Pool
	payables *core.PayableService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(pool *pgxpool.Pool, payables *core.PayableService) ApplicationService {
	return &appService{pool: pool, payables: payables}
}

// CreatePayable maps the normalized request onto the core input and runs the
// creation transaction.
func (s *appService) CreatePayable(ctx context.Context, req CreatePayableRequest) (*CreatePayableResult, error) {
	issueDate, err := parseDate(req.IssueDate, "issueDate")
	if err != nil {
		return nil, err
	}
	settlementDate, err := parseOptionalDate(req.SettlementDate, "settlementDate")
	if err != nil {
		return nil, err
	}

	status := core.PayableStatus(req.Status)
	if status == "" {
		status = core.StatusPending
	}

	header := core.PayableHeader{
		Title:             req.Title,
		TotalValue:        req.TotalValue,
		ChartOfAccountID:  req.ChartOfAccountID,
		CostCenterID:      req.CostCenterID,
		IssueDate:         issueDate,
		SettlementDate:    settlementDate,
		Period:            req.Period,
		Origin:            req.Origin,
		Notes:             req.Notes,
		Status:            status,
		CompanyID:         req.CompanyID,
		CounterpartyID:    req.CounterpartyID,
		InstallmentPlanID: req.InstallmentPlanID,
	}

	installments := make([]core.InstallmentInput, 0, len(req.Installments))
	for i, in := range req.Installments {
		dueDate, err := parseOptionalDate(in.DueDate, fmt.Sprintf("installments[%d].dueDate", i))
		if err != nil {
			return nil, err
		}
		paymentDate, err := parseOptionalDate(in.PaymentDate, fmt.Sprintf("installments[%d].paymentDate", i))
		if err != nil {
			return nil, err
		}
		clearingDate, err := parseOptionalDate(in.ClearingDate, fmt.Sprintf("installments[%d].clearingDate", i))
		if err != nil {
			return nil, err
		}

		instStatus := core.PayableStatus(in.Status)
		if instStatus == "" {
			instStatus = core.StatusPending
		}

		installments = append(installments, core.InstallmentInput{
			Title:           in.Title,
			DueDate:         dueDate,
			PaymentDate:     paymentDate,
			ClearingDate:    clearingDate,
			Value:           in.Value,
			Difference:      in.Difference,
			TotalValue:      in.TotalValue,
			Status:          instStatus,
			PaymentMethodID: in.PaymentMethodID,
			BankAccountID:   in.BankAccountID,
		})
	}

	docID, err := s.payables.Create(ctx, core.CreatePayableInput{
		Header:                header,
		Installments:          installments,
		AccountAllocations:    mapAllocations(req.AccountAllocations),
		CostCenterAllocations: mapAllocations(req.CostCenterAllocations),
		Actor:                 req.Actor,
	})
	if err != nil {
		return nil, err
	}

	return &CreatePayableResult{DocumentID: docID}, nil
}

// Health pings the database.
func (s *appService) Health(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}

func mapAllocations(in []AllocationRequest) []core.AllocationInput {
	if len(in) == 0 {
		return nil
	}
	out := make([]core.AllocationInput, 0, len(in))
	for _, a := range in {
		out = append(out, core.AllocationInput{
			TargetID: a.TargetID,
			Value:    a.Value,
			Percent:  a.Percent,
		})
	}
	return out
}

// parseDate parses a required YYYY-MM-DD field. An empty or malformed value
// is a validation failure, not a transaction failure.
func parseDate(raw, field string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, &core.ValidationError{Field: field}
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, &core.ValidationError{Field: field}
	}
	return d, nil
}

func parseOptionalDate(raw, field string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, &core.ValidationError{Field: field}
	}
	return &d, nil
}
