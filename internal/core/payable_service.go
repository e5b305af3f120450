package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CreatePayableInput is everything one creation request carries, already
// normalized at the boundary.
type CreatePayableInput struct {
	Header                PayableHeader
	Installments          []InstallmentInput
	AccountAllocations    []AllocationInput
	CostCenterAllocations []AllocationInput
	Actor                 string
}

// PayableService coordinates the accounts-payable creation transaction:
// header + installments, retroactive bank movements for installments that
// arrive already paid, and the two allocation passes, all in one atomic
// unit of work on a single pooled connection.
//
// Creation is intentionally not idempotent: resubmitting an identical
// request creates a second document. Only the movement-synthesis step inside
// it is guarded against duplication.
type PayableService struct {
	pool        *pgxpool.Pool
	schema      *SchemaGuard
	store       *PayableStore
	movements   *MovementSynthesizer
	allocations *AllocationDistributor
	audit       AuditLog
}

func NewPayableService(pool *pgxpool.Pool, schema *SchemaGuard, store *PayableStore, movements *MovementSynthesizer, allocations *AllocationDistributor, audit AuditLog) *PayableService {
	return &PayableService{
		pool:        pool,
		schema:      schema,
		store:       store,
		movements:   movements,
		allocations: allocations,
		audit:       audit,
	}
}

// Create runs the full creation sequence and returns the new document id.
// Validation failures surface before any transaction is opened; any failure
// after that rolls the whole document back, so readers never observe a
// partial payable.
func (s *PayableService) Create(ctx context.Context, in CreatePayableInput) (int, error) {
	if err := in.Header.Validate(); err != nil {
		return 0, err
	}

	if err := s.schema.Ensure(ctx); err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	docID, err := s.store.CreateDocument(ctx, tx, in.Header)
	if err != nil {
		return 0, err
	}

	detail := fmt.Sprintf("Conta a pagar %q criada (valor %s)", in.Header.Title, in.Header.TotalValue.StringFixed(2))
	if err := s.audit.Record(ctx, tx, "contas_pagar", docID, "criar", detail, in.Actor); err != nil {
		return 0, err
	}

	var created []CreatedInstallment
	if len(in.Installments) > 0 {
		created, err = s.store.CreateInstallments(ctx, tx, docID, in.Installments)
		if err != nil {
			return 0, err
		}
	}

	if _, err := s.movements.SynthesizeForPaid(ctx, tx, docID, in.Header.CounterpartyID, created, in.Actor); err != nil {
		return 0, err
	}

	if err := s.allocations.Distribute(ctx, tx, docID, in.Header.TotalValue, created,
		in.AccountAllocations, in.Header.ChartOfAccountID, AllocationAccount); err != nil {
		return 0, err
	}
	if err := s.allocations.Distribute(ctx, tx, docID, in.Header.TotalValue, created,
		in.CostCenterAllocations, in.Header.CostCenterID, AllocationCostCenter); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit payable creation: %w", err)
	}

	return docID, nil
}
