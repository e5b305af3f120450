package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// allocationTables maps a distribution kind to its document-level and
// installment-level tables and target column. Table names are fixed
// constants, never caller input.
type allocationTables struct {
	docTable  string
	instTable string
	targetCol string
}

var allocationKinds = map[AllocationKind]allocationTables{
	AllocationAccount: {
		docTable:  "contas_pagar_rateio",
		instTable: "contas_pagar_rateio_parcelas",
		targetCol: "plano_conta_id",
	},
	AllocationCostCenter: {
		docTable:  "contas_pagar_rateio_cc",
		instTable: "contas_pagar_rateio_cc_parcelas",
		targetCol: "centro_custo_id",
	},
}

// AllocationDistributor spreads a document's total value across
// chart-of-accounts or cost-center targets, at document level and fanned out
// proportionally across every installment. The two kinds run as independent
// passes over the same installment set.
type AllocationDistributor struct{}

func NewAllocationDistributor() *AllocationDistributor {
	return &AllocationDistributor{}
}

// Distribute persists the allocation rows for one kind.
//
// With an explicit allocation list, each entry with a target and a positive
// value gets one document-level row written verbatim (caller-supplied
// percent, no rounding) plus one proportional row per installment, computed
// by InstallmentShare. The list's values are expected, not enforced, to sum
// to totalValue.
//
// With no list but a scalar target on the document, a single 100% fallback
// is written: one document-level row for the full total, and one row per
// installment valued at that installment's own value (100% of the
// installment, not a proportional slice of the total).
//
// With neither, no rows at all; a payable may legally carry no allocations.
func (d *AllocationDistributor) Distribute(
	ctx context.Context,
	tx pgx.Tx,
	docID int,
	totalValue decimal.Decimal,
	installments []CreatedInstallment,
	allocations []AllocationInput,
	scalarTargetID *int,
	kind AllocationKind,
) error {
	tables, ok := allocationKinds[kind]
	if !ok {
		return fmt.Errorf("unknown allocation kind %q", kind)
	}

	// A non-empty list always takes the explicit path, even when every entry
	// is filtered out; the scalar fallback only covers the no-list case.
	if len(allocations) > 0 {
		for _, a := range allocations {
			if a.TargetID == 0 || !a.Value.IsPositive() {
				continue
			}
			if err := d.insertDocRow(ctx, tx, tables, docID, a.TargetID, a.Value, a.Percent); err != nil {
				return err
			}
			for _, in := range installments {
				share, percent := InstallmentShare(a.Value, totalValue, in.Value)
				if err := d.insertInstallmentRow(ctx, tx, tables, docID, in.ID, a.TargetID, share, percent); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if scalarTargetID == nil {
		return nil
	}

	// Scalar fallback: one allocation covering everything.
	if err := d.insertDocRow(ctx, tx, tables, docID, *scalarTargetID, Round2(totalValue), oneHundred); err != nil {
		return err
	}
	for _, in := range installments {
		if err := d.insertInstallmentRow(ctx, tx, tables, docID, in.ID, *scalarTargetID, Round2(in.Value), oneHundred); err != nil {
			return err
		}
	}
	return nil
}

func (d *AllocationDistributor) insertDocRow(ctx context.Context, tx pgx.Tx, t allocationTables, docID, targetID int, value, percent decimal.Decimal) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (conta_pagar_id, %s, valor, percentual)
		VALUES ($1, $2, $3, $4)`, t.docTable, t.targetCol)
	if _, err := tx.Exec(ctx, query, docID, targetID, value, percent); err != nil {
		return fmt.Errorf("insert document allocation (target %d): %w", targetID, err)
	}
	return nil
}

func (d *AllocationDistributor) insertInstallmentRow(ctx context.Context, tx pgx.Tx, t allocationTables, docID, installmentID, targetID int, value, percent decimal.Decimal) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (conta_pagar_id, parcela_id, %s, valor, percentual)
		VALUES ($1, $2, $3, $4, $5)`, t.instTable, t.targetCol)
	if _, err := tx.Exec(ctx, query, docID, installmentID, targetID, value, percent); err != nil {
		return fmt.Errorf("insert installment allocation (target %d, installment %d): %w", targetID, installmentID, err)
	}
	return nil
}
