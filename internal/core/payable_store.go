package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PayableStore persists payable documents and their installments. All
// methods run on the caller's transaction; the store never opens one of its
// own so the whole creation flow stays a single atomic unit.
type PayableStore struct{}

func NewPayableStore() *PayableStore {
	return &PayableStore{}
}

// CreateDocument inserts the payable header and returns its id. Header
// fields are immutable after creation in this flow; validation happens
// before the transaction is opened, not here.
func (s *PayableStore) CreateDocument(ctx context.Context, tx pgx.Tx, h PayableHeader) (int, error) {
	var docID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO contas_pagar
		            (titulo, valor_total, plano_conta_id, centro_custo_id,
		             data_emissao, data_liquidacao, periodo, origem, observacoes,
		             status, empresa_id, cadastro_id, condicao_pagamento_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		h.Title, h.TotalValue, h.ChartOfAccountID, h.CostCenterID,
		h.IssueDate, h.SettlementDate, nullIfEmpty(h.Period), nullIfEmpty(h.Origin), nullIfEmpty(h.Notes),
		string(h.Status), h.CompanyID, h.CounterpartyID, h.InstallmentPlanID,
	).Scan(&docID); err != nil {
		return 0, fmt.Errorf("insert payable document: %w", err)
	}
	return docID, nil
}

// CreateInstallments bulk-inserts the installments in caller order and
// returns them with their new identities, so downstream steps (movement
// synthesis, allocation fan-out) reference rows directly instead of
// re-resolving them by title.
func (s *PayableStore) CreateInstallments(ctx context.Context, tx pgx.Tx, docID int, installments []InstallmentInput) ([]CreatedInstallment, error) {
	created := make([]CreatedInstallment, 0, len(installments))
	for i, in := range installments {
		var id int
		if err := tx.QueryRow(ctx, `
			INSERT INTO contas_pagar_parcelas
			            (conta_pagar_id, titulo, data_vencimento, data_pagamento,
			             data_compensacao, valor_parcela, diferenca, valor_total,
			             status, forma_pagamento_id, conta_corrente_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id`,
			docID, in.Title, in.DueDate, in.PaymentDate,
			in.ClearingDate, in.Value, in.Difference, in.TotalValue,
			string(in.Status), in.PaymentMethodID, in.BankAccountID,
		).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert installment %d: %w", i+1, err)
		}
		created = append(created, CreatedInstallment{ID: id, InstallmentInput: in})
	}
	return created, nil
}

// FindInstallmentIDByTitle resolves an installment of a document by its
// exact title. Titles are not unique per document; duplicates resolve to the
// lowest id. Returns nil when no installment matches.
func (s *PayableStore) FindInstallmentIDByTitle(ctx context.Context, tx pgx.Tx, docID int, title string) (*int, error) {
	var id int
	err := tx.QueryRow(ctx, `
		SELECT id FROM contas_pagar_parcelas
		WHERE conta_pagar_id = $1 AND titulo = $2
		ORDER BY id
		LIMIT 1`,
		docID, title,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup installment by title %q: %w", title, err)
	}
	return &id, nil
}

// nullIfEmpty maps empty strings to SQL NULL for optional text columns.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
