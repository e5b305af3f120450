package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// BalanceRecalculator recomputes the running balances of one bank account
// after its movement history changes.
type BalanceRecalculator interface {
	Recalculate(ctx context.Context, tx pgx.Tx, bankAccountID int) error
}

// AuditLog records history entries for domain actions.
type AuditLog interface {
	Record(ctx context.Context, tx pgx.Tx, entity string, entityID int, action, detail, actor string) error
}

// MovementSynthesizer derives bank movements for installments that arrive
// already marked paid at document-creation time. Installments that
// transition to paid later are handled by the payment flow, not here.
type MovementSynthesizer struct {
	balances BalanceRecalculator
	audit    AuditLog
}

func NewMovementSynthesizer(balances BalanceRecalculator, audit AuditLog) *MovementSynthesizer {
	return &MovementSynthesizer{balances: balances, audit: audit}
}

// SynthesizeForPaid walks the document's installments once and inserts one
// outgoing movement per paid installment that has a bank account set.
// Paid installments without a bank account are skipped silently.
//
// The insert is guarded by the partial unique index on
// (origem_tela, parcela_id): a conflicting writer's insert is absorbed as a
// no-op, giving at-most-once-per-installment semantics without locking. On
// an absorbed insert neither the balance recomputation nor the audit entry
// runs. Returns the number of movements actually created.
func (m *MovementSynthesizer) SynthesizeForPaid(ctx context.Context, tx pgx.Tx, docID, counterpartyID int, installments []CreatedInstallment, actor string) (int, error) {
	counterparty := m.counterpartyName(ctx, tx, counterpartyID)

	created := 0
	for _, in := range installments {
		if in.Status != StatusPaid {
			continue
		}
		if in.BankAccountID == nil {
			continue
		}

		value := movementValue(in.TotalValue, in.Value)

		movementDate := time.Now()
		switch {
		case in.ClearingDate != nil:
			movementDate = *in.ClearingDate
		case in.PaymentDate != nil:
			movementDate = *in.PaymentDate
		}

		description := "Pagamento de conta a pagar"
		detail := fmt.Sprintf("Parcela %s - %s", in.Title, counterparty)

		// Prior/posterior balances are written as 0/0 placeholders; the
		// recalculation below fixes up the whole account history.
		var movementID int
		err := tx.QueryRow(ctx, `
			INSERT INTO movimentacoes_bancarias
			            (conta_corrente_id, tipo, valor, descricao, descricao_detalhada,
			             data_movimentacao, saldo_anterior, saldo_posterior, status,
			             criado_por, origem_id, origem_tela, parcela_id)
			VALUES ($1, $2, $3, $4, $5, $6, 0, 0, $7, $8, $9, $10, $11)
			ON CONFLICT (origem_tela, parcela_id)
			    WHERE origem_tela = 'contas_pagar_parcelas' AND parcela_id IS NOT NULL
			    DO NOTHING
			RETURNING id`,
			*in.BankAccountID, string(MovementOut), value, description, detail,
			movementDate, string(StatusPaid),
			actor, docID, installmentOriginScreen, in.ID,
		).Scan(&movementID)
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the uniqueness race or re-ran the flow: movement exists.
			continue
		}
		if err != nil {
			return created, fmt.Errorf("insert movement for installment %d: %w", in.ID, err)
		}

		if err := m.balances.Recalculate(ctx, tx, *in.BankAccountID); err != nil {
			return created, fmt.Errorf("recalculate balances for account %d: %w", *in.BankAccountID, err)
		}

		detail = fmt.Sprintf("Movimentação %d gerada para parcela %s (valor %s)",
			movementID, in.Title, value.StringFixed(2))
		if err := m.audit.Record(ctx, tx, "contas_pagar_parcelas", in.ID, "pagamento", detail, actor); err != nil {
			return created, fmt.Errorf("record payment history for installment %d: %w", in.ID, err)
		}

		created++
	}
	return created, nil
}

// MovementsForAccount returns an account's movement history, ordered the
// same way the balance recalculation orders it.
func (m *MovementSynthesizer) MovementsForAccount(ctx context.Context, tx pgx.Tx, bankAccountID int) ([]BankMovement, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, conta_corrente_id, tipo, valor, COALESCE(descricao, ''),
		       COALESCE(descricao_detalhada, ''), data_movimentacao,
		       saldo_anterior, saldo_posterior, status, COALESCE(criado_por, ''),
		       origem_id, origem_tela, parcela_id
		FROM movimentacoes_bancarias
		WHERE conta_corrente_id = $1
		ORDER BY data_movimentacao, id`,
		bankAccountID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch movements for account %d: %w", bankAccountID, err)
	}
	defer rows.Close()

	var movements []BankMovement
	for rows.Next() {
		var mv BankMovement
		if err := rows.Scan(
			&mv.ID, &mv.BankAccountID, &mv.Direction, &mv.Value, &mv.Description,
			&mv.DetailedDesc, &mv.MovementDate,
			&mv.PriorBalance, &mv.PosteriorBalance, &mv.Status, &mv.CreatedBy,
			&mv.OriginID, &mv.OriginScreen, &mv.InstallmentID,
		); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, mv)
	}
	return movements, rows.Err()
}

// counterpartyName resolves the counterparty's display name, best-effort.
// Movements still synthesize with an empty name when the lookup misses.
func (m *MovementSynthesizer) counterpartyName(ctx context.Context, tx pgx.Tx, counterpartyID int) string {
	var name string
	err := tx.QueryRow(ctx,
		"SELECT nome FROM cadastros WHERE id = $1", counterpartyID,
	).Scan(&name)
	if err != nil {
		return ""
	}
	return name
}

// pgBalanceRecalculator rewrites saldo_anterior/saldo_posterior for every
// movement of an account from a single window-function pass, ordered by
// movement date then id.
type pgBalanceRecalculator struct{}

func NewBalanceRecalculator() BalanceRecalculator {
	return pgBalanceRecalculator{}
}

func (pgBalanceRecalculator) Recalculate(ctx context.Context, tx pgx.Tx, bankAccountID int) error {
	_, err := tx.Exec(ctx, `
		WITH ordered AS (
			SELECT id,
			       CASE WHEN tipo = 'entrada' THEN valor ELSE -valor END AS signed_value,
			       SUM(CASE WHEN tipo = 'entrada' THEN valor ELSE -valor END)
			           OVER (ORDER BY data_movimentacao, id) AS running
			FROM movimentacoes_bancarias
			WHERE conta_corrente_id = $1
		)
		UPDATE movimentacoes_bancarias m
		SET saldo_posterior = o.running,
		    saldo_anterior  = o.running - o.signed_value
		FROM ordered o
		WHERE o.id = m.id`,
		bankAccountID,
	)
	if err != nil {
		return fmt.Errorf("recompute running balances: %w", err)
	}
	return nil
}

// pgAuditLog appends to the historico table inside the caller's transaction,
// so audit entries vanish with the data they describe on rollback.
type pgAuditLog struct{}

func NewAuditLog() AuditLog {
	return pgAuditLog{}
}

func (pgAuditLog) Record(ctx context.Context, tx pgx.Tx, entity string, entityID int, action, detail, actor string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO historico (entidade, entidade_id, acao, detalhe, criado_por)
		VALUES ($1, $2, $3, $4, $5)`,
		entity, entityID, action, detail, actor,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// movementValue is the coalescing rule for the synthesized movement's
// value: the installment's total value when set, else its plain value.
func movementValue(totalValue *decimal.Decimal, installmentValue decimal.Decimal) decimal.Decimal {
	if totalValue != nil {
		return *totalValue
	}
	return installmentValue
}
