package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
)

// movementOriginDDL adds the origin triple to bank movements plus the
// partial unique index that makes paid-installment movement synthesis
// idempotent. Safe to run repeatedly.
const movementOriginDDL = `
ALTER TABLE movimentacoes_bancarias ADD COLUMN IF NOT EXISTS origem_id INTEGER;
ALTER TABLE movimentacoes_bancarias ADD COLUMN IF NOT EXISTS origem_tela TEXT;
ALTER TABLE movimentacoes_bancarias ADD COLUMN IF NOT EXISTS parcela_id INTEGER;
CREATE UNIQUE INDEX IF NOT EXISTS ux_movimentacoes_origem_parcela
    ON movimentacoes_bancarias (origem_tela, parcela_id)
    WHERE origem_tela = 'contas_pagar_parcelas' AND parcela_id IS NOT NULL;
`

// SchemaGuard applies movementOriginDDL at most once per process. The
// coordinator calls Ensure before opening its transaction, turning what used
// to be per-request DDL into a startup migration plus a runtime no-op check.
type SchemaGuard struct {
	pool *pgxpool.Pool
	once sync.Once
	err  error
}

func NewSchemaGuard(pool *pgxpool.Pool) *SchemaGuard {
	return &SchemaGuard{pool: pool}
}

// Ensure runs the DDL on first call and caches the outcome. A failed first
// attempt stays failed; the process is expected to restart rather than limp
// along without the idempotency index.
func (g *SchemaGuard) Ensure(ctx context.Context) error {
	g.once.Do(func() {
		_, g.err = g.pool.Exec(ctx, movementOriginDDL)
	})
	if g.err != nil {
		return fmt.Errorf("ensure movement origin schema: %w", g.err)
	}
	return nil
}
