package core_test

import (
	"context"
	"errors"
	"os"
	"strconv"
	"testing"
	"time"

	"payables-service/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	for _, f := range []string{"../../migrations/001_payables.sql", "../../migrations/002_movement_origin.sql"} {
		sql, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("Failed to read migration %s: %v", f, err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			t.Fatalf("Failed to apply migration %s: %v", f, err)
		}
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE historico, contas_pagar_rateio_cc_parcelas, contas_pagar_rateio_cc,
			contas_pagar_rateio_parcelas, contas_pagar_rateio, movimentacoes_bancarias,
			contas_pagar_parcelas, contas_pagar, condicoes_pagamento, formas_pagamento,
			contas_correntes, centros_custo, plano_contas, cadastros, empresas
			RESTART IDENTITY CASCADE;

		INSERT INTO empresas (id, nome) VALUES (1, 'Empresa Teste');
		INSERT INTO cadastros (id, empresa_id, nome) VALUES (1, 1, 'Fornecedor Alfa');
		INSERT INTO plano_contas (id, empresa_id, codigo, nome) VALUES
			(1, 1, '3.1', 'Despesas Operacionais'),
			(2, 1, '3.2', 'Despesas Administrativas');
		INSERT INTO centros_custo (id, empresa_id, nome) VALUES
			(1, 1, 'Loja'),
			(2, 1, 'Escritório');
		INSERT INTO contas_correntes (id, empresa_id, nome) VALUES (1, 1, 'Conta Principal');
		INSERT INTO formas_pagamento (id, nome) VALUES (1, 'Boleto');
		INSERT INTO condicoes_pagamento (id, nome, parcelas) VALUES (1, '2x', 2);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func newPayableService(pool *pgxpool.Pool) *core.PayableService {
	return core.NewPayableService(
		pool,
		core.NewSchemaGuard(pool),
		core.NewPayableStore(),
		core.NewMovementSynthesizer(core.NewBalanceRecalculator(), core.NewAuditLog()),
		core.NewAllocationDistributor(),
		core.NewAuditLog(),
	)
}

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func datePtr(s string) *time.Time {
	d := date(s)
	return &d
}

func intPtr(i int) *int { return &i }

func baseHeader(total string) core.PayableHeader {
	return core.PayableHeader{
		Title:          "Compra de mercadorias",
		TotalValue:     decimal.RequireFromString(total),
		IssueDate:      date("2026-08-01"),
		Status:         core.StatusPending,
		CompanyID:      1,
		CounterpartyID: 1,
	}
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	var n int
	if err := pool.QueryRow(context.Background(), "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestCreatePayable_ScalarFallbackAllocation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newPayableService(pool)
	ctx := context.Background()

	header := baseHeader("1000")
	header.ChartOfAccountID = intPtr(1)

	docID, err := svc.Create(ctx, core.CreatePayableInput{
		Header: header,
		Installments: []core.InstallmentInput{
			{Title: "1/2", Value: decimal.RequireFromString("600"), Status: core.StatusPending},
			{Title: "2/2", Value: decimal.RequireFromString("400"), Status: core.StatusPending},
		},
		Actor: "tester",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var value, percent decimal.Decimal
	if err := pool.QueryRow(ctx,
		"SELECT valor, percentual FROM contas_pagar_rateio WHERE conta_pagar_id = $1", docID,
	).Scan(&value, &percent); err != nil {
		t.Fatalf("document allocation missing: %v", err)
	}
	if !value.Equal(decimal.RequireFromString("1000")) || !percent.Equal(decimal.RequireFromString("100")) {
		t.Errorf("document allocation = (%s, %s%%), want (1000, 100%%)", value, percent)
	}

	rows, err := pool.Query(ctx, `
		SELECT p.valor_parcela, r.valor, r.percentual
		FROM contas_pagar_rateio_parcelas r
		JOIN contas_pagar_parcelas p ON p.id = r.parcela_id
		WHERE r.conta_pagar_id = $1
		ORDER BY p.id`, docID)
	if err != nil {
		t.Fatalf("query installment allocations: %v", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var installmentValue, allocValue, allocPct decimal.Decimal
		if err := rows.Scan(&installmentValue, &allocValue, &allocPct); err != nil {
			t.Fatalf("scan: %v", err)
		}
		if !allocValue.Equal(installmentValue) {
			t.Errorf("installment allocation %s != installment value %s", allocValue, installmentValue)
		}
		if !allocPct.Equal(decimal.RequireFromString("100")) {
			t.Errorf("installment allocation percent = %s, want 100", allocPct)
		}
		count++
	}
	if count != 2 {
		t.Errorf("installment allocations = %d, want 2", count)
	}
}

func TestCreatePayable_ExplicitAllocationFanOut(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newPayableService(pool)
	ctx := context.Background()

	docID, err := svc.Create(ctx, core.CreatePayableInput{
		Header: baseHeader("1000"),
		Installments: []core.InstallmentInput{
			{Title: "1/2", Value: decimal.RequireFromString("600"), Status: core.StatusPending},
			{Title: "2/2", Value: decimal.RequireFromString("400"), Status: core.StatusPending},
		},
		AccountAllocations: []core.AllocationInput{
			{TargetID: 1, Value: decimal.RequireFromString("700"), Percent: decimal.RequireFromString("70")},
			{TargetID: 2, Value: decimal.RequireFromString("300"), Percent: decimal.RequireFromString("30")},
		},
		Actor: "tester",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	type allocRow struct{ value, percent string }
	want := map[string]allocRow{
		"600|1": {"420", "70"},
		"600|2": {"180", "30"},
		"400|1": {"280", "70"},
		"400|2": {"120", "30"},
	}

	rows, err := pool.Query(ctx, `
		SELECT p.valor_parcela::text, r.plano_conta_id, r.valor, r.percentual
		FROM contas_pagar_rateio_parcelas r
		JOIN contas_pagar_parcelas p ON p.id = r.parcela_id
		WHERE r.conta_pagar_id = $1`, docID)
	if err != nil {
		t.Fatalf("query installment allocations: %v", err)
	}
	defer rows.Close()

	seen := 0
	for rows.Next() {
		var installmentValue string
		var targetID int
		var value, percent decimal.Decimal
		if err := rows.Scan(&installmentValue, &targetID, &value, &percent); err != nil {
			t.Fatalf("scan: %v", err)
		}
		key := decimal.RequireFromString(installmentValue).StringFixed(0) + "|" + strconv.Itoa(targetID)
		w, ok := want[key]
		if !ok {
			t.Fatalf("unexpected allocation row %s", key)
		}
		if !value.Equal(decimal.RequireFromString(w.value)) || !percent.Equal(decimal.RequireFromString(w.percent)) {
			t.Errorf("allocation %s = (%s, %s%%), want (%s, %s%%)", key, value, percent, w.value, w.percent)
		}
		seen++
	}
	if seen != 4 {
		t.Errorf("installment allocation rows = %d, want 4", seen)
	}

	if n := countRows(t, pool, "contas_pagar_rateio"); n != 2 {
		t.Errorf("document allocation rows = %d, want 2", n)
	}
}

func TestCreatePayable_MovementIdempotency(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newPayableService(pool)
	ctx := context.Background()

	total := decimal.RequireFromString("500")
	docID, err := svc.Create(ctx, core.CreatePayableInput{
		Header: baseHeader("500"),
		Installments: []core.InstallmentInput{{
			Title:         "1/1",
			Value:         total,
			TotalValue:    &total,
			Status:        core.StatusPaid,
			PaymentDate:   datePtr("2026-08-10"),
			ClearingDate:  datePtr("2026-08-11"),
			BankAccountID: intPtr(1),
		}},
		Actor: "tester",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	var installmentID int
	if err := pool.QueryRow(ctx,
		"SELECT id FROM contas_pagar_parcelas WHERE conta_pagar_id = $1", docID,
	).Scan(&installmentID); err != nil {
		t.Fatalf("fetch installment: %v", err)
	}

	// Re-run synthesis for the very same installment id; the partial unique
	// index must absorb the duplicate insert as a no-op.
	synth := core.NewMovementSynthesizer(core.NewBalanceRecalculator(), core.NewAuditLog())
	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	created, err := synth.SynthesizeForPaid(ctx, tx, docID, 1, []core.CreatedInstallment{{
		ID: installmentID,
		InstallmentInput: core.InstallmentInput{
			Title:         "1/1",
			Value:         total,
			TotalValue:    &total,
			Status:        core.StatusPaid,
			ClearingDate:  datePtr("2026-08-11"),
			BankAccountID: intPtr(1),
		},
	}}, "tester")
	if err != nil {
		t.Fatalf("second synthesis failed: %v", err)
	}
	if created != 0 {
		t.Errorf("second synthesis created %d movements, want 0", created)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	var count int
	var value decimal.Decimal
	if err := pool.QueryRow(ctx, `
		SELECT count(*), COALESCE(MAX(valor), 0)
		FROM movimentacoes_bancarias
		WHERE origem_tela = 'contas_pagar_parcelas' AND parcela_id = $1`, installmentID,
	).Scan(&count, &value); err != nil {
		t.Fatalf("count movements: %v", err)
	}
	if count != 1 {
		t.Errorf("movements for installment = %d, want exactly 1", count)
	}
	if !value.Equal(decimal.RequireFromString("500")) {
		t.Errorf("movement value = %s, want 500.00", value)
	}
}

func TestCreatePayable_SkipsMovementWithoutBankAccount(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newPayableService(pool)
	ctx := context.Background()

	_, err := svc.Create(ctx, core.CreatePayableInput{
		Header: baseHeader("300"),
		Installments: []core.InstallmentInput{{
			Title:       "1/1",
			Value:       decimal.RequireFromString("300"),
			Status:      core.StatusPaid,
			PaymentDate: datePtr("2026-08-10"),
			// no bank account: movement must be skipped, not errored
		}},
		Actor: "tester",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if n := countRows(t, pool, "movimentacoes_bancarias"); n != 0 {
		t.Errorf("movements = %d, want 0", n)
	}
}

func TestCreatePayable_BalancesRecomputed(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newPayableService(pool)
	ctx := context.Background()

	_, err := svc.Create(ctx, core.CreatePayableInput{
		Header: baseHeader("250"),
		Installments: []core.InstallmentInput{{
			Title:         "1/1",
			Value:         decimal.RequireFromString("250"),
			Status:        core.StatusPaid,
			PaymentDate:   datePtr("2026-08-10"),
			BankAccountID: intPtr(1),
		}},
		Actor: "tester",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	synth := core.NewMovementSynthesizer(core.NewBalanceRecalculator(), core.NewAuditLog())
	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	movements, err := synth.MovementsForAccount(ctx, tx, 1)
	if err != nil {
		t.Fatalf("fetch movements: %v", err)
	}
	if len(movements) != 1 {
		t.Fatalf("movements = %d, want 1", len(movements))
	}
	mv := movements[0]
	if mv.Direction != core.MovementOut {
		t.Errorf("direction = %s, want saida", mv.Direction)
	}
	if !mv.PriorBalance.IsZero() {
		t.Errorf("prior balance = %s, want 0", mv.PriorBalance)
	}
	if !mv.PosteriorBalance.Equal(decimal.RequireFromString("-250")) {
		t.Errorf("posterior balance = %s, want -250.00", mv.PosteriorBalance)
	}
	if mv.OriginScreen == nil || *mv.OriginScreen != "contas_pagar_parcelas" {
		t.Errorf("origin screen not tagged: %v", mv.OriginScreen)
	}
}

func TestCreatePayable_ValidationFailureLeavesNoState(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newPayableService(pool)
	ctx := context.Background()

	header := baseHeader("100")
	header.TotalValue = decimal.Zero

	_, err := svc.Create(ctx, core.CreatePayableInput{
		Header: header,
		Installments: []core.InstallmentInput{
			{Title: "1/1", Value: decimal.RequireFromString("100"), Status: core.StatusPending},
		},
		Actor: "tester",
	})
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Field != "totalValue" {
		t.Errorf("validation field = %s, want totalValue", vErr.Field)
	}

	for _, table := range []string{"contas_pagar", "contas_pagar_parcelas",
		"contas_pagar_rateio", "contas_pagar_rateio_parcelas", "movimentacoes_bancarias", "historico"} {
		if n := countRows(t, pool, table); n != 0 {
			t.Errorf("%s has %d rows after failed validation, want 0", table, n)
		}
	}
}

func TestCreatePayable_RollsBackOnBadReference(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newPayableService(pool)
	ctx := context.Background()

	_, err := svc.Create(ctx, core.CreatePayableInput{
		Header: baseHeader("100"),
		Installments: []core.InstallmentInput{{
			Title:         "1/1",
			Value:         decimal.RequireFromString("100"),
			Status:        core.StatusPaid,
			PaymentDate:   datePtr("2026-08-10"),
			BankAccountID: intPtr(999), // violates the bank account FK
		}},
		Actor: "tester",
	})
	if err == nil {
		t.Fatal("expected failure on dangling bank account reference")
	}

	// The header insert succeeded mid-transaction; rollback must erase it.
	for _, table := range []string{"contas_pagar", "contas_pagar_parcelas", "movimentacoes_bancarias", "historico"} {
		if n := countRows(t, pool, table); n != 0 {
			t.Errorf("%s has %d rows after rollback, want 0", table, n)
		}
	}
}

func TestCreatePayable_NoAllocationTargets(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newPayableService(pool)
	ctx := context.Background()

	_, err := svc.Create(ctx, core.CreatePayableInput{
		Header: baseHeader("100"),
		Installments: []core.InstallmentInput{
			{Title: "1/1", Value: decimal.RequireFromString("100"), Status: core.StatusPending},
		},
		Actor: "tester",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	for _, table := range []string{"contas_pagar_rateio", "contas_pagar_rateio_parcelas",
		"contas_pagar_rateio_cc", "contas_pagar_rateio_cc_parcelas"} {
		if n := countRows(t, pool, table); n != 0 {
			t.Errorf("%s has %d rows, want 0 (no allocation targets supplied)", table, n)
		}
	}
}

func TestFindInstallmentIDByTitle(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := newPayableService(pool)
	ctx := context.Background()

	docID, err := svc.Create(ctx, core.CreatePayableInput{
		Header: baseHeader("300"),
		Installments: []core.InstallmentInput{
			{Title: "parcela", Value: decimal.RequireFromString("100"), Status: core.StatusPending},
			{Title: "parcela", Value: decimal.RequireFromString("200"), Status: core.StatusPending},
		},
		Actor: "tester",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	store := core.NewPayableStore()
	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	// Duplicate titles resolve to the lowest id.
	id, err := store.FindInstallmentIDByTitle(ctx, tx, docID, "parcela")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if id == nil {
		t.Fatal("lookup returned nil for existing title")
	}
	var lowest int
	if err := tx.QueryRow(ctx,
		"SELECT MIN(id) FROM contas_pagar_parcelas WHERE conta_pagar_id = $1", docID,
	).Scan(&lowest); err != nil {
		t.Fatalf("min id: %v", err)
	}
	if *id != lowest {
		t.Errorf("lookup id = %d, want lowest id %d", *id, lowest)
	}

	missing, err := store.FindInstallmentIDByTitle(ctx, tx, docID, "inexistente")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if missing != nil {
		t.Errorf("lookup for missing title = %v, want nil", *missing)
	}
}
