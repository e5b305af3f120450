package main

import (
	"context"
	"log"
	"net/http"
	"os"

	webAdapter "payables-service/internal/adapters/web"
	"payables-service/internal/app"
	"payables-service/internal/core"
	"payables-service/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	// Apply the movement-origin DDL up front so requests only ever hit the
	// guard's cached no-op path.
	schema := core.NewSchemaGuard(pool)
	if err := schema.Ensure(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}

	payables := core.NewPayableService(
		pool,
		schema,
		core.NewPayableStore(),
		core.NewMovementSynthesizer(core.NewBalanceRecalculator(), core.NewAuditLog()),
		core.NewAllocationDistributor(),
		core.NewAuditLog(),
	)

	svc := app.NewAppService(pool, payables)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	access := webAdapter.StaticTokenValidator{Token: os.Getenv("API_TOKEN")}
	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, access, allowedOrigins)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
