package main

import (
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/jmwansa/storecore-backend/internal/keylock"
	"github.com/jmwansa/storecore-backend/internal/modules/auth"
	"github.com/jmwansa/storecore-backend/internal/modules/catalog"
	"github.com/jmwansa/storecore-backend/internal/modules/customer"
	"github.com/jmwansa/storecore-backend/internal/modules/employee"
	"github.com/jmwansa/storecore-backend/internal/modules/ledger"
	"github.com/jmwansa/storecore-backend/internal/modules/reservation"
	"github.com/jmwansa/storecore-backend/internal/modules/stock"
	"github.com/jmwansa/storecore-backend/internal/modules/store"
	"github.com/jmwansa/storecore-backend/internal/modules/txn"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Println("no .env file found, using process environment")
	}

	db, err := sql.Open("postgres", os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}
	fmt.Println("Successfully connected to the database!")

	// ── Router ──────────────────────────────────────────────
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	// ── Identity ────────────────────────────────────────────
	customerRepo := customer.NewPostgresRepository(db)
	accountRepo := customer.NewAccountPostgresRepository(db)
	customerService := customer.NewService(customerRepo, accountRepo)
	customer.NewHandler(customerService).RegisterRoutes(router)

	authService := auth.NewService(accountRepo)
	auth.NewHandler(authService).RegisterRoutes(router)

	// ── Catalog, stores & staff ─────────────────────────────
	catalogRepo := catalog.NewPostgresRepository(db)
	priceRepo := catalog.NewPricePostgresRepository(db)
	catalogService := catalog.NewService(catalogRepo, priceRepo)
	catalog.NewHandler(catalogService).RegisterRoutes(router)

	storeRepo := store.NewPostgresRepository(db)
	storeService := store.NewService(storeRepo)
	store.NewHandler(storeService).RegisterRoutes(router)

	employeeRepo := employee.NewPostgresRepository(db)
	employeeService := employee.NewService(employeeRepo)
	employee.NewHandler(employeeService).RegisterRoutes(router)

	// ── Inventory consistency engine ────────────────────────
	locks := keylock.NewMap()
	ledgerStore := ledger.NewPostgresStore(db)

	holds := reservation.NewManager(ledgerStore, locks)
	holds.StartSweeper(envDuration("SWEEP_INTERVAL_SECONDS", 30*time.Second))
	defer holds.Stop()
	reservation.NewHandler(holds).RegisterRoutes(router)

	projector := stock.NewProjector(ledgerStore, holds, locks)
	stock.NewHandler(projector).RegisterRoutes(router)

	txnRepo := txn.NewPostgresRepository(db)
	coordinator := txn.NewCoordinator(ledgerStore, holds, projector, txnRepo, locks, txn.Config{
		HoldTTL:       envDuration("HOLD_TTL_SECONDS", 60*time.Second),
		LockTimeout:   envDuration("LOCK_TIMEOUT_SECONDS", 5*time.Second),
		AppendTimeout: envDuration("APPEND_TIMEOUT_SECONDS", 10*time.Second),
	})
	txn.NewHandler(coordinator).RegisterRoutes(router)

	// ── Start Server ─────────────────────────────────────────
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf("StoreCore API server starting on :%s\n", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}

func envDuration(name string, fallback time.Duration) time.Duration {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		log.Printf("ignoring invalid %s=%q", name, raw)
		return fallback
	}
	return time.Duration(seconds) * time.Second
}
