package cmd

import (
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/attendance"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/kozaktomas/face-attendance/internal/database/memory"
	"github.com/kozaktomas/face-attendance/internal/database/postgres"
	"github.com/kozaktomas/face-attendance/internal/recognize"
	"github.com/kozaktomas/face-attendance/internal/storage"
)

// buildService wires the attendance service from configuration. With a
// DATABASE_URL set it connects to PostgreSQL and applies pending migrations;
// without one it falls back to in-memory repositories, which lose all state
// on exit and only suit local experiments.
func buildService(cfg *config.Config) (*attendance.Service, func(), error) {
	mode, err := database.ParseLedgerMode(cfg.Ledger.Mode)
	if err != nil {
		return nil, nil, err
	}

	images, err := storage.NewImageStore(cfg.Storage.UploadDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open upload dir: %w", err)
	}

	oracle := recognize.NewClient(&cfg.Oracle)

	var (
		identities database.IdentityRepository
		ledger     database.AttendanceRepository
		cleanup    = func() {}
	)

	if cfg.Database.URL == "" {
		fmt.Println("DATABASE_URL not set, using in-memory storage (state is lost on exit)")
		store := memory.NewIdentityStore()
		identities = store
		ledger = memory.NewAttendanceStore(store, mode, cfg.Ledger.Cooldown())
	} else {
		fmt.Println("Connecting to PostgreSQL database...")
		pool, err := postgres.Initialize(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
		}
		identities = postgres.NewIdentityRepository(pool)
		ledger = postgres.NewAttendanceRepository(pool, mode, cfg.Ledger.Cooldown())
		cleanup = func() { pool.Close() }
	}

	service := attendance.NewService(identities, ledger, oracle, images, mode)
	return service, cleanup, nil
}
