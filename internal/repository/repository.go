// Package repository provides methods to work with DB
package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"path/filepath"
	"strconv"
	"time"

	"github.com/UnendingLoop/PhotoSigner/internal/model"
	"github.com/UnendingLoop/PhotoSigner/internal/repository/imgpostgres"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"
)

// PhotoRepo stores signing tasks.
type PhotoRepo interface {
	Create(ctx context.Context, p *model.Photo) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*model.Photo, error)
	GetList(ctx context.Context, req *model.ListRequest) ([]model.Photo, error)
	SaveResult(ctx context.Context, p *model.Photo) error
	UpdateStatus(ctx context.Context, id string, newStat model.Status) error
	FetchOrphans(ctx context.Context, limit int) ([]string, error)
}

func NewPostgresPhotoRepo(dbconn *dbpg.DB) PhotoRepo {
	return imgpostgres.PostgresRepo{DB: dbconn}
}

// ConnectWithRetries opens the photos DB and checks it answers a ping. Pool size is taken
// from POSTGRES_MAX_CONNS (default 5): the worker and api share one Postgres.
func ConnectWithRetries(appConfig *config.Config, retryCount int, idleTime time.Duration) *dbpg.DB {
	conns := 5
	if v, err := strconv.Atoi(appConfig.GetString("POSTGRES_MAX_CONNS")); err == nil && v > 0 {
		conns = v
	}
	dbOptions := dbpg.Options{
		MaxOpenConns:    conns,
		MaxIdleConns:    conns,
		ConnMaxLifetime: 10 * time.Minute,
	}
	dsn := appConfig.GetString("POSTGRES_DSN")

	for i := 1; i <= retryCount; i++ {
		dbConn, err := dbpg.New(dsn, nil, &dbOptions)
		if err == nil {
			if err = pingDB(dbConn.Master, idleTime); err == nil {
				return dbConn
			}
			_ = dbConn.Master.Close()
		}
		log.Printf("PGDB connection try #%d failed: %v", i, err)
		if i < retryCount {
			time.Sleep(idleTime)
		}
	}

	log.Fatal("Failed to connect to DB. Exiting the app...")
	return nil
}

func pingDB(db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return db.PingContext(ctx)
}

func MigrateWithRetries(db *sql.DB, migrationsPath string, retries int, idle time.Duration) {
	for i := 1; i <= retries; i++ {
		log.Printf("Migration try #%d...", i)
		err := runMigrate(db, migrationsPath)
		if err == nil {
			return
		}
		log.Printf("Migration try #%d was unsuccessful: %v", i, err)
		if i < retries {
			log.Printf("Waiting %v before next try...", idle)
			time.Sleep(idle)
		}
	}
	log.Fatalln("Out of migration retries. Exiting...")
}

func runMigrate(db *sql.DB, migrationsPath string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	absPath, err := filepath.Abs(migrationsPath)
	if err != nil {
		return err
	}

	sourceURL := "file://" + absPath
	log.Println("Running migrations from:", sourceURL)

	m, err := migrate.NewWithDatabaseInstance(
		sourceURL,
		"postgres",
		driver,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	log.Println("Database migrations applied successfully")
	return nil
}
