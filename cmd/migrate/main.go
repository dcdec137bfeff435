package main

import (
	"flag"
	"log"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/dcc-ufba/monitoria-api/pkg/config"
	"github.com/dcc-ufba/monitoria-api/pkg/database"
)

func main() {
	var (
		dir     = flag.String("dir", "migrations", "migrations directory")
		down    = flag.Bool("down", false, "roll back one migration instead of applying all")
		version = flag.Bool("version", false, "print current schema version and exit")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db.DB, &postgres.Config{})
	if err != nil {
		log.Fatalf("failed to init migration driver: %v", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+*dir, cfg.Database.Name, driver)
	if err != nil {
		log.Fatalf("failed to init migrations: %v", err)
	}

	if *version {
		v, dirty, err := m.Version()
		if err != nil && err != migrate.ErrNilVersion {
			log.Fatalf("failed to read version: %v", err)
		}
		log.Printf("schema version: %d (dirty: %v)", v, dirty)
		return
	}

	if *down {
		if err := m.Steps(-1); err != nil && err != migrate.ErrNoChange {
			log.Fatalf("rollback failed: %v", err)
		}
		log.Println("rolled back one migration")
		return
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		log.Fatalf("migration failed: %v", err)
	}
	log.Println("migrations applied")
}
