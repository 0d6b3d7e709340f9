package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/md-rashed-zaman/barberq/libs/config"
	"github.com/md-rashed-zaman/barberq/libs/runtime"
	bookingmigrations "github.com/md-rashed-zaman/barberq/services/booking-service/migrations"
	notificationmigrations "github.com/md-rashed-zaman/barberq/services/notification-service/migrations"
)

// usage: migrate -service booking|notification [up|down|version|force <version>]
func main() {
	_ = runtime.LoadDotEnv()
	service := flag.String("service", "booking", "schema to migrate: booking or notification")
	flag.Parse()
	logger := runtime.NewLogger("migrate")

	if err := run(*service, flag.Args()); err != nil {
		logger.Error("migration failed", "service", *service, "err", err)
		os.Exit(1)
	}
}

func run(service string, args []string) error {
	source, err := sourceFor(service)
	if err != nil {
		return err
	}
	databaseURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		return err
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer func() { _ = db.Close() }()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("db driver: %w", err)
	}
	srcDriver, err := iofs.New(source, ".")
	if err != nil {
		return fmt.Errorf("source driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	cmd := "up"
	if len(args) > 0 {
		cmd = args[0]
	}
	switch cmd {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "version":
		version, dirty, verr := m.Version()
		if verr != nil && !errors.Is(verr, migrate.ErrNilVersion) {
			return verr
		}
		fmt.Printf("version=%d dirty=%t\n", version, dirty)
		return nil
	case "force":
		if len(args) < 2 {
			return errors.New("force needs a version")
		}
		version, perr := strconv.Atoi(args[1])
		if perr != nil {
			return fmt.Errorf("invalid version: %w", perr)
		}
		if err := m.Force(version); err != nil {
			return fmt.Errorf("force version: %w", err)
		}
		fmt.Printf("forced version to %d\n", version)
		return nil
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate %s: %w", cmd, err)
	}
	fmt.Printf("%s migrations complete (%s)\n", service, cmd)
	return nil
}

func sourceFor(service string) (fs.FS, error) {
	switch service {
	case "booking":
		return bookingmigrations.FS, nil
	case "notification":
		return notificationmigrations.FS, nil
	default:
		return nil, fmt.Errorf("unknown service %q", service)
	}
}
