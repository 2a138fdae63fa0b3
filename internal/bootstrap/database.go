package bootstrap

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/jonesrussell/crawljobs/internal/config"
	"github.com/jonesrussell/crawljobs/internal/store"
)

// DatabaseComponents holds the State Store's connection and repositories.
type DatabaseComponents struct {
	DB            *sqlx.DB
	Jobs          *store.JobStore
	Schedules     *store.ScheduleStore
	Notifications *store.NotificationStore
}

// SetupDatabase connects to Postgres, applies pending migrations, and
// constructs the State Store's repositories.
func SetupDatabase(cfg config.Interface) (*DatabaseComponents, error) {
	db, err := store.Connect(cfg.GetPostgresConfig())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := store.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	return &DatabaseComponents{
		DB:            db,
		Jobs:          store.NewJobStore(db),
		Schedules:     store.NewScheduleStore(db),
		Notifications: store.NewNotificationStore(db),
	}, nil
}
