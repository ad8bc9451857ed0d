package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

var retryInterval = 2 * time.Second

// WaitForDatabase pings db until it answers or retries attempts are used up.
func WaitForDatabase(db *sql.DB, retries int, log zerolog.Logger) error {
	if retries < 1 {
		retries = 1
	}

	var err error
	for i := 0; i < retries; i++ {
		if err = db.Ping(); err == nil {
			log.Debug().Int("attempt", i+1).Msg("database is ready")
			return nil
		}

		log.Warn().Err(err).Int("attempt", i+1).Int("of", retries).Msg("database not ready")
		if i < retries-1 {
			time.Sleep(retryInterval)
		}
	}
	return fmt.Errorf("database not ready after %d attempts: %w", retries, err)
}
