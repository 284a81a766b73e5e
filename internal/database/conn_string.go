package database

import (
	"fmt"
	"net/url"

	"github.com/rickgao/ashare-data/internal/config"
)

// ConnString renders a Timescale/PostgreSQL URL from config. The ssl_mode
// default is "prefer" so local docker instances work without config while
// hosted ones still negotiate TLS. The application_name tags this service's
// connections in pg_stat_activity.
func ConnString(cfg config.DBConfig) string {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	// Credentials may carry URL metacharacters (e.g. from env expansion).
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s&application_name=ashare-data",
		url.QueryEscape(cfg.User),
		url.QueryEscape(cfg.Password),
		cfg.Host,
		cfg.Port,
		cfg.Name,
		sslMode,
	)
}
