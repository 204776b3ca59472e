// Package db selects the concrete database driver from the instance profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/ngxlabs/ngx-agents/internal/profile"
	"github.com/ngxlabs/ngx-agents/store"
	"github.com/ngxlabs/ngx-agents/store/db/postgres"
	"github.com/ngxlabs/ngx-agents/store/db/sqlite"
)

// NewDBDriver creates a new database driver based on the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "sqlite":
		return sqlite.NewDB(profile)
	case "postgres":
		return postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported database driver: %s", profile.Driver)
	}
}
