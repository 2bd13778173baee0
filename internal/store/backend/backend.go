// Package backend opens the store selected in the configuration.
package backend

import (
	"github.com/learnforge/trainingportal/internal/conf"
	"github.com/learnforge/trainingportal/internal/errors"
	"github.com/learnforge/trainingportal/internal/logger"
	"github.com/learnforge/trainingportal/internal/observability/metrics"
	"github.com/learnforge/trainingportal/internal/store"
	"github.com/learnforge/trainingportal/internal/store/jsonstore"
	"github.com/learnforge/trainingportal/internal/store/sqlstore"
)

// Open returns the configured store and a close func that releases it
func Open(settings *conf.StorageSettings, m *metrics.StoreMetrics) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch settings.Backend {
	case conf.BackendJSON, "":
		s, err := jsonstore.New(settings.DataDir,
			jsonstore.WithLockMode(settings.LockMode),
			jsonstore.WithMetrics(m))
		if err != nil {
			return nil, noop, err
		}
		logger.Global().Module("store").Info("using json store",
			logger.String("dir", settings.DataDir),
			logger.String("lock_mode", settings.LockMode))
		return s, noop, nil

	case conf.BackendSQLite:
		s, err := sqlstore.OpenSQLite(settings.SQLite.Path, sqlstore.WithMetrics(m))
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil

	case conf.BackendMySQL:
		s, err := sqlstore.OpenMySQL(settings.MySQL, sqlstore.WithMetrics(m))
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	}

	return nil, noop, errors.Newf("unsupported storage backend %q", settings.Backend).
		Component("store").
		Category(errors.CategoryConfiguration).
		Build()
}
