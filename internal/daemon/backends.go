package daemon

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/metcod/metcod/internal/backend"
	"github.com/metcod/metcod/internal/backend/console"
	pgbackend "github.com/metcod/metcod/internal/backend/postgres"
	"github.com/metcod/metcod/internal/config"
)

// BuildFactory returns a BackendFactory that instantiates every
// enabled backend afresh each flush, in the config's declared order.
// A backend that fails to instantiate is logged and skipped; the
// frame still reaches the remaining backends.
func BuildFactory(backends config.Backends, log zerolog.Logger) BackendFactory {
	return func(ctx context.Context) []backend.Backend {
		var built []backend.Backend

		for _, nb := range backends.Enabled {
			b, err := instantiate(ctx, nb, log)
			if err != nil {
				log.Error().Err(err).Str("backend", nb.Name).Msg("skipping backend for this flush")
				continue
			}
			built = append(built, b)
		}

		return built
	}
}

func instantiate(ctx context.Context, nb config.NamedBackend, log zerolog.Logger) (backend.Backend, error) {
	switch nb.Config.Type {
	case config.BackendConsole:
		return console.New(), nil

	case config.BackendPostgreSQL:
		return pgbackend.New(ctx, pgbackend.Config{
			Host:     nb.Config.Host,
			Port:     nb.Config.Port,
			User:     nb.Config.User,
			Password: nb.Config.Password,
			DBName:   nb.Config.DBName,
		}, log)

	default:
		return nil, unknownBackendType(nb.Config.Type)
	}
}

type unknownBackendType config.BackendKind

func (k unknownBackendType) Error() string {
	return "unknown backend type: " + string(k)
}
