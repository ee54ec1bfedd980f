package middleware

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rabbitmq/amqp091-go"

	"github.com/accredmap/backend/pkg/match"
	"github.com/accredmap/backend/pkg/standards"
	"github.com/accredmap/backend/pkg/store"
	"github.com/accredmap/backend/pkg/trust"
)

// App bundles the long-lived dependencies handlers reach for. Queue may be
// nil when the process runs without RabbitMQ; handlers then execute jobs
// inline instead of publishing them.
type App struct {
	DBConn    *pgxpool.Pool
	Queue     *amqp091.Channel
	Graph     *standards.Graph
	Engine    *match.Engine
	Mappings  store.MappingStore
	Trust     *trust.Aggregator
	CorpusDir string
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cc := &AppContext{c, app}
			return next(cc)
		}
	}
}
