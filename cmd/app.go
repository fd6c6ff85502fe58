package cmd

import (
	"context"
	"database/sql"
	"fmt"

	"rental/internal/config"
	"rental/internal/obs"
	"rental/internal/queue"
	"rental/internal/repositories"
	"rental/internal/services"
	"rental/internal/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

// app holds the process-wide resources every command needs.
type app struct {
	env config.Env
	db  *sql.DB

	conn   *amqp.Connection
	expiry *queue.ExpiryQueue
	events *queue.Publisher

	shutdownTracer func(context.Context) error
}

func bootstrap(ctx context.Context, withQueue bool) (*app, error) {
	env, err := config.LoadEnv()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	utils.ConfigureLogger(env.LogLevel, env.LogJSON)

	shutdown, err := obs.InitTracer(ctx, "rental", env.OtelEndpoint, env.OtelEnabled)
	if err != nil {
		return nil, err
	}

	db, err := config.ConnectDB(env.DBDSN)
	if err != nil {
		_ = shutdown(ctx)
		return nil, err
	}
	a := &app{env: env, db: db, shutdownTracer: shutdown}

	if withQueue && env.QueueEnabled() {
		if err := a.openQueue(); err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	return a, nil
}

func (a *app) openQueue() error {
	conn, err := queue.Dial(a.env.RabbitURL)
	if err != nil {
		return err
	}
	a.conn = conn
	a.expiry, err = queue.NewExpiryQueue(conn, a.env.ExpiryExchange, a.env.ExpiryQueue, utils.SystemClock{})
	if err != nil {
		return err
	}
	a.events, err = queue.NewPublisher(conn, a.env.EventsExchange)
	return err
}

func (a *app) bookingStore() repositories.BookingRepository {
	return repositories.BookingRepository{DB: a.db}
}

// eventPublisher returns nil when the broker is not configured.
func (a *app) eventPublisher() services.EventPublisher {
	if a.events == nil {
		return nil
	}
	return a.events
}

func (a *app) expiryArmer() services.ExpiryArmer {
	if a.expiry == nil {
		return nil
	}
	return a.expiry
}

func (a *app) expiryService(requestID string) services.ExpiryService {
	return services.ExpiryService{
		Bookings:  a.bookingStore(),
		Events:    a.eventPublisher(),
		Clock:     utils.SystemClock{},
		Timeout:   a.env.BookingTimeout,
		BatchSize: a.env.SweepBatchSize,
		RequestID: requestID,
	}
}

func (a *app) Close(ctx context.Context) {
	if a.events != nil {
		_ = a.events.Close()
	}
	if a.expiry != nil {
		_ = a.expiry.Close()
	}
	if a.conn != nil {
		_ = a.conn.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.shutdownTracer != nil {
		_ = a.shutdownTracer(ctx)
	}
}
