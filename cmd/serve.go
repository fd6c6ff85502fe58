package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental/internal/db"
	api "rental/internal/http"
	"rental/internal/http/handlers"
	"rental/internal/http/middleware"
	"rental/internal/processor"
	"rental/internal/queue"
	"rental/internal/repositories"
	"rental/internal/scheduler"
	"rental/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the expiry worker and the sweep",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := bootstrap(ctx, true)
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			env := a.env

			if env.GinMode != "" {
				gin.SetMode(env.GinMode)
			}
			if migrateUp {
				if err := db.Migrate(ctx, a.db); err != nil {
					return err
				}
			}

			proc, err := processor.NewOmise(env.OmisePublicKey, env.OmiseSecretKey, env.PaymentReturnURI)
			if err != nil {
				return err
			}

			sweeper := scheduler.Sweeper{Sweep: a.expiryService("").Sweep, Interval: env.SweepInterval}
			go func() { _ = sweeper.Run(ctx) }()

			if a.expiry != nil {
				deliveries, err := a.expiry.Deliveries(ctx, 16)
				if err != nil {
					return err
				}
				worker := queue.ExpiryWorker{Expiry: a.expiryService("")}
				go func() { _ = worker.Run(ctx, deliveries) }()
			} else {
				utils.LogEvent("", "serve", "start", "RABBIT_URL not set, relying on periodic sweep for expiry")
			}

			hd := handlers.New(handlers.Deps{
				Bookings:       a.bookingStore(),
				Payments:       repositories.PaymentRepository{DB: a.db},
				Vehicles:       repositories.VehicleRepository{DB: a.db},
				Users:          repositories.UserRepository{DB: a.db},
				Processor:      proc,
				Expiry:         a.expiryArmer(),
				Events:         a.eventPublisher(),
				Clock:          utils.SystemClock{},
				DB:             a.db,
				BookingTimeout: env.BookingTimeout,
				SweepBatchSize: env.SweepBatchSize,
				Currency:       env.PaymentCurrency,
				WebhookSecret:  env.WebhookSecret,
			})
			r := api.NewRouter(api.RouterConfig{
				AllowedOrigins: env.CORSAllowedOrigins,
				JWTSecret:      []byte(env.JWTSecret),
				RateLimit: middleware.RateLimitConfig{
					Requests: env.RateLimitRequests,
					Window:   env.RateLimitWindow,
				},
			}, hd)

			srv := &http.Server{
				Addr:              env.AppAddr,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       20 * time.Second,
				WriteTimeout:      20 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				utils.LogEvent("", "serve", "start", "listening on "+env.AppAddr)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			utils.LogEvent("", "serve", "stop", "shutting down")
			shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "run database migrations on startup")
	return cmd
}
