package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"github.com/shop24h/shop24h/cmd/cmdutil"
	"github.com/shop24h/shop24h/db"
	"github.com/shop24h/shop24h/internal/api"
	"github.com/shop24h/shop24h/internal/cart"
	"github.com/shop24h/shop24h/internal/gateway"
	"github.com/shop24h/shop24h/internal/job"
	"github.com/shop24h/shop24h/internal/order"
	"github.com/shop24h/shop24h/internal/product"
	"golang.org/x/sync/errgroup"
)

var (
	Port               = cmdutil.EnvValue("PORT", "8080")
	DBConnectionString = cmdutil.EnvValue("DB_CONNECTION_STRING", "host=localhost port=5432 user=admin password=pass dbname=shop24h sslmode=disable")
	AdminAPIKey        = cmdutil.EnvValue("ADMIN_API_KEY", "local-admin-key")
	AllowedOrigin      = cmdutil.EnvValue("ALLOWED_ORIGIN", "http://localhost:3000")

	ZaloPayAppID           = cmdutil.EnvValue("ZALOPAY_APP_ID", "2554")
	ZaloPayKey1            = cmdutil.EnvValue("ZALOPAY_KEY1", "sdngKKJmqEMzvh5QQcdD2A9XBSKUNaYn")
	ZaloPayKey2            = cmdutil.EnvValue("ZALOPAY_KEY2", "trMrHtvjo6myautxDUiAcYsVtaeQ8nhf")
	ZaloPayEndpoint        = cmdutil.EnvValue("ZALOPAY_ENDPOINT", "https://sb-openapi.zalopay.vn/v2/create")
	ZaloPayQueryEndpoint   = cmdutil.EnvValue("ZALOPAY_QUERY_ENDPOINT", "https://sb-openapi.zalopay.vn/v2/query")
	ZaloPayCallbackURL     = cmdutil.EnvValue("ZALOPAY_CALLBACK_URL", "http://localhost:8080/payments/gateway/callback")
	ZaloPayRedirectBaseURL = cmdutil.EnvValue("ZALOPAY_REDIRECT_BASE_URL", "http://localhost:3000/orders")
)

func main() {
	slog.SetDefault(cmdutil.Logger())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gormDB, err := cmdutil.DB(DBConnectionString)
	if err != nil {
		slog.Error("failed connecting to database", "error", err)
		os.Exit(1)
	}

	if err := cmdutil.Migrate(gormDB, db.Migrations); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	zaloPay := gateway.NewZaloPay(gateway.Config{
		AppID:           ZaloPayAppID,
		Key1:            ZaloPayKey1,
		Key2:            ZaloPayKey2,
		Endpoint:        ZaloPayEndpoint,
		QueryEndpoint:   ZaloPayQueryEndpoint,
		CallbackURL:     ZaloPayCallbackURL,
		RedirectBaseURL: ZaloPayRedirectBaseURL,
	}, nil)

	jobStorage := job.NewStorage(gormDB)
	orderStorage := order.NewStorage(gormDB)
	productStorage := product.NewStorage(gormDB)
	cartService := cart.NewService(gormDB)

	scheduler := job.NewScheduler(jobStorage)
	productService := product.NewService(productStorage, orderStorage)
	orderService := order.NewService(orderStorage, cartService, productService, zaloPay, scheduler)

	scheduler.Register(job.TypeCancelOrder, orderService.CancelExpired)
	scheduler.Register(job.TypeUpdateProductRatingAndSale, func(ctx context.Context, _ string) error {
		return productService.RefreshRatingsAndSales(ctx)
	})
	scheduler.Register(job.TypePublishProduct, func(ctx context.Context, referenceID string) error {
		return productService.Publish(ctx, referenceID)
	})

	// Missed jobs must run before the server accepts traffic, otherwise a
	// request could observe an order the expiry job should have cancelled.
	if err := scheduler.Recover(ctx); err != nil {
		slog.Error("failed to recover scheduled jobs", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	order.NewServer(orderService).Register(mux)
	gateway.NewServer(zaloPay, orderService).Register(mux)

	adminMux := http.NewServeMux()
	job.NewServer(scheduler).Register(adminMux)
	mux.Handle("/admin/", api.AdminAPIKey(adminMux, AdminAPIKey))

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{AllowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch},
		AllowedHeaders: []string{"Content-Type", "X-User-ID", "X-API-Key"},
	}).Handler(api.RequestLog(mux))

	server := &http.Server{
		Addr:              ":" + Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("server listening", "port", Port)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		slog.Info("shutting down")
		scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		slog.Error("server terminated", "error", err)
		os.Exit(1)
	}
}
