package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/tidecall/supportkit/internal/api"
	"github.com/tidecall/supportkit/internal/config"
	"github.com/tidecall/supportkit/internal/middleware"
	"github.com/tidecall/supportkit/internal/widget"
	"github.com/tidecall/supportkit/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	client := api.NewClient(cfg.API.BaseURL, "", cfg.API.RequestTimeout)

	// Fail closed: without the public chatbot config no widget routes are
	// mounted, but the host itself stays healthy.
	var widgetHandler *widget.Handler
	if cfg.Widget.ChatbotID == "" {
		log.Println("CHATBOT_ID not configured, serving without widget")
	} else {
		initCtx, cancel := context.WithTimeout(ctx, cfg.API.RequestTimeout)
		widgetHandler, err = widget.New(initCtx, client, cfg.Widget.ChatbotID)
		cancel()
		if err != nil {
			log.Printf("warning: widget disabled: %v", err)
			widgetHandler = nil
		} else {
			log.Println("widget initialized successfully")
		}
	}

	router := newRouter(widgetHandler)
	startServer(ctx, cfg.Server, router)
}

func newRouter(widgetHandler *widget.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "widgethost",
		})
	})

	if widgetHandler != nil {
		r.Route("/widget", widgetHandler.RegisterRoutes)
	}

	return r
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("widget host listening on %s", serverCfg.Addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
