package main

import (
	"excalidraw-drawings/config"
	"excalidraw-drawings/core"
	"excalidraw-drawings/handlers/api/drawings"
	"excalidraw-drawings/handlers/auth"
	"excalidraw-drawings/handlers/websocket"
	authMiddleware "excalidraw-drawings/middleware"
	"excalidraw-drawings/stores"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

func setupRouter(cfg *config.Config, repo core.DrawingRepository, notifier drawings.Notifier) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	verifier := auth.NewVerifier(cfg.Auth)
	if !cfg.Auth.Enabled {
		logrus.Warn("Authentication is disabled")
	}

	r.Get("/health", auth.HandleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.AuthBearer(verifier, cfg.Auth.Enabled, "/api/health"))
		r.Get("/health", auth.HandleHealth)
		r.Get("/auth/validate", auth.HandleValidate)
		r.Mount("/drawings", drawings.Routes(repo, notifier))
	})

	return r
}

func waitForShutdown(ioo *socketio.Server, repo core.DrawingRepository) {
	signalC := make(chan os.Signal, 1)
	signal.Notify(signalC, os.Interrupt, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	s := <-signalC
	logrus.WithField("signal", s).Info("Shutting down")
	ioo.Close(nil)
	if closer, ok := repo.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close repository")
		}
	}
	os.Exit(0)
}

func main() {
	cfg := config.Load()

	logLevel := flag.String("loglevel", cfg.Log.Level, "Set the logging level: debug, info, warn, error, fatal, panic")
	listenAddr := flag.String("listen", cfg.Server.Listen, "Set the server listen address")
	flag.Parse()

	cfg.Log.Level = *logLevel
	if err := cfg.Log.Apply(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	repo, err := stores.GetRepository(cfg.Storage)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to open drawing repository")
	}

	ioo := websocket.SetupSocketIO(cfg.Server.AllowedOrigins)
	r := setupRouter(cfg, repo, websocket.NewNotifier(ioo))
	r.Handle("/socket.io/", ioo.ServeHandler(nil))

	logrus.WithField("addr", *listenAddr).Info("starting server")
	go func() {
		if err := http.ListenAndServe(*listenAddr, r); err != nil {
			logrus.WithField("event", "start server").Fatal(err)
		}
	}()

	logrus.Debug("Server is running in the background")
	waitForShutdown(ioo, repo)
}
