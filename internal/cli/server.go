package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	transport "quiz-portal-client/internal/transport/http"
)

// NewServeCmd starts the local bridge a browser view uses to take a quiz as the logged-in user.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the websocket quiz bridge for the logged-in user",
		RunE: withRuntime(configPath, func(ctx context.Context, _ *cobra.Command, rt *runtime, _ []string) error {
			return runServer(ctx, rt, *port)
		}),
	}
}

func runServer(ctx context.Context, rt *runtime, portFlag string) error {
	if _, err := rt.identity.RequireUser(); err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = rt.cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	wsHandler := transport.NewWSHandler(rt.quizzes)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("serving quiz bridge on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case <-stop:
		log.Println("shutting down bridge...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down bridge...")
	case err := <-serveErr:
		return fmt.Errorf("serve quiz bridge on :%s: %w", finalPort, err)
	}

	if n := wsHandler.Active(); n > 0 {
		log.Printf("%d attempts still connected", n)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
