// Worker is a throwaway upstream for trying the proxy by hand. Every
// response names the worker so the rotation is visible from the client.
//
// Usage:
//
//	go run ./scripts/worker --name worker1 --port 9001
//	go run ./scripts/worker --name worker2 --port 9002
//	go run ./cmd serve -w 127.0.0.1:9001 -w 127.0.0.1:9002
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/pflag"
)

// Echo describes the request a worker received.
type Echo struct {
	Worker  string              `json:"worker"`
	Method  string              `json:"method"`
	URI     string              `json:"uri"`
	Host    string              `json:"host"`
	Headers map[string][]string `json:"headers"`
	Body    string              `json:"body,omitempty"`
}

func newHandler(name string, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		logger.Info("Request",
			slog.String("method", r.Method),
			slog.String("uri", r.RequestURI),
			slog.String("from", r.RemoteAddr))

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Worker", name)
		_ = json.NewEncoder(w).Encode(Echo{
			Worker:  name,
			Method:  r.Method,
			URI:     r.RequestURI,
			Host:    r.Host,
			Headers: r.Header,
			Body:    string(body),
		})
	})

	return mux
}

func main() {
	name := pflag.String("name", "worker", "name reported in every response")
	port := pflag.Uint16("port", 9001, "port to listen on")
	pflag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil)).With(slog.String("worker", *name))

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("Starting worker", slog.String("addr", addr))
	if err := http.ListenAndServe(addr, newHandler(*name, logger)); err != nil {
		logger.Error("Worker failed", slog.Any("err", err))
		os.Exit(1)
	}
}
