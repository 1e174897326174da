package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgnsrekt/tabrestore/internal/bridge"
	"github.com/dgnsrekt/tabrestore/internal/feed"
	"github.com/dgnsrekt/tabrestore/internal/service"
	"github.com/dgnsrekt/tabrestore/internal/tabs"
)

type Service interface {
	Health(ctx context.Context) service.Health
	State(ctx context.Context) (service.State, error)
	ListClosed(ctx context.Context, limit int) ([]service.ClosedTab, error)
	MatchClosed(ctx context.Context, url string, w tabs.WindowID) (service.ClosedTab, error)
}

// Options carries the optional non-huma endpoints.
type Options struct {
	// Bridge serves the extension websocket at /bridge.
	Bridge http.Handler
	// Feed backs the decision stream.
	Feed *feed.Broker
	// Metrics serves /metrics and instruments every request.
	Metrics MetricsProvider
}

// MetricsProvider exposes Prometheus collection to the router.
type MetricsProvider interface {
	Handler() http.Handler
	Middleware(next http.Handler) http.Handler
}

func NewServer(svc Service, opts Options) http.Handler {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		router.Use(opts.Metrics.Middleware)
	}

	cfg := huma.DefaultConfig("tabrestore API", "1.0.0")
	cfg.DocsPath = ""
	api := humachi.New(router, cfg)

	router.Get("/docs", writeHTML(docsHTML))
	router.Get("/docs/stream", writeHTML(streamDocsHTML))

	if opts.Bridge != nil {
		router.Handle("/bridge", opts.Bridge)
	}
	if opts.Feed != nil {
		router.Get("/api/v1/decisions/stream", feed.SSEHandler(opts.Feed))
	}
	if opts.Metrics != nil {
		router.Handle("/metrics", opts.Metrics.Handler())
	}

	registerHealthHandlers(api, svc)
	registerStateHandlers(api, svc)

	return router
}

func writeHTML(page string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		if _, err := w.Write([]byte(page)); err != nil {
			slog.Debug("docs response write failed", "error", err)
		}
	}
}

func registerHealthHandlers(api huma.API, svc Service) {
	type healthOutput struct {
		Body struct {
			Status string `json:"status"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health", Method: http.MethodGet, Path: "/health", Summary: "Liveness check", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*healthOutput, error) {
			out := &healthOutput{}
			out.Body.Status = "ok"
			return out, nil
		})

	type detailedHealthOutput struct {
		Body struct {
			Status string `json:"status"`
			service.Health
		}
	}
	huma.Register(api, huma.Operation{OperationID: "health-detail", Method: http.MethodGet, Path: "/api/v1/health", Summary: "Event loop and extension status", Tags: []string{"Health"}},
		func(ctx context.Context, input *struct{}) (*detailedHealthOutput, error) {
			h := svc.Health(ctx)
			if !h.LoopAlive {
				return nil, huma.Error503ServiceUnavailable("event loop stopped")
			}
			out := &detailedHealthOutput{}
			out.Body.Health = h
			out.Body.Status = "ok"
			if !h.Bridge.Connected {
				out.Body.Status = "degraded"
			}
			return out, nil
		})
}

func registerStateHandlers(api huma.API, svc Service) {
	type stateOutput struct {
		Body service.State
	}
	huma.Register(api, huma.Operation{OperationID: "get-state", Method: http.MethodGet, Path: "/api/v1/state", Summary: "Tracker, cache and ledger snapshot", Tags: []string{"State"}},
		func(ctx context.Context, input *struct{}) (*stateOutput, error) {
			st, err := svc.State(ctx)
			if err != nil {
				return nil, mapErr(err)
			}
			return &stateOutput{Body: st}, nil
		})

	type closedInput struct {
		Limit int `query:"limit" default:"0" doc:"Maximum records to return, newest first. 0 returns all."`
	}
	type closedOutput struct {
		Body struct {
			Closed []service.ClosedTab `json:"closed"`
		}
	}
	huma.Register(api, huma.Operation{OperationID: "list-closed", Method: http.MethodGet, Path: "/api/v1/closed", Summary: "List recently closed tabs", Tags: []string{"State"}},
		func(ctx context.Context, input *closedInput) (*closedOutput, error) {
			closed, err := svc.ListClosed(ctx, input.Limit)
			if err != nil {
				return nil, mapErr(err)
			}
			out := &closedOutput{}
			out.Body.Closed = closed
			return out, nil
		})

	type matchInput struct {
		URL      string `query:"url" doc:"URL of the tab being opened"`
		WindowID int64  `query:"window_id" doc:"Window the tab is opening in"`
	}
	type matchOutput struct {
		Body service.ClosedTab
	}
	huma.Register(api, huma.Operation{OperationID: "match-closed", Method: http.MethodGet, Path: "/api/v1/closed/match", Summary: "Preview which closed tab a reopen would restore", Tags: []string{"State"}},
		func(ctx context.Context, input *matchInput) (*matchOutput, error) {
			rec, err := svc.MatchClosed(ctx, input.URL, tabs.WindowID(input.WindowID))
			if err != nil {
				return nil, mapErr(err)
			}
			return &matchOutput{Body: rec}, nil
		})
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var coded *bridge.CodedError
	if errors.As(err, &coded) {
		switch coded.Code {
		case bridge.CodeValidation:
			return huma.Error400BadRequest(coded.Message)
		case bridge.CodeNotFound:
			return huma.Error404NotFound(coded.Message)
		case bridge.CodeBridgeTimeout:
			return huma.Error504GatewayTimeout(coded.Message)
		case bridge.CodeBridgeUnavailable, bridge.CodeBridgeRemote:
			return huma.Error502BadGateway(coded.Message)
		default:
			return huma.Error500InternalServerError(fmt.Sprintf("%s: %s", coded.Code, coded.Message))
		}
	}
	if errors.Is(err, tabs.ErrLoopStopped) {
		return huma.Error503ServiceUnavailable("event loop stopped")
	}
	return huma.Error500InternalServerError(err.Error())
}
