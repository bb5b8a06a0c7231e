// Package router wires the student handlers, documentation, metrics and
// static assets onto a single chi router.
//
// Route table:
//
//	POST   /students              create a student
//	GET    /students              list all students
//	GET    /students/{record_id}  get one student
//	PUT    /students/{record_id}  replace a student
//	DELETE /students/{record_id}  delete a student
//	GET    /api-docs              OpenAPI document
//	GET    /metrics               Prometheus metrics
//	GET    /*                     files under the public directory
package router

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aanand-mishra/student-server/internal/http/docs"
	"github.com/aanand-mishra/student-server/internal/http/handlers/student"
	"github.com/aanand-mishra/student-server/internal/http/middleware"
	"github.com/aanand-mishra/student-server/internal/storage"
)

// Options configures New.
type Options struct {
	Logger    *slog.Logger
	Storage   storage.Storage
	PublicDir string
}

// New builds the application handler.
func New(ctx context.Context, opts Options) (http.Handler, error) {
	apiDocs, err := docs.Handler(ctx)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RequestLogger(opts.Logger),
		middleware.Metrics(),
	)

	r.Route("/students", func(r chi.Router) {
		r.Post("/", student.New(opts.Storage))
		r.Get("/", student.GetList(opts.Storage))
		r.Get("/{"+student.RecordIDParam+"}", student.GetByID(opts.Storage))
		r.Put("/{"+student.RecordIDParam+"}", student.Update(opts.Storage))
		r.Delete("/{"+student.RecordIDParam+"}", student.Delete(opts.Storage))
	})

	r.Get("/api-docs", apiDocs)
	r.Handle("/metrics", promhttp.Handler())

	if opts.PublicDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.PublicDir)))
	}

	return r, nil
}
