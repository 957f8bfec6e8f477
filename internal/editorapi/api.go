package editorapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/DMarby/photo-editor/internal/codec"
	"github.com/DMarby/photo-editor/internal/handler"
	"github.com/DMarby/photo-editor/internal/health"
	"github.com/DMarby/photo-editor/internal/image"
	"github.com/DMarby/photo-editor/internal/logger"
	"github.com/DMarby/photo-editor/internal/session"
	"github.com/DMarby/photo-editor/internal/storage"
	"github.com/DMarby/photo-editor/internal/tracing"
	"github.com/gorilla/mux"
)

// API is a http api
type API struct {
	ImageProcessor image.Processor
	Sessions       *session.Store
	Images         *image.Cache     // Source images, for rendering and creating sessions from storage
	Storage        storage.Provider // Destination for saved images
	HealthChecker  *health.Checker
	Log            *logger.Logger
	Tracer         *tracing.Tracer
	HandlerTimeout time.Duration
	MaxUploadSize  int64
	MaxPixels      int64 // Largest accepted width*height, see codec.DecodeOptions
}

func (a *API) decodeOptions() *codec.DecodeOptions {
	return &codec.DecodeOptions{MaxPixels: a.MaxPixels}
}

// Utility methods for logging
func (a *API) logError(r *http.Request, message string, err error) {
	a.Log.Errorw(message, handler.LogFields(r, "error", err)...)
}

// Router returns a http router
func (a *API) Router() http.Handler {
	router := mux.NewRouter()

	router.NotFoundHandler = handler.Handler(a.notFoundHandler)

	// Redirect trailing slashes
	router.StrictSlash(true)

	// Healthcheck
	router.Handle("/health", handler.Health(a.HealthChecker)).Methods("GET").Name("health")

	// Stateless rendering of stored images
	// {filter} is a filter name, or "original"
	// Query parameters:
	// ?quality={1-100} - JPEG quality
	router.Handle("/v1/render/{id}/{filter:[a-zA-Z-]+}{extension:(?:\\..*)?}", handler.Handler(a.renderHandler)).Methods("GET").Name("render")

	// Editing sessions
	router.Handle("/v1/sessions", handler.Handler(a.createSessionHandler)).Methods("POST").Name("sessions.create")
	router.Handle("/v1/sessions/{id}", handler.Handler(a.getSessionHandler)).Methods("GET").Name("sessions.get")
	router.Handle("/v1/sessions/{id}", handler.Handler(a.deleteSessionHandler)).Methods("DELETE").Name("sessions.delete")
	router.Handle("/v1/sessions/{id}/filters/{filter}", handler.Handler(a.applyFilterHandler)).Methods("POST").Name("sessions.filter")
	router.Handle("/v1/sessions/{id}/reset", handler.Handler(a.resetHandler)).Methods("POST").Name("sessions.reset")
	router.Handle("/v1/sessions/{id}/image{extension:(?:\\..*)?}", handler.Handler(a.editedImageHandler)).Methods("GET").Name("sessions.image")
	router.Handle("/v1/sessions/{id}/original{extension:(?:\\..*)?}", handler.Handler(a.originalImageHandler)).Methods("GET").Name("sessions.original")
	router.Handle("/v1/sessions/{id}/save/{name}", handler.Handler(a.saveHandler)).Methods("PUT").Name("sessions.save")

	routeMatcher := &handler.MuxRouteMatcher{Router: router}

	// Set up handlers for adding a request id, handling panics, request logging, setting CORS headers, tracing, metrics, and handler execution timeout
	return handler.AddRequestID(
		handler.Recovery(a.Log,
			handler.Tracer(a.Tracer,
				handler.Metrics(
					handler.Logger(a.Log,
						handler.CORS([]string{handler.RequestIDHeader, "ETag"}, []string{"GET", "POST", "PUT", "DELETE"},
							http.TimeoutHandler(router, a.HandlerTimeout, "Something went wrong. Timed out."),
						),
					),
					routeMatcher,
				),
				routeMatcher,
			),
		),
	)
}

// Handle not found errors
var notFoundError = handler.NotFound("page not found")

func (a *API) notFoundHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return notFoundError
}

// handleError maps errors from the session, storage and codec layers to http errors
func (a *API) handleError(r *http.Request, message string, err error) *handler.Error {
	tracing.RecordError(r.Context(), err)

	var decodeErr *codec.DecodeError
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.Is(err, session.ErrNotFound):
		return handler.NotFound("Session not found")
	case errors.Is(err, storage.ErrNotFound):
		return handler.NotFound("Image not found")
	case errors.Is(err, session.ErrNoImageLoaded):
		return handler.Conflict("No image loaded")
	case errors.Is(err, session.ErrTooManySessions):
		return handler.ServiceUnavailable("Too many sessions")
	case errors.Is(err, storage.ErrInvalidName):
		return handler.BadRequest("Invalid image name")
	case errors.As(err, &maxBytesErr), errors.Is(err, codec.ErrImageTooLarge):
		return &handler.Error{Message: "Image too large", Code: http.StatusRequestEntityTooLarge}
	case errors.As(err, &decodeErr):
		return handler.BadRequest("Invalid image")
	case errors.Is(err, codec.ErrUnsupportedFormat):
		return handler.BadRequest("Unsupported image format")
	}

	a.logError(r, message, err)
	return handler.InternalServerError()
}
