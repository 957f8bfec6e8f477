package editorapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/DMarby/photo-editor/internal/codec"
	"github.com/DMarby/photo-editor/internal/handler"
	"github.com/DMarby/photo-editor/internal/params"
	"github.com/DMarby/photo-editor/internal/pixel"
	"github.com/DMarby/photo-editor/internal/session"
	"github.com/DMarby/photo-editor/internal/storage"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel/attribute"
)

// Session is the json representation of an editing session
type Session struct {
	ID     string `json:"id"`
	Loaded bool   `json:"loaded"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Format string `json:"format,omitempty"` // Detected format of the uploaded image, only set on creation
}

// Saved is the json representation of an image saved to storage
type Saved struct {
	Name   string `json:"name"`
	Format string `json:"format"`
	Size   int    `json:"size"`
}

func newSession(id string, s *session.Session) Session {
	return Session{
		ID:     id,
		Loaded: s.Loaded(),
		Width:  s.Width(),
		Height: s.Height(),
	}
}

func (a *API) createSessionHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	ctx, span := a.Tracer.Start(r.Context(), "editorapi.createSession")
	defer span.End()

	var (
		buffer *pixel.Buffer
		format codec.Format
		err    error
	)

	// Load the image from storage if a source is given, otherwise from the request body
	if source := r.URL.Query().Get("source"); source != "" {
		span.SetAttributes(attribute.String("image.source", source))

		var data []byte
		data, err = a.Images.Get(ctx, source)
		if err != nil {
			return a.handleError(r, "error getting source image", err)
		}

		buffer, format, err = codec.DecodeWithOptions(bytes.NewReader(data), a.decodeOptions())
	} else {
		body := r.Body
		if a.MaxUploadSize > 0 {
			body = http.MaxBytesReader(w, r.Body, a.MaxUploadSize)
		}

		buffer, format, err = codec.DecodeWithOptions(body, a.decodeOptions())
	}

	if err != nil {
		return a.handleError(r, "error decoding image", err)
	}

	id, err := a.Sessions.Create()
	if err != nil {
		return a.handleError(r, "error creating session", err)
	}

	var response Session
	err = a.Sessions.Do(id, func(s *session.Session) error {
		if err := s.Load(buffer); err != nil {
			return err
		}

		response = newSession(id, s)
		return nil
	})
	if err != nil {
		return a.handleError(r, "error loading image into session", err)
	}

	response.Format = format.String()
	w.Header().Set("Location", fmt.Sprintf("/v1/sessions/%s", id))

	return handler.JSON(w, http.StatusCreated, response)
}

func (a *API) getSessionHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	id := mux.Vars(r)["id"]

	var response Session
	err := a.Sessions.Do(id, func(s *session.Session) error {
		response = newSession(id, s)
		return nil
	})
	if err != nil {
		return a.handleError(r, "error getting session", err)
	}

	return handler.JSON(w, http.StatusOK, response)
}

func (a *API) deleteSessionHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	if err := a.Sessions.Delete(mux.Vars(r)["id"]); err != nil {
		return a.handleError(r, "error deleting session", err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (a *API) applyFilterHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	kind, err := params.GetFilter(r)
	if err != nil {
		return handler.BadRequest(err.Error())
	}

	ctx, span := a.Tracer.Start(r.Context(), "editorapi.applyFilter")
	defer span.End()
	span.SetAttributes(attribute.String("image.filter", kind.String()))

	return a.update(w, r.WithContext(ctx), func(s *session.Session) error {
		return s.Apply(kind)
	})
}

func (a *API) resetHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return a.update(w, r, func(s *session.Session) error {
		return s.Reset()
	})
}

// update runs fn on the session and responds with its new state
func (a *API) update(w http.ResponseWriter, r *http.Request, fn func(s *session.Session) error) *handler.Error {
	id := mux.Vars(r)["id"]

	var response Session
	err := a.Sessions.Do(id, func(s *session.Session) error {
		if err := fn(s); err != nil {
			return err
		}

		response = newSession(id, s)
		return nil
	})
	if err != nil {
		return a.handleError(r, "error updating session", err)
	}

	return handler.JSON(w, http.StatusOK, response)
}

func (a *API) editedImageHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return a.imageHandler(w, r, (*session.Session).Edited)
}

func (a *API) originalImageHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	return a.imageHandler(w, r, (*session.Session).Original)
}

// imageHandler encodes one of the session images in the format of the extension
func (a *API) imageHandler(w http.ResponseWriter, r *http.Request, get func(*session.Session) (*pixel.Buffer, error)) *handler.Error {
	format, err := params.GetFormat(r)
	if err != nil {
		return handler.BadRequest(err.Error())
	}

	quality, err := params.GetQuality(r)
	if err != nil {
		return handler.BadRequest(err.Error())
	}

	buffer, err := a.snapshot(mux.Vars(r)["id"], get)
	if err != nil {
		return a.handleError(r, "error getting session image", err)
	}

	_, span := a.Tracer.Start(r.Context(), "editorapi.encode")
	data, err := codec.EncodeBytes(buffer, format, &codec.Options{Quality: quality})
	span.End()
	if err != nil {
		return a.handleError(r, "error encoding image", err)
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "private, no-cache, no-store, must-revalidate")
	w.Write(data)

	return nil
}

func (a *API) saveHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	name := mux.Vars(r)["name"]
	if !storage.ValidName(name) {
		return handler.BadRequest("Invalid image name")
	}

	quality, err := params.GetQuality(r)
	if err != nil {
		return handler.BadRequest(err.Error())
	}

	buffer, err := a.snapshot(mux.Vars(r)["id"], (*session.Session).Edited)
	if err != nil {
		return a.handleError(r, "error getting session image", err)
	}

	ctx, span := a.Tracer.Start(r.Context(), "editorapi.save")
	defer span.End()

	// Unknown extensions are written as JPEG
	format := codec.FormatFromPath(name)
	data, err := codec.EncodeBytes(buffer, format, &codec.Options{Quality: quality})
	if err != nil {
		return a.handleError(r, "error encoding image", err)
	}

	if err := a.Storage.Put(ctx, name, data); err != nil {
		return a.handleError(r, "error saving image", err)
	}

	// Renders and new sessions read stored images through the cache, replace the old bytes there too
	if err := a.Images.Provider.Set(ctx, name, data); err != nil {
		a.logError(r, "error refreshing cached image", err)
	}

	return handler.JSON(w, http.StatusOK, Saved{
		Name:   name,
		Format: format.String(),
		Size:   len(data),
	})
}

// snapshot copies an image out of the session so encoding happens without holding its lock
func (a *API) snapshot(id string, get func(*session.Session) (*pixel.Buffer, error)) (*pixel.Buffer, error) {
	var buffer *pixel.Buffer
	err := a.Sessions.Do(id, func(s *session.Session) error {
		var err error
		buffer, err = get(s)
		return err
	})

	return buffer, err
}
