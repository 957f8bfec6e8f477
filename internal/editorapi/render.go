package editorapi

import (
	"fmt"
	"net/http"

	"github.com/DMarby/photo-editor/internal/handler"
	"github.com/DMarby/photo-editor/internal/image"
	"github.com/DMarby/photo-editor/internal/params"
	"github.com/gorilla/mux"
	"github.com/twmb/murmur3"
)

func (a *API) renderHandler(w http.ResponseWriter, r *http.Request) *handler.Error {
	// Get the path and query parameters
	p, err := params.GetParams(r)
	if err != nil {
		return handler.BadRequest(err.Error())
	}

	imageID := mux.Vars(r)["id"]

	// Build the image task
	task := image.NewTask(imageID, p.Format).WithQuality(p.Quality)
	if p.ApplyFilter {
		task.Apply(p.Filter)
	}

	// Process the image
	processedImage, err := a.ImageProcessor.ProcessImage(r.Context(), task)
	if err != nil {
		return a.handleError(r, "error processing image", err)
	}

	etag := fmt.Sprintf("\"%x\"", murmur3.Sum64(processedImage))

	// Set the headers
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=\"%s-%s%s\"", imageID, task.FilterName(), p.Format.Extension()))
	w.Header().Set("Content-Type", p.Format.ContentType())
	w.Header().Set("Cache-Control", "public, max-age=2592000") // Cache for a month
	w.Header().Set("ETag", etag)

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}

	// Return the image
	w.Write(processedImage)

	return nil
}
