package editorapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DMarby/photo-editor/internal/codec"
	api "github.com/DMarby/photo-editor/internal/editorapi"
	"github.com/DMarby/photo-editor/internal/health"
	"github.com/DMarby/photo-editor/internal/image"
	"github.com/DMarby/photo-editor/internal/image/editor"
	"github.com/DMarby/photo-editor/internal/logger"
	"github.com/DMarby/photo-editor/internal/pixel"
	"github.com/DMarby/photo-editor/internal/session"
	"github.com/DMarby/photo-editor/internal/tracing/test"
	"go.uber.org/zap"

	mockProcessor "github.com/DMarby/photo-editor/internal/image/mock"

	fileStorage "github.com/DMarby/photo-editor/internal/storage/file"
	mockStorage "github.com/DMarby/photo-editor/internal/storage/mock"

	memoryCache "github.com/DMarby/photo-editor/internal/cache/memory"
)

type fixture struct {
	dir    string
	red    []byte
	router http.Handler
	store  *session.Store
	newAPI func(processor image.Processor, store *session.Store) *api.API
}

func solidRed(t *testing.T) *pixel.Buffer {
	t.Helper()

	b, err := pixel.New(4, 4)
	if err != nil {
		t.Fatal(err)
	}

	for x := 0; x < 4; x++ {
		for y := 0; y < 4; y++ {
			b.Put(x, y, pixel.RGB{R: 255})
		}
	}

	return b
}

func setup(t *testing.T) *fixture {
	t.Helper()

	log := logger.New(zap.FatalLevel)
	t.Cleanup(func() { log.Sync() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	dir := t.TempDir()

	red, err := codec.EncodeBytes(solidRed(t), codec.PNG, nil)
	if err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "red.png"), red, 0644); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(dir, "broken.png"), []byte("not an image"), 0644); err != nil {
		t.Fatal(err)
	}

	storage, err := fileStorage.New(dir)
	if err != nil {
		t.Fatal(err)
	}

	tracer := test.Tracer(log)
	images := image.NewCache(tracer, memoryCache.New(0), storage)
	processor := editor.New(ctx, log, tracer, 2, 0, images)
	checker := &health.Checker{Ctx: ctx, Storage: storage, ObjectName: "red.png", Log: log}
	checker.Run()

	newAPI := func(processor image.Processor, store *session.Store) *api.API {
		return &api.API{
			ImageProcessor: processor,
			Sessions:       store,
			Images:         images,
			Storage:        storage,
			HealthChecker:  checker,
			Log:            log,
			Tracer:         tracer,
			HandlerTimeout: time.Minute,
			MaxUploadSize:  1 << 20,
		}
	}

	store := session.NewStore(time.Hour, 0)

	return &fixture{
		dir:    dir,
		red:    red,
		router: newAPI(processor, store).Router(),
		store:  store,
		newAPI: newAPI,
	}
}

func do(router http.Handler, method, url string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(body))
	for header, value := range headers {
		req.Header.Set(header, value)
	}

	router.ServeHTTP(w, req)
	return w
}

func decodeSession(t *testing.T, w *httptest.ResponseRecorder) api.Session {
	t.Helper()

	var s api.Session
	if err := json.NewDecoder(w.Body).Decode(&s); err != nil {
		t.Fatalf("invalid session json: %s", err)
	}

	return s
}

func decodeImage(t *testing.T, w *httptest.ResponseRecorder) (*pixel.Buffer, codec.Format) {
	t.Helper()

	b, format, err := codec.Decode(w.Body)
	if err != nil {
		t.Fatal(err)
	}

	return b, format
}

func TestRender(t *testing.T) {
	f := setup(t)
	mockProcessorRouter := f.newAPI(&mockProcessor.Processor{}, f.store).Router()

	tests := []struct {
		Name            string
		URL             string
		Router          http.Handler
		ExpectedStatus  int
		ExpectedHeaders map[string]string
	}{
		{"original", "/v1/render/red.png/original.png", f.router, http.StatusOK, map[string]string{"Content-Type": "image/png", "Cache-Control": "public, max-age=2592000", "Content-Disposition": "inline; filename=\"red.png-original.png\""}},
		{"grayscale", "/v1/render/red.png/grayscale.png", f.router, http.StatusOK, map[string]string{"Content-Type": "image/png"}},
		{"jpeg without extension", "/v1/render/red.png/invert", f.router, http.StatusOK, map[string]string{"Content-Type": "image/jpeg"}},
		{"jpeg with quality", "/v1/render/red.png/sepia.jpg?quality=50", f.router, http.StatusOK, map[string]string{"Content-Type": "image/jpeg"}},
		// Errors
		{"unknown filter", "/v1/render/red.png/sharpen.png", f.router, http.StatusBadRequest, map[string]string{"Content-Type": "text/plain; charset=utf-8", "Cache-Control": "private, no-cache, no-store, must-revalidate"}},
		{"unknown extension", "/v1/render/red.png/blur.gif", f.router, http.StatusBadRequest, nil},
		{"invalid quality", "/v1/render/red.png/blur.jpg?quality=1000", f.router, http.StatusBadRequest, nil},
		{"missing image", "/v1/render/missing.png/blur.png", f.router, http.StatusNotFound, nil},
		{"broken image", "/v1/render/broken.png/blur.png", f.router, http.StatusBadRequest, nil},
		{"processor error", "/v1/render/red.png/blur.png", mockProcessorRouter, http.StatusInternalServerError, map[string]string{"Content-Type": "text/plain; charset=utf-8"}},
		{"404", "/asdf", f.router, http.StatusNotFound, map[string]string{"Content-Type": "text/plain; charset=utf-8"}},
	}

	for _, test := range tests {
		w := do(test.Router, "GET", test.URL, nil, nil)
		if w.Code != test.ExpectedStatus {
			t.Errorf("%s: wrong response code, %#v", test.Name, w.Code)
			continue
		}

		for expectedHeader, expectedValue := range test.ExpectedHeaders {
			headerValue := w.Header().Get(expectedHeader)
			if headerValue != expectedValue {
				t.Errorf("%s: wrong header value for %s, %#v", test.Name, expectedHeader, headerValue)
			}
		}

		if w.Header().Get("X-Request-Id") == "" {
			t.Errorf("%s: missing request id", test.Name)
		}
	}

	t.Run("renders the filter", func(t *testing.T) {
		w := do(f.router, "GET", "/v1/render/red.png/grayscale.png", nil, nil)
		b, format := decodeImage(t, w)

		if format != codec.PNG {
			t.Errorf("wrong format %s", format)
		}

		if got := b.At(0, 0); got != (pixel.RGB{R: 76, G: 76, B: 76}) {
			t.Errorf("wrong pixel %v", got)
		}
	})

	t.Run("etag", func(t *testing.T) {
		w := do(f.router, "GET", "/v1/render/red.png/invert.png", nil, nil)
		etag := w.Header().Get("ETag")
		if etag == "" {
			t.Fatal("missing etag")
		}

		if again := do(f.router, "GET", "/v1/render/red.png/invert.png", nil, nil).Header().Get("ETag"); again != etag {
			t.Errorf("etag is not stable: %s != %s", again, etag)
		}

		w = do(f.router, "GET", "/v1/render/red.png/invert.png", nil, map[string]string{"If-None-Match": etag})
		if w.Code != http.StatusNotModified {
			t.Errorf("wrong response code %d", w.Code)
		}

		if other := do(f.router, "GET", "/v1/render/red.png/grayscale.png", nil, nil).Header().Get("ETag"); other == etag {
			t.Error("different images share an etag")
		}
	})
}

func TestSessions(t *testing.T) {
	f := setup(t)

	w := do(f.router, "POST", "/v1/sessions", f.red, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("wrong response code %d: %s", w.Code, w.Body)
	}

	created := decodeSession(t, w)
	if !created.Loaded || created.Width != 4 || created.Height != 4 || created.Format != "png" {
		t.Errorf("wrong session %+v", created)
	}

	if location := w.Header().Get("Location"); location != "/v1/sessions/"+created.ID {
		t.Errorf("wrong location %s", location)
	}

	base := "/v1/sessions/" + created.ID

	t.Run("get", func(t *testing.T) {
		w := do(f.router, "GET", base, nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("wrong response code %d", w.Code)
		}

		if s := decodeSession(t, w); s.ID != created.ID || s.Width != 4 {
			t.Errorf("wrong session %+v", s)
		}
	})

	t.Run("apply grayscale then invert", func(t *testing.T) {
		if w := do(f.router, "POST", base+"/filters/grayscale", nil, nil); w.Code != http.StatusOK {
			t.Fatalf("wrong response code %d", w.Code)
		}

		b, _ := decodeImage(t, do(f.router, "GET", base+"/image.png", nil, nil))
		if got := b.At(2, 2); got != (pixel.RGB{R: 76, G: 76, B: 76}) {
			t.Errorf("wrong grayscale pixel %v", got)
		}

		// Invert reads the original, not the grayscale result
		if w := do(f.router, "POST", base+"/filters/invert", nil, nil); w.Code != http.StatusOK {
			t.Fatalf("wrong response code %d", w.Code)
		}

		b, _ = decodeImage(t, do(f.router, "GET", base+"/image.png", nil, nil))
		if got := b.At(2, 2); got != (pixel.RGB{G: 255, B: 255}) {
			t.Errorf("wrong inverted pixel %v", got)
		}
	})

	t.Run("original is unchanged", func(t *testing.T) {
		b, _ := decodeImage(t, do(f.router, "GET", base+"/original.bmp", nil, nil))
		if got := b.At(2, 2); got != (pixel.RGB{R: 255}) {
			t.Errorf("wrong original pixel %v", got)
		}
	})

	t.Run("reset", func(t *testing.T) {
		if w := do(f.router, "POST", base+"/reset", nil, nil); w.Code != http.StatusOK {
			t.Fatalf("wrong response code %d", w.Code)
		}

		b, format := decodeImage(t, do(f.router, "GET", base+"/image", nil, nil))
		if format != codec.JPEG {
			t.Errorf("wrong default format %s", format)
		}

		if b.Width() != 4 || b.Height() != 4 {
			t.Errorf("wrong size %dx%d", b.Width(), b.Height())
		}
	})

	t.Run("save", func(t *testing.T) {
		do(f.router, "POST", base+"/filters/invert", nil, nil)

		w := do(f.router, "PUT", base+"/save/inverted.png", nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("wrong response code %d: %s", w.Code, w.Body)
		}

		var saved api.Saved
		if err := json.NewDecoder(w.Body).Decode(&saved); err != nil {
			t.Fatal(err)
		}

		if saved.Name != "inverted.png" || saved.Format != "png" || saved.Size == 0 {
			t.Errorf("wrong response %+v", saved)
		}

		b, _, err := codec.DecodeFile(filepath.Join(f.dir, "inverted.png"))
		if err != nil {
			t.Fatal(err)
		}

		if got := b.At(1, 1); got != (pixel.RGB{G: 255, B: 255}) {
			t.Errorf("wrong saved pixel %v", got)
		}
	})

	t.Run("save with unknown extension writes jpeg", func(t *testing.T) {
		w := do(f.router, "PUT", base+"/save/edited.gif", nil, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("wrong response code %d", w.Code)
		}

		data, _ := os.ReadFile(filepath.Join(f.dir, "edited.gif"))
		if !bytes.HasPrefix(data, []byte("\xff\xd8")) {
			t.Error("saved file is not a jpeg")
		}
	})

	t.Run("delete", func(t *testing.T) {
		if w := do(f.router, "DELETE", base, nil, nil); w.Code != http.StatusNoContent {
			t.Fatalf("wrong response code %d", w.Code)
		}

		if w := do(f.router, "GET", base, nil, nil); w.Code != http.StatusNotFound {
			t.Errorf("wrong response code %d", w.Code)
		}
	})
}

func TestSaveReplacesCachedSource(t *testing.T) {
	f := setup(t)

	// Load red.png into the cache through both readers
	if w := do(f.router, "GET", "/v1/render/red.png/original.png", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("wrong response code %d", w.Code)
	}

	w := do(f.router, "POST", "/v1/sessions?source=red.png", nil, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("wrong response code %d", w.Code)
	}
	base := "/v1/sessions/" + decodeSession(t, w).ID

	do(f.router, "POST", base+"/filters/invert", nil, nil)
	if w := do(f.router, "PUT", base+"/save/red.png", nil, nil); w.Code != http.StatusOK {
		t.Fatalf("wrong response code %d", w.Code)
	}

	inverted := pixel.RGB{G: 255, B: 255}

	b, _ := decodeImage(t, do(f.router, "GET", "/v1/render/red.png/original.png", nil, nil))
	if got := b.At(0, 0); got != inverted {
		t.Errorf("render after save: wrong pixel %v", got)
	}

	w = do(f.router, "POST", "/v1/sessions?source=red.png", nil, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("wrong response code %d", w.Code)
	}

	b, _ = decodeImage(t, do(f.router, "GET", "/v1/sessions/"+decodeSession(t, w).ID+"/original.png", nil, nil))
	if got := b.At(0, 0); got != inverted {
		t.Errorf("session after save: wrong pixel %v", got)
	}
}

func TestImageTooLarge(t *testing.T) {
	f := setup(t)

	limited := f.newAPI(&mockProcessor.Processor{}, f.store)
	limited.MaxPixels = 15

	// 4x4 is one pixel over the limit
	w := do(limited.Router(), "POST", "/v1/sessions", f.red, nil)
	if w.Code != http.StatusRequestEntityTooLarge || w.Body.String() != "Image too large\n" {
		t.Errorf("wrong response %d %s", w.Code, w.Body)
	}

	w = do(limited.Router(), "POST", "/v1/sessions?source=red.png", nil, nil)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("wrong response code %d", w.Code)
	}

	limited.MaxPixels = 16
	if w := do(limited.Router(), "POST", "/v1/sessions", f.red, nil); w.Code != http.StatusCreated {
		t.Errorf("wrong response code %d", w.Code)
	}
}

func TestSessionFromSource(t *testing.T) {
	f := setup(t)

	w := do(f.router, "POST", "/v1/sessions?source=red.png", nil, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("wrong response code %d", w.Code)
	}

	if s := decodeSession(t, w); s.Width != 4 || s.Format != "png" {
		t.Errorf("wrong session %+v", s)
	}

	if w := do(f.router, "POST", "/v1/sessions?source=missing.png", nil, nil); w.Code != http.StatusNotFound {
		t.Errorf("wrong response code %d", w.Code)
	}
}

func TestSessionErrors(t *testing.T) {
	f := setup(t)

	emptyID, err := f.store.Create()
	if err != nil {
		t.Fatal(err)
	}

	limitedRouter := f.newAPI(&mockProcessor.Processor{}, session.NewStore(time.Hour, 1)).Router()
	do(limitedRouter, "POST", "/v1/sessions", f.red, nil)

	id := decodeSession(t, do(f.router, "POST", "/v1/sessions", f.red, nil)).ID

	mockStorageAPI := f.newAPI(&mockProcessor.Processor{}, f.store)
	mockStorageAPI.Storage = &mockStorage.Provider{}
	mockStorageRouter := mockStorageAPI.Router()

	tests := []struct {
		Name             string
		Method           string
		URL              string
		Body             []byte
		Router           http.Handler
		ExpectedStatus   int
		ExpectedResponse string
	}{
		{"invalid image", "POST", "/v1/sessions", []byte("not an image"), f.router, http.StatusBadRequest, "Invalid image\n"},
		{"empty body", "POST", "/v1/sessions", nil, f.router, http.StatusBadRequest, "Invalid image\n"},
		{"broken source", "POST", "/v1/sessions?source=broken.png", nil, f.router, http.StatusBadRequest, "Invalid image\n"},
		{"invalid source name", "POST", "/v1/sessions?source=..", nil, f.router, http.StatusBadRequest, "Invalid image name\n"},
		{"too many sessions", "POST", "/v1/sessions", f.red, limitedRouter, http.StatusServiceUnavailable, "Too many sessions\n"},
		{"unknown session", "GET", "/v1/sessions/nonexistant", nil, f.router, http.StatusNotFound, "Session not found\n"},
		{"unknown session filter", "POST", "/v1/sessions/nonexistant/filters/blur", nil, f.router, http.StatusNotFound, "Session not found\n"},
		{"unknown session delete", "DELETE", "/v1/sessions/nonexistant", nil, f.router, http.StatusNotFound, "Session not found\n"},
		{"unknown filter", "POST", "/v1/sessions/" + id + "/filters/sharpen", nil, f.router, http.StatusBadRequest, "Invalid filter\n"},
		{"unknown extension", "GET", "/v1/sessions/" + id + "/image.gif", nil, f.router, http.StatusBadRequest, "Invalid file extension\n"},
		{"invalid quality", "GET", "/v1/sessions/" + id + "/image.jpg?quality=0", nil, f.router, http.StatusBadRequest, "Invalid quality\n"},
		{"save webp", "PUT", "/v1/sessions/" + id + "/save/edited.webp", nil, f.router, http.StatusBadRequest, "Unsupported image format\n"},
		{"save storage error", "PUT", "/v1/sessions/" + id + "/save/edited.png", nil, mockStorageRouter, http.StatusInternalServerError, "Something went wrong\n"},
		{"no image loaded filter", "POST", "/v1/sessions/" + emptyID + "/filters/blur", nil, f.router, http.StatusConflict, "No image loaded\n"},
		{"no image loaded reset", "POST", "/v1/sessions/" + emptyID + "/reset", nil, f.router, http.StatusConflict, "No image loaded\n"},
		{"no image loaded image", "GET", "/v1/sessions/" + emptyID + "/image.png", nil, f.router, http.StatusConflict, "No image loaded\n"},
		{"no image loaded save", "PUT", "/v1/sessions/" + emptyID + "/save/edited.png", nil, f.router, http.StatusConflict, "No image loaded\n"},
	}

	for _, test := range tests {
		w := do(test.Router, test.Method, test.URL, test.Body, nil)
		if w.Code != test.ExpectedStatus {
			t.Errorf("%s: wrong response code, %#v", test.Name, w.Code)
			continue
		}

		if body := w.Body.String(); body != test.ExpectedResponse {
			t.Errorf("%s: wrong response %#v", test.Name, body)
		}
	}

	t.Run("uploads over the limit", func(t *testing.T) {
		limited := f.newAPI(&mockProcessor.Processor{}, f.store)
		limited.MaxUploadSize = 8

		w := do(limited.Router(), "POST", "/v1/sessions", f.red, nil)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("wrong response code %d", w.Code)
		}
	})

	t.Run("json errors", func(t *testing.T) {
		w := do(f.router, "GET", "/v1/sessions/nonexistant", nil, map[string]string{"Accept": "application/json"})
		if w.Code != http.StatusNotFound || w.Body.String() != "{\"error\":\"Session not found\"}\n" {
			t.Errorf("wrong response %d %s", w.Code, w.Body)
		}
	})
}

func TestHealth(t *testing.T) {
	f := setup(t)

	w := do(f.router, "GET", "/health", nil, nil)
	if w.Code != http.StatusOK {
		t.Errorf("wrong response code %d", w.Code)
	}
}
