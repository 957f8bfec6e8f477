package params

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/DMarby/photo-editor/internal/codec"
	"github.com/DMarby/photo-editor/internal/filter"
	"github.com/gorilla/mux"
)

// Errors
var (
	ErrInvalidFilter        = fmt.Errorf("Invalid filter")
	ErrInvalidFileExtension = fmt.Errorf("Invalid file extension")
	ErrInvalidQuality       = fmt.Errorf("Invalid quality")
)

// Original is the filter name that renders an image unmodified
const Original = "original"

// Params contains all the parameters for a request
type Params struct {
	ApplyFilter bool
	Filter      filter.Kind
	Format      codec.Format
	Quality     int
}

// GetParams parses and returns all the path and query parameters
func GetParams(r *http.Request) (*Params, error) {
	applyFilter, kind, err := getFilter(r)
	if err != nil {
		return nil, err
	}

	format, err := GetFormat(r)
	if err != nil {
		return nil, err
	}

	quality, err := GetQuality(r)
	if err != nil {
		return nil, err
	}

	return &Params{
		ApplyFilter: applyFilter,
		Filter:      kind,
		Format:      format,
		Quality:     quality,
	}, nil
}

// GetFilter gets the filter path param, which has to name one of the filters
func GetFilter(r *http.Request) (filter.Kind, error) {
	kind, err := filter.ParseKind(mux.Vars(r)["filter"])
	if err != nil {
		return 0, ErrInvalidFilter
	}

	return kind, nil
}

// getFilter gets the filter path param, additionally accepting "original" for no filter
func getFilter(r *http.Request) (applyFilter bool, kind filter.Kind, err error) {
	if strings.EqualFold(mux.Vars(r)["filter"], Original) {
		return false, 0, nil
	}

	kind, err = GetFilter(r)
	if err != nil {
		return false, 0, err
	}

	return true, kind, nil
}

// GetFormat gets the output format from the optional extension path param, and validates it
func GetFormat(r *http.Request) (codec.Format, error) {
	// We normalize having no extension since it's an optional path param
	val := strings.ToLower(mux.Vars(r)["extension"])
	if val == "" {
		return codec.JPEG, nil
	}

	format, ok := codec.FormatFromExtension(val)
	if !ok || !format.CanEncode() {
		return 0, ErrInvalidFileExtension
	}

	return format, nil
}

// GetQuality gets the optional ?quality query param, returning 0 when it is absent
func GetQuality(r *http.Request) (int, error) {
	val := r.URL.Query().Get("quality")
	if val == "" {
		return 0, nil
	}

	quality, err := strconv.Atoi(val)
	if err != nil || quality < 1 || quality > 100 {
		return 0, ErrInvalidQuality
	}

	return quality, nil
}
