package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/DMarby/photo-editor/internal/codec"
	"github.com/DMarby/photo-editor/internal/filter"
	"github.com/DMarby/photo-editor/internal/logger"
	"github.com/DMarby/photo-editor/internal/session"

	"github.com/jamiealquiza/envy"
	"go.uber.org/zap"
)

// Comandline flags
var (
	in       = flag.String("in", "", "image to edit")
	out      = flag.String("out", "", "where to write the edited image, the format follows the extension and defaults to jpeg")
	filters  = flag.String("filter", "", "comma separated filters to apply in order (grayscale, invert, sepia, blur, edge)")
	quality  = flag.Int("quality", codec.DefaultQuality, "jpeg quality (1-100)")
	loglevel = zap.LevelFlag("log-level", zap.InfoLevel, "log level (default \"info\") (debug, info, warn, error, dpanic, panic, fatal)")
)

func main() {
	// Parse environment variables
	envy.Parse("PHOTOEDIT")

	// Parse commandline flags
	flag.Parse()

	// Initialize the logger
	log := logger.NewConsole(*loglevel)
	defer log.Sync()

	if *in == "" || *out == "" {
		log.Fatal("both -in and -out are required")
	}

	kinds, err := parseFilters(*filters)
	if err != nil {
		log.Fatal(err)
	}

	if err := edit(log, *in, *out, kinds, *quality); err != nil {
		log.Fatal(err)
	}
}

// edit decodes in, applies kinds in order and encodes the result to out
func edit(log *logger.Logger, in, out string, kinds []filter.Kind, quality int) error {
	start := time.Now()

	buffer, format, err := codec.DecodeFile(in)
	if err != nil {
		return err
	}

	log.Debugw("loaded image",
		"path", in,
		"format", format,
		"width", buffer.Width(),
		"height", buffer.Height(),
	)

	s := session.New()
	if err := s.Load(buffer); err != nil {
		return err
	}

	for _, kind := range kinds {
		if err := s.Apply(kind); err != nil {
			return fmt.Errorf("error applying %s: %w", kind, err)
		}

		log.Debugw("applied filter", "filter", kind)
	}

	edited, err := s.Edited()
	if err != nil {
		return err
	}

	outputFormat := codec.FormatFromPath(out)
	if err := codec.EncodeFile(out, edited, outputFormat, &codec.Options{Quality: quality}); err != nil {
		return err
	}

	log.Infow("saved image",
		"path", out,
		"format", outputFormat,
		"elapsed", time.Since(start).String(),
	)

	return nil
}

// parseFilters parses a comma separated list of filter names
func parseFilters(value string) ([]filter.Kind, error) {
	var kinds []filter.Kind

	for _, name := range strings.Split(value, ",") {
		if strings.TrimSpace(name) == "" {
			continue
		}

		kind, err := filter.ParseKind(name)
		if err != nil {
			return nil, err
		}

		kinds = append(kinds, kind)
	}

	return kinds, nil
}
