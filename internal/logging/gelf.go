package logging

import (
	"fmt"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFHandler returns a JSON handler shipping records to a Graylog GELF
// UDP input. Close the returned writer on shutdown.
func NewGELFHandler(address string, level slog.Leveler) (slog.Handler, *gelf.Writer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to graylog at %s: %w", address, err)
	}
	w.Facility = "floormap"
	return slog.NewJSONHandler(w, handlerOptions(level)), w, nil
}
