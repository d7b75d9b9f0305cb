package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/TheoCtla/SmartQA/internal/aggregate"
)

// WriteJSON writes r as indented JSON without HTML escaping.
func WriteJSON(w io.Writer, r aggregate.Report) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
