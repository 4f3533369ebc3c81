// Package output renders run reports.
package output

import (
	"bytes"
	"encoding/json"

	"github.com/ukaji3/refpix-go/pkg/refpix/models"
)

// ToJSON serializes run statistics, indented when pretty is set. The result
// ends with a newline.
func ToJSON(stats *models.RunStatistics, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(stats); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
