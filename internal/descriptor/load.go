package descriptor

import (
	"encoding/json"
	"os"

	"github.com/tidwall/jsonc"
)

// Load reads and decodes the descriptor at path.
func Load(path string) (*SystemDescriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, readError(path, err)
	}
	var d SystemDescriptor
	if err := json.Unmarshal(jsonc.ToJSON(raw), &d); err != nil {
		return nil, readError(path, err)
	}
	return &d, nil
}
