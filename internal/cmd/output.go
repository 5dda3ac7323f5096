package cmd

import (
	"encoding/json"
	"os"
)

// printJSON writes v to stdout as indented JSON for machine consumers.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
