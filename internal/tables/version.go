package tables

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/comalice/tapemachine"
)

// ComputeVersion computes a deterministic version for a table:
// the first 8 bytes of SHA256 over its JSON encoding, hex encoded.
func ComputeVersion(table tapemachine.Table) string {
	data, err := json.Marshal(table)
	if err != nil {
		// Fallback (should not happen for tables built from valid Moves)
		return fmt.Sprintf("invalid-%d", len(table))
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash[:8])
}
