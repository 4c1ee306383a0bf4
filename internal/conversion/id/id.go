// Package id provides unique identifier generation for conversion requests.
package id

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Generate creates a new unique request ID.
// Format: gif-<timestamp>-<random>
// Example: gif-1701432000-a1b2c3d4
func Generate() string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("gif-%d-%s", time.Now().Unix(), random)
}
