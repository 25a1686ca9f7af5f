package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns prefix_<uuidv7 hex>. V7 ids sort by creation time, so
// lexical order of job and asset ids follows insertion order.
func NewID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return prefix + "_" + strings.ReplaceAll(id.String(), "-", "")
}
