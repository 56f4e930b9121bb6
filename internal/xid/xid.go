package xid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a prefixed identifier, e.g. "ord-4f9c...". The prefix keeps
// ids self-describing in logs and API payloads.
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
