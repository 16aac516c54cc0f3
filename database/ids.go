package database

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	idMu      sync.Mutex
	idEntropy io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// Row id prefixes
const (
	PrefixPosition  = "pos_"
	PrefixSignal    = "sig_"
	PrefixRiskEvent = "rev_"
	PrefixAlert     = "alr_"
)

// NewID returns prefix followed by a ULID. IDs generated in the same
// millisecond still sort in creation order.
func NewID(prefix string) string {
	idMu.Lock()
	defer idMu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), idEntropy)
	if err != nil {
		// Only fails if entropy is exhausted within one millisecond.
		panic(err)
	}
	return prefix + id.String()
}
