package pipe

import (
	"strconv"
	"sync/atomic"

	"github.com/rs/xid"
)

// IDGenerator can generate IDs for connections, commands, and events.
type IDGenerator interface {
	// Generate an ID
	Generate() string
}

var idGenerator IDGenerator = &xidGenerator{}

// UseSequentialIDGenerator makes all generated IDs sequential integers.
// Sequential IDs are deterministic and are mainly useful in tests.
func UseSequentialIDGenerator() {
	idGenerator = &sequentialIDGenerator{}
}

// UseXIDGenerator makes all generated IDs globally unique xid strings. This
// is the default.
func UseXIDGenerator() {
	idGenerator = &xidGenerator{}
}

// GetIDGenerator returns the ID generator currently in use.
func GetIDGenerator() IDGenerator {
	return idGenerator
}

type xidGenerator struct{}

// Generate returns a globally unique ID.
func (g *xidGenerator) Generate() string {
	return xid.New().String()
}

type sequentialIDGenerator struct {
	next uint64
}

// Generate returns the next ID in sequence.
func (g *sequentialIDGenerator) Generate() string {
	id := atomic.AddUint64(&g.next, 1)
	return strconv.FormatUint(id, 10)
}
