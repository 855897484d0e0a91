package document

import (
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultSystemPrefix is the leading segment of every document ID.
const DefaultSystemPrefix = "BIZ"

// IDSource produces document IDs.
type IDSource interface {
	NewID(t Type) string
}

// IDGenerator builds IDs of the form
//
//	{system}-{typePrefix}-{base36 unix ms}-{node}{base36 counter}
//
// The node is random per generator and the counter is monotonic, so two IDs
// from one generator never collide even within the same millisecond, and IDs
// from different generators collide only if their nodes do.
type IDGenerator struct {
	system  string
	node    string
	counter atomic.Uint64
	clock   func() time.Time
}

// IDOption configures an IDGenerator.
type IDOption func(*IDGenerator)

// WithClock overrides the time source.
func WithClock(clock func() time.Time) IDOption {
	return func(g *IDGenerator) {
		g.clock = clock
	}
}

// WithNode fixes the node segment. Intended for reproducible output.
func WithNode(node string) IDOption {
	return func(g *IDGenerator) {
		g.node = strings.ToUpper(node)
	}
}

// NewIDGenerator creates a generator for the given system prefix. An empty
// prefix uses DefaultSystemPrefix.
func NewIDGenerator(system string, opts ...IDOption) *IDGenerator {
	if system == "" {
		system = DefaultSystemPrefix
	}
	g := &IDGenerator{
		system: strings.ToUpper(system),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.node == "" {
		g.node = nodeFromUUID(uuid.New())
	}
	return g
}

// NewID returns a fresh ID for the document type. Safe for concurrent use.
func (g *IDGenerator) NewID(t Type) string {
	ms := g.clock().UnixMilli()
	seq := g.counter.Add(1)
	return g.system + "-" + t.Prefix() + "-" +
		strings.ToUpper(strconv.FormatInt(ms, 36)) + "-" +
		g.node + strings.ToUpper(strconv.FormatUint(seq, 36))
}

// nodeFromUUID takes the first three random bytes of a v4 UUID as four
// base36 digits.
func nodeFromUUID(u uuid.UUID) string {
	n := uint64(u[0])<<16 | uint64(u[1])<<8 | uint64(u[2])
	s := strings.ToUpper(strconv.FormatUint(n%(36*36*36*36), 36))
	return strings.Repeat("0", 4-len(s)) + s
}
