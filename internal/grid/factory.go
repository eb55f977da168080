package grid

import (
	"crypto/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
)

// IDSource produces the uniqueness token appended to UnpersistedPrefix.
type IDSource interface {
	Next() string
}

// Constructor returns a blank row populated with grid defaults. The factory
// assigns the id afterwards, overwriting any id the constructor set.
type Constructor func() Row

// CounterSource yields "1", "2", ... for the lifetime of the source.
type CounterSource struct {
	n atomic.Uint64
}

// NewCounterSource returns a counter whose first token is after+1.
func NewCounterSource(after uint64) *CounterSource {
	c := &CounterSource{}
	c.n.Store(after)
	return c
}

// MaxCounter returns the largest numeric token among temporary ids in rows,
// so a counter seeded with it never reissues an id still in use.
func MaxCounter(rows []Row) uint64 {
	var highest uint64
	for _, r := range rows {
		id, ok := r.ID()
		if !ok || !IsUnpersisted(id) {
			continue
		}
		n, err := strconv.ParseUint(strings.TrimPrefix(id, UnpersistedPrefix), 10, 64)
		if err == nil && n > highest {
			highest = n
		}
	}
	return highest
}

// Next implements IDSource.
func (c *CounterSource) Next() string {
	return strconv.FormatUint(c.n.Add(1), 10)
}

// ULIDSource yields monotonic ULIDs. Tokens minted within the same
// millisecond still sort and never collide.
type ULIDSource struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewULIDSource creates a ULID source backed by crypto/rand.
func NewULIDSource() *ULIDSource {
	return &ULIDSource{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Next implements IDSource.
func (u *ULIDSource) Next() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(u.now()), u.entropy).String()
}

// Factory mints blank rows with fresh temporary ids.
type Factory struct {
	ids       IDSource
	construct Constructor
}

// NewFactory creates a row factory. A nil ids uses a ULID source; a nil
// construct produces rows carrying only an id.
func NewFactory(ids IDSource, construct Constructor) *Factory {
	if ids == nil {
		ids = NewULIDSource()
	}
	if construct == nil {
		construct = func() Row { return Row{} }
	}
	return &Factory{ids: ids, construct: construct}
}

// NewRow returns a blank row whose id is UnpersistedPrefix plus a fresh token.
func (f *Factory) NewRow() Row {
	r := f.construct()
	if r == nil {
		r = Row{}
	}
	r[IDField] = UnpersistedPrefix + f.ids.Next()
	return r
}

// DefaultsConstructor returns a Constructor that copies defaults into every
// new row. Nested values are shared between rows.
func DefaultsConstructor(defaults map[string]any) Constructor {
	return func() Row {
		r := make(Row, len(defaults)+1)
		for k, v := range defaults {
			r[k] = v
		}
		return r
	}
}
