package version

import (
	"fmt"
	"time"
)

// Ordering результат сравнения двух VersionStamp.
type Ordering int

const (
	// Before a предшествует b.
	Before Ordering = iota - 1
	// Equal штампы идентичны.
	Equal
	// After a следует за b.
	After
	// Concurrent версии совпадают, но время обновления расходится больше допуска.
	Concurrent
)

// String implements fmt.Stringer.
func (o Ordering) String() string {
	switch o {
	case Before:
		return "before"
	case Equal:
		return "equal"
	case After:
		return "after"
	case Concurrent:
		return "concurrent"
	default:
		return fmt.Sprintf("ordering(%d)", int(o))
	}
}

// Stamp is the (version, updatedAt) pair used for optimistic-concurrency checks.
// Version is assigned by the server of record and grows by one per write.
type Stamp struct {
	UpdatedAt time.Time `json:"updated_at"`
	Version   uint64    `json:"version"`
}

// IsZero reports whether the stamp refers to an entity that was never written.
func (s Stamp) IsZero() bool {
	return s.Version == 0 && s.UpdatedAt.IsZero()
}

// String implements fmt.Stringer.
func (s Stamp) String() string {
	if s.UpdatedAt.IsZero() {
		return fmt.Sprintf("v%d", s.Version)
	}
	return fmt.Sprintf("v%d@%s", s.Version, s.UpdatedAt.UTC().Format(time.RFC3339Nano))
}

// Comparator сравнивает штампы версий.
// SkewTolerance задает допустимое расхождение времени при равных версиях;
// нулевое значение требует строгого равенства.
type Comparator struct {
	SkewTolerance time.Duration
}

// NewComparator creates a comparator with the given skew tolerance.
// Negative tolerances are treated as zero.
func NewComparator(skewTolerance time.Duration) Comparator {
	if skewTolerance < 0 {
		skewTolerance = 0
	}
	return Comparator{SkewTolerance: skewTolerance}
}

// Compare orders a relative to b.
// Ordering follows the numeric version first. Only when versions are equal do
// timestamps matter: a difference above SkewTolerance means the two writes
// happened independently (Concurrent), a smaller non-zero difference is used as
// a tie-break.
func (c Comparator) Compare(a, b Stamp) Ordering {
	if a.Version < b.Version {
		return Before
	}
	if a.Version > b.Version {
		return After
	}

	diff := a.UpdatedAt.Sub(b.UpdatedAt)
	if diff == 0 {
		return Equal
	}

	abs := diff
	if abs < 0 {
		abs = -abs
	}
	if abs > c.SkewTolerance {
		return Concurrent
	}

	// В пределах допуска - время как tie-break
	if diff < 0 {
		return Before
	}
	return After
}

// IsNewer reports whether a strictly supersedes b.
func (c Comparator) IsNewer(a, b Stamp) bool {
	return c.Compare(a, b) == After
}
