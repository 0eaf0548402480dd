package festival

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

// QueryKind distinguishes the two festival views.
type QueryKind string

// Query kinds served by the orchestrator.
const (
	KindFestivals QueryKind = "festivals"
	KindReligious QueryKind = "religious"
)

// Query identifies one logical request against the upstream calendar.
// Month zero means no month filter.
type Query struct {
	Kind  QueryKind
	Year  int
	Month int
}

// Fingerprint derives a deterministic cache key from the query. Fields
// are serialized in a fixed order and hashed so equal queries always
// share a key and any change to kind, year, or month produces a new
// one. An absent month is encoded distinctly from every valid month.
func (q Query) Fingerprint() string {
	month := "none"
	if q.Month != 0 {
		month = strconv.Itoa(q.Month)
	}
	canonical := fmt.Sprintf("kind=%s&month=%s&year=%d", q.Kind, month, q.Year)
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}
