// Package festival defines core types shared across subsystems.
package festival

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Record is a single festival or holiday entry extracted from the
// upstream calendar. Month is set only in the religion-grouped view
// when no month filter was applied.
type Record struct {
	Date  string `json:"date"`
	Day   string `json:"day"`
	Name  string `json:"name"`
	Month string `json:"month,omitempty"`
}

// Grouping is an ordered mapping from group name (month or religion
// category) to festival records. Group order follows insertion order,
// which for extraction results means source table encounter order.
type Grouping struct {
	names   []string
	records map[string][]Record
}

// NewGrouping constructs an empty Grouping.
func NewGrouping() *Grouping {
	return &Grouping{records: make(map[string][]Record)}
}

// Seed registers groups with empty record lists so they serialize as
// present-but-empty even when nothing is appended later. Names already
// present keep their records and position.
func (g *Grouping) Seed(names ...string) {
	for _, name := range names {
		if _, ok := g.records[name]; ok {
			continue
		}
		g.names = append(g.names, name)
		g.records[name] = []Record{}
	}
}

// Set stores records under a group name, replacing any prior records
// for that name. The group keeps its original position if it already
// exists.
func (g *Grouping) Set(name string, records []Record) {
	if _, ok := g.records[name]; !ok {
		g.names = append(g.names, name)
	}
	g.records[name] = records
}

// Append adds records to the end of a group, creating the group at the
// end of the order if needed.
func (g *Grouping) Append(name string, records ...Record) {
	if _, ok := g.records[name]; !ok {
		g.names = append(g.names, name)
		g.records[name] = []Record{}
	}
	g.records[name] = append(g.records[name], records...)
}

// Records returns the records stored under a group name, or nil when
// the group is absent.
func (g *Grouping) Records(name string) []Record {
	return g.records[name]
}

// Names returns the group names in order.
func (g *Grouping) Names() []string {
	out := make([]string, len(g.names))
	copy(out, g.names)
	return out
}

// Len returns the number of groups, including seeded empty ones.
func (g *Grouping) Len() int {
	return len(g.names)
}

// HasRecords reports whether any group holds at least one record.
func (g *Grouping) HasRecords() bool {
	for _, recs := range g.records {
		if len(recs) > 0 {
			return true
		}
	}
	return false
}

// MarshalJSON encodes the grouping as a JSON object whose keys appear
// in group order. Empty groups encode as [] rather than null.
func (g *Grouping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range g.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, fmt.Errorf("marshal group name: %w", err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		records := g.records[name]
		if records == nil {
			records = []Record{}
		}
		val, err := json.Marshal(records)
		if err != nil {
			return nil, fmt.Errorf("marshal group records: %w", err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
