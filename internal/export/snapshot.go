package export

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"sort"
)

// Snapshot is one fully materialized extract: a named table of string
// cells plus the columns downstream publishers should format as numbers.
type Snapshot struct {
	Name           string
	Columns        []string
	Rows           [][]string
	NumericColumns []string
}

// Canonical serializes the snapshot with rows sorted lexicographically, so
// two snapshots with the same logical content hash identically regardless
// of the order the store returned them in.
func (s *Snapshot) Canonical() []byte {
	keys := make([]string, len(s.Rows))
	order := make([]int, len(s.Rows))
	for i, row := range s.Rows {
		var b bytes.Buffer
		w := csv.NewWriter(&b)
		w.Write(row)
		w.Flush()
		keys[i] = b.String()
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write(s.Columns)
	for _, i := range order {
		w.Write(s.Rows[i])
	}
	w.Flush()
	return buf.Bytes()
}

// Fingerprint returns the hex SHA-256 of the canonical serialization.
func (s *Snapshot) Fingerprint() string {
	sum := sha256.Sum256(s.Canonical())
	return hex.EncodeToString(sum[:])
}

// Decision records whether a snapshot differs from the last published
// version of the same extract.
type Decision struct {
	Changed     bool
	Fingerprint string
}

// DetectChange compares a snapshot against the previously recorded
// fingerprint. An empty previous fingerprint means the extract has never
// been published and always counts as changed.
func DetectChange(prev string, snap *Snapshot) Decision {
	fp := snap.Fingerprint()
	return Decision{Changed: prev == "" || prev != fp, Fingerprint: fp}
}
