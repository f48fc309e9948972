package audit

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
)

// Reader reads the active audit log.
type Reader struct {
	path string
}

// NewReader creates a reader for the log at path.
func NewReader(path string) *Reader {
	return &Reader{path: path}
}

// Stats summarizes the active log.
type Stats struct {
	Total      int
	Bypassed   int
	Malformed  int
	ByDecision map[string]int
	ByRule     map[string]int
}

// TopRules returns rule ids ordered by how often they fired, most first.
func (s Stats) TopRules() []string {
	ids := make([]string, 0, len(s.ByRule))
	for id := range s.ByRule {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if s.ByRule[ids[i]] != s.ByRule[ids[j]] {
			return s.ByRule[ids[i]] > s.ByRule[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Tail returns the last n well-formed records, oldest first. A missing log
// is empty.
func (r *Reader) Tail(n int) ([]Record, error) {
	if n <= 0 {
		return nil, nil
	}
	ring := make([]Record, 0, n)
	err := r.scan(func(rec Record) {
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, rec)
	}, nil)
	return ring, err
}

// Stats counts the records of the active log.
func (r *Reader) Stats() (Stats, error) {
	s := Stats{
		ByDecision: make(map[string]int),
		ByRule:     make(map[string]int),
	}
	err := r.scan(func(rec Record) {
		s.Total++
		s.ByDecision[rec.Decision]++
		if rec.RuleID != "" {
			s.ByRule[rec.RuleID]++
		}
		if rec.BypassUsed {
			s.Bypassed++
		}
	}, func() {
		s.Malformed++
	})
	return s, err
}

func (r *Reader) scan(onRecord func(Record), onMalformed func()) error {
	f, err := os.Open(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, err := ParseLine(line)
		if err != nil {
			if onMalformed != nil {
				onMalformed()
			}
			continue
		}
		onRecord(rec)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}
	return nil
}
