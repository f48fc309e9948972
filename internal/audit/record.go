// Package audit keeps the append-only log of enforcement decisions shared by
// every wrapper process on the machine.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrMalformedLine is returned by ParseLine for lines with missing fields.
var ErrMalformedLine = errors.New("malformed audit line")

const (
	noRule   = "none"
	empty    = "-"
	minField = 6
)

// Record is one audit log entry. Records are immutable once written.
type Record struct {
	Timestamp  time.Time
	Program    string
	ArgvDigest string
	Decision   string
	RuleID     string
	BypassUsed bool

	ResourceClass string
	InvocationID  string
	PID           int
	User          string
}

// NewRecord creates a record for the current process. The argument vector
// is stored only as a digest.
func NewRecord(program string, argv []string, decision, ruleID string, bypassUsed bool, resourceClass string) Record {
	return Record{
		Timestamp:     time.Now().UTC(),
		Program:       program,
		ArgvDigest:    Digest(argv),
		Decision:      decision,
		RuleID:        ruleID,
		BypassUsed:    bypassUsed,
		ResourceClass: resourceClass,
		InvocationID:  uuid.New().String(),
		PID:           os.Getpid(),
		User:          currentUser(),
	}
}

// Digest returns the hex SHA-256 of argv. Arguments are NUL-separated so
// that ["a b"] and ["a", "b"] differ.
func Digest(argv []string) string {
	h := sha256.New()
	for i, arg := range argv {
		if i > 0 {
			h.Write([]byte{0})
		}
		h.Write([]byte(arg))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Format renders the record as a single tab-separated line without the
// trailing newline.
func (r Record) Format() string {
	ruleID := r.RuleID
	if ruleID == "" {
		ruleID = noRule
	}
	pid := empty
	if r.PID > 0 {
		pid = strconv.Itoa(r.PID)
	}
	fields := []string{
		r.Timestamp.UTC().Format(time.RFC3339Nano),
		sanitize(r.Program),
		sanitize(r.ArgvDigest),
		sanitize(r.Decision),
		sanitize(ruleID),
		strconv.FormatBool(r.BypassUsed),
		orEmpty(r.ResourceClass),
		orEmpty(r.InvocationID),
		pid,
		orEmpty(r.User),
	}
	return strings.Join(fields, "\t")
}

// ParseLine parses a line written by Format. Fields beyond the known ones
// are ignored so older readers accept newer logs.
func ParseLine(line string) (Record, error) {
	fields := strings.Split(strings.TrimRight(line, "\r\n"), "\t")
	if len(fields) < minField {
		return Record{}, fmt.Errorf("%w: %d fields", ErrMalformedLine, len(fields))
	}

	ts, err := time.Parse(time.RFC3339Nano, fields[0])
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad timestamp: %v", ErrMalformedLine, err)
	}
	bypass, err := strconv.ParseBool(fields[5])
	if err != nil {
		return Record{}, fmt.Errorf("%w: bad bypass flag: %v", ErrMalformedLine, err)
	}

	r := Record{
		Timestamp:  ts,
		Program:    fields[1],
		ArgvDigest: fields[2],
		Decision:   fields[3],
		BypassUsed: bypass,
	}
	if fields[4] != noRule {
		r.RuleID = fields[4]
	}
	if len(fields) > 6 {
		r.ResourceClass = fromEmpty(fields[6])
	}
	if len(fields) > 7 {
		r.InvocationID = fromEmpty(fields[7])
	}
	if len(fields) > 8 {
		r.PID, _ = strconv.Atoi(fields[8])
	}
	if len(fields) > 9 {
		r.User = fromEmpty(fields[9])
	}
	return r, nil
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return ' '
		}
		return r
	}, s)
}

func orEmpty(s string) string {
	if s == "" {
		return empty
	}
	return sanitize(s)
}

func fromEmpty(s string) string {
	if s == empty {
		return ""
	}
	return s
}

func currentUser() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	if name := os.Getenv("USER"); name != "" {
		return name
	}
	return os.Getenv("USERNAME")
}
