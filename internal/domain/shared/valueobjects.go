// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// StudentID represents a unique student identifier (UUID format).
type StudentID string

// IsValid checks if the student ID is a valid UUID.
func (s StudentID) IsValid() bool {
	return uuidRegex.MatchString(string(s))
}

// String returns the string representation.
func (s StudentID) String() string {
	return string(s)
}

// IsEmpty checks if the ID is empty.
func (s StudentID) IsEmpty() bool {
	return s == ""
}

// NewStudentID creates a new StudentID with validation.
func NewStudentID(id string) (StudentID, error) {
	sid := StudentID(strings.ToLower(strings.TrimSpace(id)))
	if !sid.IsValid() {
		return "", NewDomainError("shared", "NewStudentID", ErrInvalidID, "invalid student ID format")
	}
	return sid, nil
}

// CourseID represents a unique course identifier (UUID format).
type CourseID string

// IsValid checks if the course ID is a valid UUID.
func (c CourseID) IsValid() bool {
	return uuidRegex.MatchString(string(c))
}

// String returns the string representation.
func (c CourseID) String() string {
	return string(c)
}

// IsEmpty checks if the ID is empty.
func (c CourseID) IsEmpty() bool {
	return c == ""
}

// NewCourseID creates a new CourseID with validation.
func NewCourseID(id string) (CourseID, error) {
	cid := CourseID(strings.ToLower(strings.TrimSpace(id)))
	if !cid.IsValid() {
		return "", NewDomainError("shared", "NewCourseID", ErrInvalidID, "invalid course ID format")
	}
	return cid, nil
}

// OrderID identifies the commerce transaction that created an enrollment.
// Order IDs are opaque: the commerce system owns their format.
type OrderID string

// IsValid checks that the order ID is non-empty.
func (o OrderID) IsValid() bool {
	return strings.TrimSpace(string(o)) != ""
}

// String returns the string representation.
func (o OrderID) String() string {
	return string(o)
}

// ═══════════════════════════════════════════════════════════════════════════
// Percent Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Percent represents a completion percentage in [0, 100] with two-decimal precision.
type Percent float64

// Round2 rounds a ratio (completed/total) into a Percent with two decimals,
// clamped to [0, 100].
func Round2(completed, total int) Percent {
	if total <= 0 {
		return 0
	}
	p := float64(completed) / float64(total) * 100
	p = math.Round(p*100) / 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return Percent(p)
}

// IsValid checks that the percent is within [0, 100].
func (p Percent) IsValid() bool {
	return p >= 0 && p <= 100
}

// IsComplete reports whether the percent is exactly 100.
func (p Percent) IsComplete() bool {
	return p == 100
}

// Float64 returns the underlying float64 value.
func (p Percent) Float64() float64 {
	return float64(p)
}

// String returns the string representation with two decimals.
func (p Percent) String() string {
	return fmt.Sprintf("%.2f", float64(p))
}

// ═══════════════════════════════════════════════════════════════════════════
// Money Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Money represents a price carried on an order line item.
// The core never does arithmetic on money; it only passes it through to events.
type Money struct {
	Amount   float64
	Currency string
}

// IsValid checks that the amount is non-negative and a currency is set.
func (m Money) IsValid() bool {
	return m.Amount >= 0 && len(m.Currency) == 3
}

// String returns the string representation, e.g. "19.99 USD".
func (m Money) String() string {
	return fmt.Sprintf("%.2f %s", m.Amount, m.Currency)
}

// ═══════════════════════════════════════════════════════════════════════════
// Timestamp helpers
// ═══════════════════════════════════════════════════════════════════════════

// Timestamp wraps a UTC point in time used across aggregates.
type Timestamp struct {
	value time.Time
}

// NewTimestamp creates a Timestamp normalized to UTC.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{value: t.UTC()}
}

// Now returns the current UTC timestamp.
func Now() Timestamp {
	return Timestamp{value: time.Now().UTC()}
}

// Time returns the underlying time.Time.
func (t Timestamp) Time() time.Time {
	return t.value
}

// IsZero reports whether the timestamp is unset.
func (t Timestamp) IsZero() bool {
	return t.value.IsZero()
}
