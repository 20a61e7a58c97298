package shared

import (
	"strings"
)

// ═══════════════════════════════════════════════════════════════════════════
// Code Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// Batch is one of the four cohorts a student belongs to.
type Batch string

const (
	BatchA Batch = "A"
	BatchB Batch = "B"
	BatchC Batch = "C"
	BatchD Batch = "D"
)

// AllBatches lists batches in their canonical order.
var AllBatches = []Batch{BatchA, BatchB, BatchC, BatchD}

// IsValid checks if the batch is one of A-D.
func (b Batch) IsValid() bool {
	switch b {
	case BatchA, BatchB, BatchC, BatchD:
		return true
	}
	return false
}

// String returns the batch letter.
func (b Batch) String() string {
	return string(b)
}

// NewBatch parses a batch letter, accepting surrounding space and lower case.
func NewBatch(s string) (Batch, error) {
	b := Batch(strings.ToUpper(strings.TrimSpace(s)))
	if !b.IsValid() {
		return "", ErrInvalidBatch
	}
	return b, nil
}

// PhaseCode identifies a phase of the academic year, e.g. "MED".
type PhaseCode string

// Canonical phase codes.
const (
	PhaseMedicine  PhaseCode = "MED"
	PhaseSurgery   PhaseCode = "SUR"
	PhaseOBGY      PhaseCode = "OBG"
	PhaseOthers    PhaseCode = "OTH"
	PhaseCommunity PhaseCode = "COM"
)

// String returns the phase code.
func (p PhaseCode) String() string {
	return string(p)
}

// RotationCode identifies a clinical rotation, e.g. "GM".
type RotationCode string

// NoRotation is the sentinel returned when a student has no assignment.
const NoRotation RotationCode = "None"

// String returns the rotation code.
func (r RotationCode) String() string {
	return string(r)
}

// IsNone reports whether the code is the empty or "None" sentinel.
func (r RotationCode) IsNone() bool {
	return r == "" || r == NoRotation
}
