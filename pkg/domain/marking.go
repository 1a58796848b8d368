package domain

import dErrors "gradegate/pkg/domain-errors"

// Marking is the three-valued grading outcome recorded on an evaluation.
type Marking string

const (
	MarkingDone    Marking = "done"
	MarkingPartial Marking = "partial"
	MarkingNotDone Marking = "not_done"
)

var validMarkings = map[Marking]bool{
	MarkingDone:    true,
	MarkingPartial: true,
	MarkingNotDone: true,
}

// ParseMarking constructs a Marking from external input.
//
// Errors: returns CodeValidation when the value is empty or unsupported.
func ParseMarking(s string) (Marking, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "marking cannot be empty")
	}
	m := Marking(s)
	if !m.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "invalid marking")
	}
	return m, nil
}

// IsValid checks if the marking is one of the supported enum values.
func (m Marking) IsValid() bool {
	return validMarkings[m]
}

func (m Marking) String() string {
	return string(m)
}
