package dwarf

import "fmt"

// DecodeError reports a malformed read at a specific offset within a named
// section, in the same spirit as debug/dwarf.DecodeError.
type DecodeError struct {
	Section string
	Offset Offset
	Err string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding dwarf section %s at offset %#x: %s", e.Section, e.Offset, e.Err)
}

// BadEncodingError is raised when a reader runs off the end of its section
// or hits a malformed LEB128.
type BadEncodingError struct {
	Section string
	Offset Offset
}

func (e *BadEncodingError) Error() string {
	return fmt.Sprintf("bad encoding in section %s at offset %#x", e.Section, e.Offset)
}

// UnknownAbbrevError is raised when an abbreviation code has no entry in
// the unit's abbreviation table.
type UnknownAbbrevError struct {
	Code uint64
}

func (e *UnknownAbbrevError) Error() string {
	return fmt.Sprintf("unknown abbreviation code %d", e.Code)
}

// UnsupportedFormError is raised when the attribute value decoder
// encounters a form it does not implement. It always carries the
// offending form code so callers can tell what was unsupported without
// parsing the error string.
type UnsupportedFormError struct {
	Form Form
}

func (e *UnsupportedFormError) Error() string {
	return fmt.Sprintf("unsupported attribute form %s", e.Form)
}

// WrongFormError is raised when an Attribute is coerced to a shape its
// form cannot produce.
type WrongFormError struct {
	Form Form
	Wanted string
}

func (e *WrongFormError) Error() string {
	return fmt.Sprintf("attribute has form %s, cannot be read as %s", e.Form, e.Wanted)
}

// NoAltReferenceError is raised when a GNU alternate (DWZ) reference is
// used but no alternate file was configured.
type NoAltReferenceError struct{}

func (e *NoAltReferenceError) Error() string { return "no alternate debug file configured" }

// RangeListMalformedError is raised when a range list contains an unknown
// or disallowed entry kind.
type RangeListMalformedError struct {
	Kind string
	Offset Offset
}

func (e *RangeListMalformedError) Error() string {
	return fmt.Sprintf("malformed range list at offset %#x: %s", e.Offset, e.Kind)
}

// InvariantViolatedError indicates corrupt input or a decoder bug: an
// internal invariant that the design guarantees never holds. It is not meant to be recovered from.
type InvariantViolatedError struct {
	What string
}

func (e *InvariantViolatedError) Error() string {
	return fmt.Sprintf("invariant violated: %s", e.What)
}
