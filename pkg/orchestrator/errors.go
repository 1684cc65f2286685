package orchestrator

import "errors"

var (
	// ErrUnsupportedInterruptKind is raised when an interrupt record carries
	// a kind other than superchat or gift. Input validation should make this
	// unreachable; surfaced as a fatal condition if it ever happens.
	ErrUnsupportedInterruptKind = errors.New("unsupported interrupt kind")

	// ErrUnknownPersona is raised when neither the requested persona nor the
	// configured default persona exists in the reference catalog.
	ErrUnknownPersona = errors.New("no persona reference configured")

	// ErrCorruptChunk is raised when a drained audio record is missing a
	// required field.
	ErrCorruptChunk = errors.New("audio chunk record is corrupt")

	// ErrMissingSuperchatFields is raised when a superchat interrupt is
	// registered without both a persona and a message.
	ErrMissingSuperchatFields = errors.New("superchat interrupts require persona and message")

	// ErrCatalogNotLoaded is a fatal startup error: the persona reference
	// catalog failed to load.
	ErrCatalogNotLoaded = errors.New("persona reference catalog not loaded")
)
