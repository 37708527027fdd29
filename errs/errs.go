// Package errs defines the error-kind taxonomy shared across ontoenv's
// components. Each kind is a sentinel error, matched with errors.Is; callers
// that need the failing path or origin wrap a kind with fmt.Errorf("...: %w").
package errs

import "errors"

// Sentinel error kinds, per spec §7.
var (
	// ErrNotFound indicates an unknown location, IRI or identifier.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguous indicates the resolver policy could not pick a unique candidate.
	ErrAmbiguous = errors.New("ambiguous resolution")
	// ErrMissingOntologyDeclaration indicates require_ontology_names rejected an undeclared graph.
	ErrMissingOntologyDeclaration = errors.New("missing ontology declaration")
	// ErrParse indicates malformed RDF syntax.
	ErrParse = errors.New("parse error")
	// ErrFetch indicates a network or filesystem read failure.
	ErrFetch = errors.New("fetch error")
	// ErrOfflineBlocked indicates a URL fetch was attempted while offline.
	ErrOfflineBlocked = errors.New("offline mode blocks remote fetch")
	// ErrHashMismatch indicates re-ingestion changed content while overwrite was disallowed.
	ErrHashMismatch = errors.New("hash mismatch")
	// ErrBusy indicates the store lock could not be acquired.
	ErrBusy = errors.New("store busy")
	// ErrTimeout indicates an HTTP fetch exceeded its timeout; a lock wait that
	// expires reports ErrBusy.
	ErrTimeout = errors.New("operation timed out")
	// ErrCorruptStore indicates a CRC or layout violation in the persistent store.
	ErrCorruptStore = errors.New("corrupt store")
	// ErrReadOnlyViolation indicates a mutating operation on a read-only environment.
	ErrReadOnlyViolation = errors.New("environment is read-only")
	// ErrClosed indicates an operation on a closed environment.
	ErrClosed = errors.New("environment is closed")
	// ErrTripleAlreadyExists indicates a conflicting add of a triple that is already present.
	ErrTripleAlreadyExists = errors.New("triple already exists")
	// ErrTripleDoesNotExist indicates a delete of a triple that is not present.
	ErrTripleDoesNotExist = errors.New("triple does not exist")
)

// ImportPath annotates an error with the chain of raw import IRIs that led to
// the failing operation and the location it originated from, per spec §7's
// "user-visible behavior" requirement.
type ImportPath struct {
	Kind     error
	Location string
	Path     []string
	Cause    error
}

// Error implements the error interface.
func (e *ImportPath) Error() string {
	msg := e.Kind.Error()
	if e.Location != "" {
		msg += ": at " + e.Location
	}
	if len(e.Path) > 0 {
		msg += ": via "
		for i, iri := range e.Path {
			if i > 0 {
				msg += " -> "
			}
			msg += iri
		}
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap lets errors.Is/errors.As see through to both the kind and the cause.
func (e *ImportPath) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

// Wrap builds an ImportPath error for the given kind, location and import chain.
func Wrap(kind error, location string, path []string, cause error) error {
	return &ImportPath{Kind: kind, Location: location, Path: path, Cause: cause}
}
