package core

import "fmt"

// TransportError reports a connect/auth/fetch/send failure against the mail
// system. Fatal to the current batch step; already-computed verdicts are
// preserved.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("mail transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ParseError reports malformed message content. Recoverable; the offending
// message is skipped with a verdict of Error.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ClassificationServiceError reports a timeout, transport failure, or
// unparseable response from the LLM service. Recoverable; the pipeline fails
// closed and never challenges on its account. Transient marks failures worth
// retrying (connection, 5xx, timeout) as opposed to a response that arrived
// but could not be parsed.
type ClassificationServiceError struct {
	Provider  string
	Transient bool
	Err       error
}

func (e *ClassificationServiceError) Error() string {
	return fmt.Sprintf("classification service %s: %v", e.Provider, e.Err)
}

func (e *ClassificationServiceError) Unwrap() error { return e.Err }

// PersistenceError reports a trust store write failure. Fatal for that
// sender's promotion only; the batch continues.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("trust store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
