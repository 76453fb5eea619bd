// Package bcerrors defines the error taxonomy raised by the storage
// engine. Every fallible operation in internal/format, internal/logfile,
// internal/keydir, internal/dirlock and internal/store returns one of
// these kinds (wrapped with context) rather than an ad-hoc error string,
// so callers can branch on Code() instead of matching messages.
package bcerrors

import "fmt"

// ErrorCode categorizes a failure independently of its message, mirroring
// the taxonomy in spec.md §7.
type ErrorCode string

const (
	CodeIO                ErrorCode = "IO"
	CodeAlreadyOpen       ErrorCode = "ALREADY_OPEN"
	CodeNotADirectory     ErrorCode = "NOT_A_DIRECTORY"
	CodeBadFilename       ErrorCode = "BAD_FILENAME"
	CodeKeyTooLong        ErrorCode = "KEY_TOO_LONG"
	CodeValueTooLong      ErrorCode = "VALUE_TOO_LONG"
	CodeCorruptRecord     ErrorCode = "CORRUPT_RECORD"
	CodeDanglingReference ErrorCode = "DANGLING_REFERENCE"
	CodeUnexpectedEOF     ErrorCode = "UNEXPECTED_EOF"
)

// baseError carries a code, a human message, an optional wrapped cause,
// and arbitrary structured context (path, offset, operation name).
type baseError struct {
	code    ErrorCode
	message string
	cause   error
	details map[string]any
}

func newBase(code ErrorCode, msg string, cause error) *baseError {
	return &baseError{code: code, message: msg, cause: cause}
}

func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *baseError) Unwrap() error { return e.cause }

func (e *baseError) Code() ErrorCode { return e.code }

func (e *baseError) Details() map[string]any { return e.details }

func (e *baseError) withDetail(key string, value any) *baseError {
	if e.details == nil {
		e.details = make(map[string]any)
	}
	e.details[key] = value
	return e
}

// Error is the concrete type returned by every constructor below. It is
// exported so callers can type-assert (or use errors.As) to reach Code(),
// Path(), Op() and Offset() without parsing the message.
type Error struct {
	*baseError
	path   string
	op     string
	offset int64
}

// Path is the filesystem path involved, if any.
func (e *Error) Path() string { return e.path }

// Op is the operation name involved (e.g. "open", "read", "seek"), if any.
func (e *Error) Op() string { return e.op }

// Offset is the byte offset involved (e.g. where a CRC check failed), if any.
func (e *Error) Offset() int64 { return e.offset }

func newErr(code ErrorCode, msg string, cause error) *Error {
	return &Error{baseError: newBase(code, msg, cause)}
}

// WithPath attaches a filesystem path to the error and returns it.
func (e *Error) WithPath(path string) *Error {
	e.path = path
	e.withDetail("path", path)
	return e
}

// WithOp attaches an operation name to the error and returns it.
func (e *Error) WithOp(op string) *Error {
	e.op = op
	e.withDetail("op", op)
	return e
}

// WithOffset attaches a byte offset to the error and returns it.
func (e *Error) WithOffset(offset int64) *Error {
	e.offset = offset
	e.withDetail("offset", offset)
	return e
}

// IO wraps a filesystem error, carrying the path and operation that failed.
func IO(op, path string, cause error) *Error {
	return newErr(CodeIO, fmt.Sprintf("%s failed", op), cause).WithOp(op).WithPath(path)
}

// AlreadyOpen reports that the directory lock is held by another instance.
func AlreadyOpen(path string, cause error) *Error {
	return newErr(CodeAlreadyOpen, "store directory is already open by another instance", cause).WithPath(path)
}

// NotADirectory reports that the store path exists but is not a directory.
func NotADirectory(path string) *Error {
	return newErr(CodeNotADirectory, "path exists and is not a directory", nil).WithPath(path)
}

// BadFilename reports a data or hint file path that does not match the
// expected naming convention.
func BadFilename(name string) *Error {
	return newErr(CodeBadFilename, "not a valid data file name", nil).WithPath(name)
}

// KeyTooLong reports a key whose length exceeds MaxKeySize.
func KeyTooLong(size int) *Error {
	return newErr(CodeKeyTooLong, fmt.Sprintf("key length %d exceeds limit", size), nil)
}

// ValueTooLong reports a value whose length exceeds MaxValueSize.
func ValueTooLong(size int) *Error {
	return newErr(CodeValueTooLong, fmt.Sprintf("value length %d exceeds limit", size), nil)
}

// CorruptRecord reports a CRC mismatch encountered while scanning path at offset.
func CorruptRecord(path string, offset int64) *Error {
	return newErr(CodeCorruptRecord, "CRC mismatch", nil).WithPath(path).WithOffset(offset)
}

// DanglingReference reports that the key index points at a file id that is
// no longer present in the store's file map.
func DanglingReference(fileID uint64) *Error {
	e := newErr(CodeDanglingReference, fmt.Sprintf("index references unknown file id %x", fileID), nil)
	e.withDetail("file_id", fileID)
	return e
}

// UnexpectedEOF reports a torn record: the file ended partway through a
// record's header or body, distinct from a clean end of file (no bytes of
// a further record at all).
func UnexpectedEOF(path string, offset int64) *Error {
	return newErr(CodeUnexpectedEOF, "truncated record", nil).WithPath(path).WithOffset(offset)
}

// Is allows errors.Is(err, bcerrors.CodeX) style checks via a sentinel code
// comparison helper; callers more commonly use errors.As(&target) to reach
// the *Error and compare Code() directly.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if ok := asError(err, &e); ok {
		return e.Code() == code
	}
	return false
}

func asError(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
