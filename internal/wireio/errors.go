package wireio

import "fmt"

// IoError reports that a read or write against the underlying stream
// itself failed, as distinct from a DecodingError/EncodingError, where the
// stream behaved fine but the bytes on it didn't.
type IoError struct {
	Op  string
	Err error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("wireio: %s: %v", e.Op, e.Err)
}

func (e *IoError) Unwrap() error {
	return e.Err
}

func newIoError(op string, err error) *IoError {
	return &IoError{Op: op, Err: err}
}

// EncodingError reports that a value could not be turned into wire bytes:
// an unknown codec, a compressor rejecting its input, and so on.
type EncodingError struct {
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("wireio: encoding error: %s", e.Reason)
}

func newEncodingError(reason string) *EncodingError {
	return &EncodingError{Reason: reason}
}

// DecodingError reports that wire bytes were read successfully but did not
// form a valid encoding: a bad checksum, an unknown codec tag, a size field
// that disagrees with the bytes that followed it.
type DecodingError struct {
	Reason string
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("wireio: decoding error: %s", e.Reason)
}

func newDecodingError(reason string) *DecodingError {
	return &DecodingError{Reason: reason}
}
