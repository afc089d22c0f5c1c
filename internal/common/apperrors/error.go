package apperrors

// Error is a chainable application error. Derivations (New, Msg, MsgErr, Err,
// Prefix, Suffix) return a new error whose base is the receiver, so a derived
// error still matches every ancestor with errors.Is.
type Error interface {
	Error() string
	ErrorAll() string
	New(msg string) Error
	MsgErr(msg string, err ...error) Error
	Msg(msg string) Error
	Prefix(prefix string) Error
	Suffix(suffix string) Error
	Err(err ...error) Error
	Unwrap() []error
	Is(target error) bool
	SetExpandError(expand bool) Error
	SetStatusCode(code int) Error
	StatusCode() int
}
