package errors

/*
* Error codes are intended to convey detailed errors internally and to clients.
* These should be combined with the appropriate HTTP status code, but are not
* intended to supercede correct HTTP responses. Therefore there is no error code
* for "not found" because HTTP 404 is sufficient. But there is an error code for
* "deleted" which should be served with HTTP 404 status code.
*
* Error codes are grouped under HTTP status code, with some item-specific errors
* defined below these. These should be return with HTTP 400 unless otherwise
* stated.
*
 */

const (

	// HTTP 400 Bad Request.
	// Content-type is not accepted (e.g. text/xml).
	BadContentType ErrCode = 1
	// Content does not match Content-Type or unmarshalling error.
	InvalidContent ErrCode = 2
	// A parameter was not of the expected type.
	UnexpectedType ErrCode = 3
	// A parameter was outside the expected range.
	OutOfRange ErrCode = 4
	// AJAX action is not registered.
	UnknownAction ErrCode = 5

	// HTTP 401 Unauthorized.
	// Requested an action not permitted for guests.
	LoginRequired ErrCode = 6

	// HTTP 403 Forbidden.
	// Authentication.
	ExpiredToken ErrCode = 7
	InvalidToken ErrCode = 8
	// Per-action token did not verify.
	InvalidNonce ErrCode = 9
	// Role does not hold the capability.
	NoCapability ErrCode = 10
	// Values from GetPermission.
	NoRead   ErrCode = 11
	NoCreate ErrCode = 12
	NoUpdate ErrCode = 13
	NoDelete ErrCode = 14

	// HTTP 404 Not Found.
	// Entity deleted flag is true.
	Deleted ErrCode = 15

	// HTTP 409 Conflict.
	// Marketing copy failed the fair housing scan.
	ComplianceViolation ErrCode = 16
	// Campaign has already been sent.
	AlreadySent ErrCode = 17

	// HTTP 413 Request Entity Too Large.
	FileTooLarge ErrCode = 18
	// Image dimensions are invalid.
	InvalidDimensions ErrCode = 19

	// HTTP 500 Internal Server Error.
	// Object storage is not reachable.
	StorageUnavailable ErrCode = 20
)

// HappyPlaceError implements the Error interface.
type HappyPlaceError struct {
	UserID       int64   `json:"userId,omitempty"`
	Function     string  `json:"-"`
	ErrorCode    ErrCode `json:"errorCode"`
	ErrorMessage string  `json:"errorDetail"`
}

// ErrCode identifies a class of client error
type ErrCode uint8

func (e HappyPlaceError) Error() string {
	return e.ErrorMessage
}

// New returns a detailed error
func New(userID int64, function string, errCode ErrCode, errMessage string) error {
	return &HappyPlaceError{
		UserID:       userID,
		Function:     function,
		ErrorCode:    errCode,
		ErrorMessage: errMessage,
	}
}

// Code returns the ErrCode of err, or zero if err carries none
func Code(err error) ErrCode {
	if e, ok := err.(*HappyPlaceError); ok {
		return e.ErrorCode
	}
	return 0
}
