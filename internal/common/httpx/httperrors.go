package httpx

import (
	"net/http"

	"github.com/tansive/datacatalog/internal/common/apperrors"
)

// Error is an error that already knows the status it is reported with.
type Error struct {
	Description string `json:"description"`
	StatusCode  int    `json:"http_status_code"`
}

type errorRsp struct {
	Result int    `json:"result"`
	Error  string `json:"error"`
}

const Failure int = 0

// Send writes the error as {"result":0,"error":"..."}.
func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	body, err := json.Marshal(&errorRsp{Result: Failure, Error: e.Description})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("Unable to encode error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(body)
}

func (e *Error) Error() string {
	return e.Description
}

// SendError reports an application error with its own status code, or 500
// when it has none.
func SendError(w http.ResponseWriter, err apperrors.Error) {
	if err == nil {
		return
	}
	status := err.StatusCode()
	if status == 0 {
		status = http.StatusInternalServerError
	}
	(&Error{StatusCode: status, Description: err.ErrorAll()}).Send(w)
}

func newError(status int, def string, msg []string) *Error {
	if len(msg) > 0 && msg[0] != "" {
		def = msg[0]
	}
	return &Error{Description: def, StatusCode: status}
}

func ErrReqMethodNotSupported() *Error {
	return newError(http.StatusMethodNotAllowed, "Request Method Not Supported", nil)
}

func ErrUnableToParseReqData() *Error {
	return newError(http.StatusBadRequest, "Unable to parse request", nil)
}

func ErrUnableToReadRequest() *Error {
	return newError(http.StatusBadRequest, "Unable to read request", nil)
}

func ErrApplicationError(msg ...string) *Error {
	return newError(http.StatusInternalServerError, "Unable to process request", msg)
}

func ErrUnAuthorized(msg ...string) *Error {
	return newError(http.StatusUnauthorized, "Unable to authenticate request", msg)
}

func ErrForbidden(msg ...string) *Error {
	return newError(http.StatusForbidden, "not permitted", msg)
}

func ErrInvalidRequest(msg ...string) *Error {
	return newError(http.StatusBadRequest, "empty request values or invalid request", msg)
}
