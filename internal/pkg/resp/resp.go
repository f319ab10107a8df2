/*
Package resp provides helpers for standardized HTTP JSON responses.

Every response shares the {code, message, data} envelope; code 0 means success and any other
value is an errs code.
*/
package resp

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ahmadjilani1/chathub/internal/pkg/errs"
	"github.com/ahmadjilani1/chathub/internal/pkg/logx"
)

// JSONResponse defines the standardized JSON response structure returned to clients.
type JSONResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// RespondJSON sets the headers and writes payload with httpStatus.
func RespondJSON(w http.ResponseWriter, r *http.Request, httpStatus int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	response, err := json.Marshal(payload)
	if err != nil {
		logx.Error(err, "Error encoding JSON response", "http_status", httpStatus)

		http.Error(w, "Error encoding JSON response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(httpStatus)
	_, _ = w.Write(response)
}

// RespondSuccess sends data with HTTP 200 and code 0.
func RespondSuccess(w http.ResponseWriter, r *http.Request, data any) {
	RespondJSON(w, r, http.StatusOK, JSONResponse{
		Code:    0,
		Message: "success",
		Data:    data,
	})
}

// RespondError sends err as an error envelope. Errors that are not CustomErrors are logged
// and reported as ErrUnknown so internal detail never reaches the client.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	var customErr *errs.CustomError
	if !errors.As(err, &customErr) {
		if err != nil {
			logx.Error(err, "Unclassified error reached HTTP response", "path", r.URL.Path)
		}
		customErr = errs.NewError(errs.ErrUnknown)
	}

	RespondJSON(w, r, customErr.Status, JSONResponse{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
}
