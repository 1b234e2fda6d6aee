// Package handlers holds the HTTP handlers of the ContractLens API.
package handlers

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/ContractLens/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ContractLens/pkg/errors"
	"github.com/turtacn/ContractLens/pkg/types/common"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 10 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// writeData wraps data in the success envelope.
func writeData[T any](w http.ResponseWriter, r *http.Request, statusCode int, data T) {
	resp := common.NewSuccessResponse(data)
	resp.RequestID = requestID(r)
	writeJSON(w, statusCode, resp)
}

// writeAppError maps err to its HTTP status. Server-side failures are
// masked behind the default message of their code.
func writeAppError(w http.ResponseWriter, r *http.Request, log logging.Logger, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown || code == errors.CodeOK {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)

	msg := errors.DefaultMessageForCode(code)
	var ae *errors.AppError
	if status < http.StatusInternalServerError && stderrors.As(err, &ae) {
		msg = ae.Error()
	}
	if status >= http.StatusInternalServerError && log != nil {
		log.WithContext(r.Context()).Error("request failed",
			logging.String("path", r.URL.Path),
			logging.String("code", code.String()),
			logging.Err(err))
	}

	resp := common.NewErrorResponse(code.String(), msg)
	resp.RequestID = requestID(r)
	writeJSON(w, status, resp)
}

func requestID(r *http.Request) string {
	if id := logging.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return chimw.GetReqID(r.Context())
}

// decodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBodyBytes
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case stderrors.As(err, &tooLarge):
			return errors.New(errors.ErrCodeValidation, "request body too large")
		case stderrors.Is(err, io.EOF):
			return errors.InvalidParam("request body is empty")
		default:
			return errors.Wrap(err, errors.CodeInvalidParam, "malformed JSON body").WithDetail(err.Error())
		}
	}
	return nil
}

//Personal.AI order the ending
