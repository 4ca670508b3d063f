// Provides middleware for standardizing HTTP handlers.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strconv"

	"github.com/maruel/todod/internal/server/dto"
	"github.com/maruel/todod/internal/server/ratelimit"
	"github.com/maruel/todod/internal/server/reqctx"
)

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*Out, error)
// where In can be unmarshalled from JSON and Out is serialized as JSON.
// Path parameters are extracted into struct fields tagged with `path:"name"`.
// *In must implement dto.Validatable.
//
// Example:
//
//	type DeleteTodoRequest struct {
//	    ID int64 `json:"-" path:"id"`
//	}
//
//	func (h *TodoHandler) DeleteTodo(ctx context.Context, req *DeleteTodoRequest) (*Response, error)
func Wrap[In any, PtrIn interface {
	*In
	dto.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), cfg *Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := addRequestMetadataToContext(r.Context(), r)

		if !checkRateLimit(ctx, w, cfg.Limiters.Match(r.Method, r.URL.Path)) {
			return
		}

		body, ok := readBody(ctx, w, r, cfg.MaxRequestBodyBytes)
		if !ok {
			return
		}
		if err := dto.CheckRequired[In](body); err != nil {
			writeError(ctx, w, err)
			return
		}
		if err := checkBodyPresent(r.Method, body); err != nil {
			writeError(ctx, w, err)
			return
		}
		input := new(In)
		if err := decodeBody(body, input); err != nil {
			writeError(ctx, w, err)
			return
		}
		if err := populatePathParams(r, input); err != nil {
			writeError(ctx, w, err)
			return
		}
		if err := PtrIn(input).Validate(); err != nil {
			writeError(ctx, w, err)
			return
		}

		output, err := fn(ctx, PtrIn(input))
		writeJSONResponse(ctx, w, output, err)
	})
}

// addRequestMetadataToContext adds client IP and User-Agent to the context
// when the access log middleware did not already.
func addRequestMetadataToContext(ctx context.Context, r *http.Request) context.Context {
	if reqctx.ClientIP(ctx) == "" {
		ctx = reqctx.WithClientIP(ctx, reqctx.GetClientIP(r))
	}
	if reqctx.UserAgent(ctx) == "" {
		ctx = reqctx.WithUserAgent(ctx, r.Header.Get("User-Agent"))
	}
	return ctx
}

// checkRateLimit consumes a token from tier for the client and writes the
// rate limit headers. It returns false after writing a 429.
func checkRateLimit(ctx context.Context, w http.ResponseWriter, tier *ratelimit.Tier) bool {
	if tier == nil {
		return true
	}
	result := tier.Limiter.Allow(tier.Key(reqctx.ClientIP(ctx)))
	ratelimit.WriteHeaders(w, result)
	if !result.Allowed {
		writeError(ctx, w, dto.RateLimitExceeded(int(result.RetryAfter.Seconds())))
		return false
	}
	return true
}

// readBody reads the whole request body up to limit bytes. It returns false
// after writing an error response.
func readBody(ctx context.Context, w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		if maxBytesErr := checkMaxBytesError(err); maxBytesErr != nil {
			writeError(ctx, w, dto.PayloadTooLarge(maxBytesErr.Limit))
			return nil, false
		}
		writeError(ctx, w, dto.ValidationFailed("Failed to read request body").Wrap(err))
		return nil, false
	}
	return body, true
}

// checkBodyPresent rejects POST, PUT and PATCH requests without a body.
func checkBodyPresent(method string, body []byte) error {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		if len(bytes.TrimSpace(body)) == 0 {
			return dto.ValidationFailed("Request body is required")
		}
	}
	return nil
}

// decodeBody decodes a JSON body into input. Unknown fields are ignored. An
// empty body leaves input untouched.
func decodeBody(body []byte, input any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	d := json.NewDecoder(bytes.NewReader(body))
	if err := d.Decode(input); err != nil {
		return dto.ValidationFailed("Invalid request body").WithDetail("reason", err.Error()).Wrap(err)
	}
	if d.More() {
		return dto.ValidationFailed("Invalid request body").WithDetail("reason", "trailing data after JSON value")
	}
	return nil
}

// checkMaxBytesError checks if an error is a MaxBytesError and returns it, or nil.
func checkMaxBytesError(err error) *http.MaxBytesError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return maxBytesErr
	}
	return nil
}

// populatePathParams extracts path parameters from the request and populates
// struct fields tagged with `path:"paramName"`.
func populatePathParams(r *http.Request, input any) error {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return nil
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return nil
	}

	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" {
			continue
		}
		paramValue := r.PathValue(tag)
		if paramValue == "" {
			continue
		}

		fieldVal := elem.Field(i)
		switch field.Type.Kind() {
		case reflect.String:
			fieldVal.SetString(paramValue)
		case reflect.Int, reflect.Int32, reflect.Int64:
			n, err := strconv.ParseInt(paramValue, 10, field.Type.Bits())
			if err != nil {
				return dto.InvalidField(tag, "must be an integer").WithDetail("value", paramValue)
			}
			fieldVal.SetInt(n)
		}
	}
	return nil
}

// writeJSONResponse writes a JSON response or error response.
func writeJSONResponse[Out any](ctx context.Context, w http.ResponseWriter, output *Out, err error) {
	if err != nil {
		writeError(ctx, w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(output); err != nil {
		slog.ErrorContext(ctx, "Failed to encode response", "err", err)
	}
}

// writeError logs err and writes it as a structured JSON error. Errors that
// do not carry a status are reported as 500 without their text.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := dto.ErrorCodeInternal
	message := "Internal server error"
	var details map[string]any

	var ewsErr dto.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		message = ewsErr.Error()
		details = ewsErr.Details()
		var apiErr *dto.APIError
		if errors.As(err, &apiErr) {
			message = apiErr.Message()
		}
	}

	if statusCode >= http.StatusInternalServerError {
		slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode)
	} else {
		slog.DebugContext(ctx, "Request rejected", "err", err, "statusCode", statusCode, "code", errorCode)
	}
	writeErrorResponseWithCode(w, statusCode, errorCode, message, details)
}

// writeErrorResponseWithCode writes a detailed error response as JSON with code and details.
func writeErrorResponseWithCode(w http.ResponseWriter, statusCode int, code dto.ErrorCode, message string, details map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := dto.ErrorResponse{
		Error: dto.ErrorDetails{
			Code:    code,
			Message: message,
		},
		Details: details,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "error", err)
	}
}
