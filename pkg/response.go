package pkg

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// APIResponse is the envelope every endpoint returns.
type APIResponse struct {
	Success    bool         `json:"success"`
	Data       any          `json:"data,omitempty"`
	Message    string       `json:"message,omitempty"`
	Error      string       `json:"error,omitempty"`
	Errors     []FieldError `json:"errors,omitempty"`
	Pagination *Pagination  `json:"pagination,omitempty"`
	Meta       any          `json:"meta,omitempty"`
}

// Pagination accompanies list responses.
type Pagination struct {
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Pages int `json:"pages"`
}

// NewPagination derives the page count from total and limit.
func NewPagination(total, page, limit int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &Pagination{Total: total, Page: page, Limit: limit, Pages: pages}
}

// JSON writes a success envelope around data.
func JSON(w http.ResponseWriter, status int, data any) {
	Write(w, status, &APIResponse{Success: true, Data: data})
}

// Message writes a success envelope with only a message.
func Message(w http.ResponseWriter, status int, message string) {
	Write(w, status, &APIResponse{Success: true, Message: message})
}

// Write encodes an envelope as-is. Used when pagination or meta is attached.
func Write(w http.ResponseWriter, status int, resp *APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := sonic.ConfigStd.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// ErrorWithMessage writes a failure envelope with a fixed message.
func ErrorWithMessage(w http.ResponseWriter, status int, message string) {
	Write(w, status, &APIResponse{Success: false, Message: message})
}

// Error maps err onto the taxonomy and writes the failure envelope.
// Unclassified errors become 500; they are logged with the request logger and
// their text is only exposed outside production.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		Write(w, http.StatusBadRequest, &APIResponse{
			Success: false,
			Message: "Validation failed",
			Errors:  vErr.Fields,
		})
		return
	}

	var cErr *ConflictError
	if errors.As(err, &cErr) {
		Write(w, http.StatusConflict, &APIResponse{
			Success: false,
			Message: cErr.Message,
			Data:    cErr.Data,
		})
		return
	}

	status, sentinel := classify(err)
	if status == http.StatusInternalServerError {
		info := requestInfoFrom(r.Context())
		info.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))

		resp := &APIResponse{Success: false, Message: "Internal server error"}
		if info.exposeErrors {
			resp.Error = err.Error()
		}
		Write(w, status, resp)
		return
	}

	Write(w, status, &APIResponse{Success: false, Message: publicMessage(err, sentinel)})
}

// DecodeJSON decodes the request body into dst, rejecting unknown fields and
// trailing data.
func DecodeJSON(r *http.Request, dst any) error {
	dec := sonic.ConfigStd.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", ErrBadRequest)
		}
		return fmt.Errorf("%w: invalid request body", ErrBadRequest)
	}
	return nil
}

func classify(err error) (int, error) {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, ErrNotFound
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, ErrUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, ErrForbidden
	case errors.Is(err, ErrAlreadyExists):
		return http.StatusConflict, ErrAlreadyExists
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, ErrBadRequest
	default:
		return http.StatusInternalServerError, ErrInternal
	}
}

// publicMessage strips the "<sentinel>: " prefix added by wrapping so the
// client sees "Server not found" rather than "not found: Server not found".
func publicMessage(err, sentinel error) string {
	msg := err.Error()
	if trimmed, ok := strings.CutPrefix(msg, sentinel.Error()+": "); ok {
		return trimmed
	}
	return msg
}
