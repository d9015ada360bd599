package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/km-arc/go-autodi/framework/container"
)

// ── Response ─────────────────────────────────────────────────────────────────

// Response wraps http.ResponseWriter with JSON helpers.
type Response struct {
	w http.ResponseWriter
}

// NewResponse wraps a ResponseWriter.
func NewResponse(w http.ResponseWriter) *Response {
	return &Response{w: w}
}

// Raw returns the underlying ResponseWriter.
func (res *Response) Raw() http.ResponseWriter { return res.w }

// ── JSON responses ────────────────────────────────────────────────────────────

// JSON sends a JSON response.
//
//	res.JSON(http.StatusOK, map[string]any{"message": "ok"})
func (res *Response) JSON(status int, data any) {
	res.w.Header().Set("Content-Type", "application/json")
	res.w.WriteHeader(status)
	_ = json.NewEncoder(res.w).Encode(data)
}

// Success sends 200 JSON: {"data": v}
func (res *Response) Success(v any) {
	res.JSON(http.StatusOK, envelope{"data": v})
}

// Created sends 201 JSON: {"data": v}
func (res *Response) Created(v any) {
	res.JSON(http.StatusCreated, envelope{"data": v})
}

// NoContent sends 204 with no body.
func (res *Response) NoContent() {
	res.w.WriteHeader(http.StatusNoContent)
}

// Error sends a JSON error response.
//
//	res.Error(http.StatusNotFound, "Resource not found")
func (res *Response) Error(status int, message string) {
	res.JSON(status, envelope{"message": message})
}

// BadRequest sends 400.
func (res *Response) BadRequest(message ...string) {
	res.Error(http.StatusBadRequest, first(message, "Bad request."))
}

// NotFound sends 404.
func (res *Response) NotFound(message ...string) {
	res.Error(http.StatusNotFound, first(message, "Not found."))
}

// ServerError sends 500.
func (res *Response) ServerError(message ...string) {
	res.Error(http.StatusInternalServerError, first(message, "Server Error."))
}

// ValidationError sends 422 with one message list per invalid field. Errors
// that did not come from the validator are sent as 400.
//
//	if err := req.Validate(&input); err != nil {
//	    res.ValidationError(err)
//	    return
//	}
func (res *Response) ValidationError(err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		res.BadRequest(err.Error())
		return
	}

	bag := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		bag[fe.Field()] = append(bag[fe.Field()], fe.Field()+" failed the "+fe.Tag()+" rule")
	}
	res.JSON(http.StatusUnprocessableEntity, envelope{
		"message": "The given data was invalid.",
		"errors":  bag,
	})
}

// DependencyError sends 500 for a failed resolution, naming the error kind
// but not the internal key names.
//
//	svc, err := http.Resolve[*UserService](r)
//	if err != nil {
//	    res.DependencyError(err)
//	    return
//	}
func (res *Response) DependencyError(err error) {
	kind := container.Kind(err)
	if kind == "" {
		kind = "unknown"
	}
	res.JSON(http.StatusInternalServerError, envelope{
		"message": "Dependency resolution failed.",
		"kind":    kind,
	})
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type envelope map[string]any

func first(ss []string, fallback string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return fallback
}
