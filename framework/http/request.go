package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/km-arc/go-autodi/framework/container"
)

const maxBody = 1 << 20 // 1 MB

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report JSON field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Request wraps *http.Request with binding and container helpers.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// ── Binding ──────────────────────────────────────────────────────────────────

// Bind decodes a JSON body into v and validates it with its `validate` tags.
//
//	var input struct {
//	    Name string `json:"name" validate:"required"`
//	}
//	if err := req.Bind(&input); err != nil {
//	    res.ValidationError(err)
//	    return
//	}
func (req *Request) Bind(v any) error {
	defer req.raw.Body.Close()
	body, err := io.ReadAll(io.LimitReader(req.raw.Body, maxBody))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return errors.New("empty request body")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return err
	}
	return req.Validate(v)
}

// Validate runs the `validate` struct tags of v. Non-struct values pass.
func (req *Request) Validate(v any) error {
	if reflect.Indirect(reflect.ValueOf(v)).Kind() != reflect.Struct {
		return nil
	}
	return validate.Struct(v)
}

// ── Input helpers ────────────────────────────────────────────────────────────

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// RouteParam returns a URL route parameter (chi).
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Header returns a request header value.
func (req *Request) Header(key string) string {
	return req.raw.Header.Get(key)
}

// ── Container ────────────────────────────────────────────────────────────────

// Container returns the request's container installed by RequestScope.
func (req *Request) Container() (*container.Container, bool) {
	return container.FromContext(req.raw.Context())
}

// Resolve resolves T from the request's container on the suspending path,
// bounded by the request context.
//
//	func (h *UserHandler) Show(w http.ResponseWriter, r *http.Request) {
//	    svc, err := apphttp.Resolve[*UserService](r)
//	    ...
//	}
func Resolve[T any](r *http.Request) (T, error) {
	c, ok := container.FromContext(r.Context())
	if !ok {
		var zero T
		return zero, &container.ResolutionError{
			Key:    container.KeyOf[T](),
			Reason: "request carries no container; is the RequestScope middleware installed?",
		}
	}
	return container.ResolveAsync[T](r.Context(), c)
}
