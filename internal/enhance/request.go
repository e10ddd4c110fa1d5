package enhance

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeRequest parses a raw JSON payload into a Request, applies defaults,
// and validates it. Any failure is reported as an ErrTypeValidation *Error.
func DecodeRequest(raw []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return Request{}, &Error{Type: ErrTypeValidation, Message: ValidationMessage, Err: err}
	}
	return req.Normalize()
}

// Normalize fills in optional fields and validates the result.
func (r Request) Normalize() (Request, error) {
	if r.OutputFormat == "" {
		r.OutputFormat = DefaultOutputFormat
	}
	if r.ImageSize == "" {
		r.ImageSize = DefaultImageSize
	}
	if err := validate.Struct(r); err != nil {
		return Request{}, &Error{Type: ErrTypeValidation, Message: ValidationMessage, Err: err}
	}
	return r, nil
}

// IsDemo reports whether a raw payload asks for demo mode ("demo_mode": "true").
// The flag arrives as a string from the browser form.
func IsDemo(raw []byte) bool {
	var peek struct {
		DemoMode any `json:"demo_mode"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return false
	}
	switch v := peek.DemoMode.(type) {
	case string:
		return v == "true"
	case bool:
		return v
	default:
		return false
	}
}

func (r Request) String() string {
	return fmt.Sprintf("prompt=%q images=%d format=%s size=%s", r.Prompt, len(r.ImageURLs), r.OutputFormat, r.ImageSize)
}
