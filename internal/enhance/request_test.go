package enhance

import (
	"strings"
	"testing"
)

func TestDecodeRequest(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    bool
		wantFormat string
		wantSize   string
	}{
		{"minimal", `{"prompt":"p","image_urls":["u"]}`, false, "png", "auto"},
		{"explicit options", `{"prompt":"p","image_urls":["u"],"output_format":"jpeg","image_size":"1:1"}`, false, "jpeg", "1:1"},
		{"whitespace prompt kept", `{"prompt":"  ","image_urls":["u"]}`, false, "png", "auto"},
		{"extra fields ignored", `{"prompt":"p","image_urls":["u"],"demo_mode":"false"}`, false, "png", "auto"},
		{"missing prompt", `{"image_urls":["u"]}`, true, "", ""},
		{"empty prompt", `{"prompt":"","image_urls":["u"]}`, true, "", ""},
		{"missing image_urls", `{"prompt":"p"}`, true, "", ""},
		{"empty image_urls", `{"prompt":"p","image_urls":[]}`, true, "", ""},
		{"blank image url", `{"prompt":"p","image_urls":[""]}`, true, "", ""},
		{"image_urls not an array", `{"prompt":"p","image_urls":"u"}`, true, "", ""},
		{"invalid json", `{"prompt":`, true, "", ""},
		{"empty body", ``, true, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeRequest([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected validation error, got %+v", req)
				}
				if TypeOf(err) != ErrTypeValidation {
					t.Errorf("expected validation error type, got %s", TypeOf(err))
				}
				var msg string
				if e, ok := err.(*Error); ok {
					msg = e.Message
				}
				if msg != ValidationMessage {
					t.Errorf("expected fixed validation message, got %q", msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if req.OutputFormat != tt.wantFormat {
				t.Errorf("OutputFormat = %q, want %q", req.OutputFormat, tt.wantFormat)
			}
			if req.ImageSize != tt.wantSize {
				t.Errorf("ImageSize = %q, want %q", req.ImageSize, tt.wantSize)
			}
		})
	}
}

func TestNormalize_DoesNotMutateReceiver(t *testing.T) {
	orig := Request{Prompt: "p", ImageURLs: []string{"u"}}
	got, err := orig.Normalize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.OutputFormat != DefaultOutputFormat {
		t.Errorf("expected default format, got %q", got.OutputFormat)
	}
	if orig.OutputFormat != "" {
		t.Errorf("receiver was modified: %q", orig.OutputFormat)
	}
}

func TestIsDemo(t *testing.T) {
	tests := []struct {
		body string
		want bool
	}{
		{`{"demo_mode":"true"}`, true},
		{`{"demo_mode":true}`, true},
		{`{"demo_mode":"false"}`, false},
		{`{"demo_mode":"TRUE"}`, false},
		{`{"demo_mode":1}`, false},
		{`{"prompt":"p"}`, false},
		{`not json`, false},
		{``, false},
	}
	for _, tt := range tests {
		if got := IsDemo([]byte(tt.body)); got != tt.want {
			t.Errorf("IsDemo(%s) = %v, want %v", tt.body, got, tt.want)
		}
	}
}

func TestRequestString(t *testing.T) {
	req := Request{Prompt: "sharpen", ImageURLs: []string{"a", "b"}, OutputFormat: "png", ImageSize: "auto"}
	s := req.String()
	for _, want := range []string{`prompt="sharpen"`, "images=2", "format=png", "size=auto"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
