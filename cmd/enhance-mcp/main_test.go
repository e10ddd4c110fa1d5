package main

import (
	"context"
	"testing"

	"github.com/fpang/banana-enhance/internal/enhance"
)

type stubEnhancer struct {
	result *enhance.Result
	err    error
	got    enhance.Request
	calls  int
}

func (s *stubEnhancer) Enhance(_ context.Context, req enhance.Request) (*enhance.Result, error) {
	s.calls++
	s.got = req
	return s.result, s.err
}

func TestEnhanceTool(t *testing.T) {
	stub := &stubEnhancer{result: &enhance.Result{ImageURL: "https://x/1.png", TaskID: "T1"}}
	handler := enhanceTool(stub, false)

	_, out, err := handler(context.Background(), nil, EnhanceInput{Prompt: "p", ImageURLs: []string{"u"}, ImageSize: "1:1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Image != "https://x/1.png" || out.TaskID != "T1" {
		t.Errorf("unexpected output: %+v", out)
	}
	if stub.got.OutputFormat != "png" || stub.got.ImageSize != "1:1" {
		t.Errorf("unexpected request: %+v", stub.got)
	}
}

func TestEnhanceTool_InvalidInput(t *testing.T) {
	stub := &stubEnhancer{}
	handler := enhanceTool(stub, false)

	_, _, err := handler(context.Background(), nil, EnhanceInput{Prompt: "p"})
	if enhance.TypeOf(err) != enhance.ErrTypeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if stub.calls != 0 {
		t.Error("enhancer must not run for invalid input")
	}
}

func TestEnhanceTool_UpstreamError(t *testing.T) {
	stub := &stubEnhancer{err: &enhance.Error{Type: enhance.ErrTypeTimeout, Message: "Task timed out after 30 attempts"}}
	handler := enhanceTool(stub, false)

	_, _, err := handler(context.Background(), nil, EnhanceInput{Prompt: "p", ImageURLs: []string{"u"}})
	if enhance.TypeOf(err) != enhance.ErrTypeTimeout {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestNewServer(t *testing.T) {
	if newServer(&stubEnhancer{}, true) == nil {
		t.Fatal("expected server")
	}
}
