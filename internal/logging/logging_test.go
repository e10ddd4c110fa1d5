package logging

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestSetLevel(t *testing.T) {
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"info":    zerolog.InfoLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for name, want := range tests {
		SetLevel(name)
		if got := zerolog.GlobalLevel(); got != want {
			t.Errorf("SetLevel(%q) = %s, want %s", name, got, want)
		}
	}
}

func TestStartupLogger_Log(t *testing.T) {
	var buf bytes.Buffer
	orig := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = orig })
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")

	NewStartupLogger("enhance-server").
		CommitHash("abc123").
		SSMParam("kieApiKey", "/banana-enhance/prod/kie-api-key").
		Feature("demoMode", true).
		Config("baseUrl", "https://api.kie.ai/api/v1/jobs").
		InitDuration(150 * time.Millisecond).
		Log()

	var evt map[string]any
	if err := json.Unmarshal(buf.Bytes(), &evt); err != nil {
		t.Fatalf("startup event is not JSON: %v\n%s", err, buf.String())
	}
	if evt["message"] != "Startup complete" {
		t.Errorf("unexpected message: %v", evt["message"])
	}
	process, _ := evt["process"].(map[string]any)
	if process["name"] != "enhance-server" || process["commitHash"] != "abc123" {
		t.Errorf("unexpected process block: %v", process)
	}
	if _, ok := process["functionName"]; ok {
		t.Error("functionName should be omitted outside Lambda")
	}
	features, _ := evt["features"].(map[string]any)
	if features["demoMode"] != true {
		t.Errorf("expected demoMode feature, got %v", features)
	}
	ssm, _ := evt["ssmParams"].(map[string]any)
	if ssm["kieApiKey"] != "/banana-enhance/prod/kie-api-key" {
		t.Errorf("unexpected ssmParams: %v", ssm)
	}
}

func TestEnvOrDefault(t *testing.T) {
	t.Setenv("ENHANCE_TEST_VAR", "")
	if got := EnvOrDefault("ENHANCE_TEST_VAR", "fallback"); got != "fallback" {
		t.Errorf("expected fallback, got %q", got)
	}
	t.Setenv("ENHANCE_TEST_VAR", "set")
	if got := EnvOrDefault("ENHANCE_TEST_VAR", "fallback"); got != "set" {
		t.Errorf("expected set, got %q", got)
	}
}
