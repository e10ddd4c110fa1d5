// Package main provides the Lambda entry point for the image enhancement
// proxy behind an API Gateway HTTP API.
//
// Routes:
//   - POST /api/enhance: submit a kie.ai task and wait for its result
//   - GET /health, /api/health: liveness
//
// The kie.ai API key is read from KIE_API_KEY or, when unset, from SSM
// Parameter Store (SSM_API_KEY_PARAM). With DEMO_MODE=true no key is needed
// and every request returns a placeholder image.
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/fpang/banana-enhance/internal/config"
	"github.com/fpang/banana-enhance/internal/enhance"
	"github.com/fpang/banana-enhance/internal/httpapi"
	"github.com/fpang/banana-enhance/internal/lambdaboot"
	"github.com/fpang/banana-enhance/internal/logging"
)

var handler http.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	cfg := lambdaboot.LoadConfig()
	handler = newRouter(cfg)

	lambdaboot.StartupLog("enhance-lambda", initStart).
		CommitHash(commitHash).
		BuildTime(buildTime).
		SSMParam("kieApiKey", cfg.SSMParam).
		Config("baseUrl", cfg.BaseURL).
		Config("pollInterval", cfg.PollInterval.String()).
		Config("maxAttempts", strconv.Itoa(cfg.MaxAttempts)).
		Feature("demoMode", cfg.DemoMode).
		Feature("demoRequests", cfg.AllowDemoRequests).
		Log()
}

// newRouter builds the HTTP handler for cfg. The upstream client is only
// created when an API key is available.
func newRouter(cfg config.Config) http.Handler {
	var client enhance.Enhancer
	if cfg.APIKey != "" {
		client = enhance.NewClient(cfg.APIKey, cfg.ClientOptions()...)
	}
	h := httpapi.NewHandler(client,
		httpapi.WithDemo(enhance.NewDemoEnhancer(), cfg.DemoMode, cfg.AllowDemoRequests))
	return httpapi.NewRouter(h, httpapi.RouterOptions{AllowedOrigins: cfg.AllowedOrigins})
}

func main() {
	adapter := httpadapter.NewV2(handler)
	log.Debug().Msg("Starting Lambda handler")
	lambda.Start(adapter.ProxyWithContext)
}
