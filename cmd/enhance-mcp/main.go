// Package main exposes image enhancement as an MCP tool over stdio, so an
// assistant can request Nano Banana edits directly.
//
// Tool: enhance_image {prompt, image_urls, output_format?, image_size?}
// returns {image, taskId}. Logs go to stderr; stdout carries the protocol.
package main

import (
	"context"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/fpang/banana-enhance/internal/config"
	"github.com/fpang/banana-enhance/internal/enhance"
	"github.com/fpang/banana-enhance/internal/logging"
	"github.com/fpang/banana-enhance/internal/metrics"
)

// EnhanceInput is the enhance_image tool input.
type EnhanceInput struct {
	Prompt       string   `json:"prompt" jsonschema:"edit instruction for the model"`
	ImageURLs    []string `json:"image_urls" jsonschema:"publicly reachable source image URLs"`
	OutputFormat string   `json:"output_format,omitempty" jsonschema:"output format, png (default) or jpeg"`
	ImageSize    string   `json:"image_size,omitempty" jsonschema:"output aspect ratio, auto (default), 1:1, 16:9, ..."`
}

// EnhanceOutput is the enhance_image tool result.
type EnhanceOutput struct {
	Image  string `json:"image" jsonschema:"URL of the enhanced image"`
	TaskID string `json:"taskId" jsonschema:"upstream task ID"`
}

func main() {
	initStart := time.Now()
	if err := config.LoadDotEnv(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load .env")
	}
	logging.Init()
	// EMF lines would corrupt the stdio protocol stream.
	metrics.SetOutput(io.Discard)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	var enhancer enhance.Enhancer = enhance.NewDemoEnhancer()
	if !cfg.DemoMode {
		enhancer = enhance.NewClient(cfg.APIKey, cfg.ClientOptions()...)
	}

	server := newServer(enhancer, cfg.DemoMode)

	logging.NewStartupLogger("enhance-mcp").
		CommitHash(commitHash).
		BuildTime(buildTime).
		Config("baseUrl", cfg.BaseURL).
		Feature("demoMode", cfg.DemoMode).
		InitDuration(time.Since(initStart)).
		Log()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}

// newServer builds the MCP server with the enhance_image tool registered.
func newServer(enhancer enhance.Enhancer, demo bool) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "banana-enhance", Version: commitHash}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        "enhance_image",
		Description: "Edit one or more images with the Nano Banana model using a text prompt. Blocks until the result is ready (up to a few minutes).",
	}, enhanceTool(enhancer, demo))
	return server
}

func enhanceTool(enhancer enhance.Enhancer, demo bool) mcp.ToolHandlerFor[EnhanceInput, EnhanceOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, in EnhanceInput) (*mcp.CallToolResult, EnhanceOutput, error) {
		req := enhance.Request{
			Prompt:       in.Prompt,
			ImageURLs:    in.ImageURLs,
			OutputFormat: in.OutputFormat,
			ImageSize:    in.ImageSize,
		}
		if !demo {
			normalized, err := req.Normalize()
			if err != nil {
				return nil, EnhanceOutput{}, err
			}
			req = normalized
		}

		result, err := enhancer.Enhance(ctx, req)
		if err != nil {
			log.Error().Err(err).Str("errorType", enhance.TypeOf(err).String()).Msg("enhance_image failed")
			return nil, EnhanceOutput{}, err
		}
		log.Info().Str("taskId", result.TaskID).Msg("enhance_image complete")
		return nil, EnhanceOutput{Image: result.ImageURL, TaskID: result.TaskID}, nil
	}
}
