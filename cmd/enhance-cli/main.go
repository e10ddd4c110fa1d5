package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/banana-enhance/internal/config"
	"github.com/fpang/banana-enhance/internal/enhance"
	"github.com/fpang/banana-enhance/internal/logging"
	"github.com/fpang/banana-enhance/internal/metrics"
)

// CLI flags
var (
	promptFlag  string
	imagesFlag  []string
	formatFlag  string
	sizeFlag    string
	demoFlag    bool
	envFileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "enhance-cli",
	Short: "Run one Nano Banana image enhancement from the terminal",
	Long: `enhance-cli submits a single enhancement task to the kie.ai API, waits for
it to finish and prints the result as JSON.

KIE_API_KEY must be set (or present in .env) unless --demo is used.

Examples:
  enhance-cli --prompt "make the sky more dramatic" --image https://example.com/photo.jpg
  enhance-cli -p "combine these" -i https://example.com/a.png -i https://example.com/b.png --format jpeg
  enhance-cli --demo`,
	SilenceUsage: true,
	RunE:         runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Edit instruction for the model")
	rootCmd.Flags().StringArrayVarP(&imagesFlag, "image", "i", nil, "Source image URL (repeatable)")
	rootCmd.Flags().StringVar(&formatFlag, "format", enhance.DefaultOutputFormat, "Output format (png, jpeg)")
	rootCmd.Flags().StringVar(&sizeFlag, "size", enhance.DefaultImageSize, "Output aspect ratio (auto, 1:1, 16:9, ...)")
	rootCmd.Flags().BoolVar(&demoFlag, "demo", false, "Return a placeholder image without calling the API")
	rootCmd.Flags().StringVar(&envFileFlag, "env-file", ".env", "Environment file to load if present")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	if err := config.LoadDotEnv(envFileFlag); err != nil {
		return err
	}
	logging.Init()
	metrics.SetOutput(io.Discard)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if demoFlag {
		cfg.DemoMode = true
	}

	var enhancer enhance.Enhancer
	if cfg.DemoMode {
		enhancer = enhance.NewDemoEnhancer()
	} else {
		if err := cfg.Validate(); err != nil {
			return err
		}
		enhancer = enhance.NewClient(cfg.APIKey, cfg.ClientOptions()...)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	req := enhance.Request{
		Prompt:       promptFlag,
		ImageURLs:    imagesFlag,
		OutputFormat: formatFlag,
		ImageSize:    sizeFlag,
	}
	return run(ctx, cmd.OutOrStdout(), enhancer, req, cfg.DemoMode)
}

// run validates req (unless demo), runs one enhancement and writes the
// result body to out.
func run(ctx context.Context, out io.Writer, enhancer enhance.Enhancer, req enhance.Request, demo bool) error {
	if !demo {
		normalized, err := req.Normalize()
		if err != nil {
			return fmt.Errorf("--prompt and at least one --image are required: %w", err)
		}
		req = normalized
	}

	log.Info().Str("request", req.String()).Msg("Starting enhancement")
	result, err := enhancer.Enhance(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("errorType", enhance.TypeOf(err).String()).Msg("Enhancement failed")
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
