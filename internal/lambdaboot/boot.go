// Package lambdaboot provides the Lambda cold-start bootstrap: AWS config,
// configuration resolution (including the SSM-held API key) and the startup
// summary log. Failures are fatal since the function cannot serve without them.
package lambdaboot

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/fpang/banana-enhance/internal/config"
	"github.com/fpang/banana-enhance/internal/logging"
)

// ssmTimeout bounds the cold-start parameter fetch.
const ssmTimeout = 10 * time.Second

// AWSClients holds the AWS SDK clients used during init.
type AWSClients struct {
	Config aws.Config
	SSM    *ssm.Client
}

// InitAWS loads the default AWS config and creates the SSM client.
func InitAWS() AWSClients {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return AWSClients{
		Config: cfg,
		SSM:    ssm.NewFromConfig(cfg),
	}
}

// LoadConfig reads the environment and resolves the kie.ai API key from SSM
// when KIE_API_KEY is not set. The AWS SDK is only initialized when needed.
func LoadConfig() config.Config {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	if cfg.APIKey == "" && !cfg.DemoMode {
		clients := InitAWS()
		ctx, cancel := context.WithTimeout(context.Background(), ssmTimeout)
		defer cancel()
		if err := cfg.ResolveAPIKey(ctx, clients.SSM); err != nil {
			log.Fatal().Err(err).Str("param", cfg.SSMParam).Msg("Failed to read API key from SSM")
		}
	}

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	return cfg
}

// StartupLog returns a startup logger pre-filled with the init duration.
func StartupLog(name string, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).InitDuration(time.Since(initStart))
}
