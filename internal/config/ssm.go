package config

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// ParameterGetter is the subset of *ssm.Client used to read secrets.
type ParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// FetchSecret reads a SecureString parameter with decryption.
func FetchSecret(ctx context.Context, client ParameterGetter, name string) (string, error) {
	start := time.Now()
	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", name, err)
	}
	if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
		return "", fmt.Errorf("parameter %s is empty", name)
	}
	log.Debug().Str("param", name).Dur("elapsed", time.Since(start)).Msg("Secret loaded from SSM")
	return aws.ToString(out.Parameter.Value), nil
}

// ResolveAPIKey fills c.APIKey from SSM when it was not set in the
// environment. Demo-only deployments skip the lookup.
func (c *Config) ResolveAPIKey(ctx context.Context, client ParameterGetter) error {
	if c.APIKey != "" || c.DemoMode {
		return nil
	}
	key, err := FetchSecret(ctx, client, c.SSMParam)
	if err != nil {
		return err
	}
	c.APIKey = key
	return nil
}
