// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/joho/godotenv"
)

// =============================================================================
// SECRETS FILE
// =============================================================================

// FileSource reads a key from a TOML secrets file:
//
//	openai_api_key = "sk-..."
type FileSource struct {
	path string
	key  string
}

// NewFileSource creates a source for key in the TOML file at path.
func NewFileSource(path, key string) *FileSource {
	return &FileSource{path: path, key: key}
}

// Name implements Source.
func (f *FileSource) Name() string { return "secrets file" }

// Lookup implements Source. A missing file or key is ErrNotFound.
func (f *FileSource) Lookup(_ context.Context) (string, error) {
	if f.path == "" {
		return "", ErrNotFound
	}
	var secrets map[string]interface{}
	if _, err := toml.DecodeFile(f.path, &secrets); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read %s: %w", f.path, err)
	}

	raw, ok := secrets[f.key]
	if !ok {
		return "", ErrNotFound
	}
	value, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s in %s is not a string", f.key, f.path)
	}
	if strings.TrimSpace(value) == "" {
		return "", ErrNotFound
	}
	return value, nil
}

// =============================================================================
// AWS SSM PARAMETER STORE
// =============================================================================

// ssmAPI is the subset of *ssm.Client used here.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// SSMSource reads a SecureString parameter from AWS SSM.
type SSMSource struct {
	api  ssmAPI
	name string
}

// NewSSMSource creates a source over an existing SSM API.
func NewSSMSource(api ssmAPI, name string) (*SSMSource, error) {
	if api == nil {
		return nil, errors.New("credential: ssm api must not be nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("credential: ssm parameter name is required")
	}
	return &SSMSource{api: api, name: name}, nil
}

// NewSSMSourceFromConfig loads the default AWS configuration and creates
// an SSM-backed source. An empty region uses the SDK's default chain.
func NewSSMSourceFromConfig(ctx context.Context, name, region string) (*SSMSource, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSSMSource(ssm.NewFromConfig(cfg), name)
}

// Name implements Source.
func (s *SSMSource) Name() string { return "ssm:" + s.name }

// Lookup implements Source. ParameterNotFound is ErrNotFound.
func (s *SSMSource) Lookup(ctx context.Context) (string, error) {
	out, err := s.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(s.name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get parameter %q: %w", s.name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", ErrNotFound
	}
	return aws.ToString(out.Parameter.Value), nil
}

// =============================================================================
// ENVIRONMENT
// =============================================================================

// EnvSource reads a key from the process environment, then from a .env
// file. The .env file is parsed without being loaded into the environment.
type EnvSource struct {
	variable   string
	dotenvPath string
	getenv     func(string) string
}

// NewEnvSource creates a source for variable. dotenvPath may be empty.
func NewEnvSource(variable, dotenvPath string) *EnvSource {
	return &EnvSource{variable: variable, dotenvPath: dotenvPath, getenv: os.Getenv}
}

// Name implements Source.
func (e *EnvSource) Name() string { return "environment:" + e.variable }

// Lookup implements Source.
func (e *EnvSource) Lookup(_ context.Context) (string, error) {
	if v := strings.TrimSpace(e.getenv(e.variable)); v != "" {
		return v, nil
	}
	if e.dotenvPath == "" {
		return "", ErrNotFound
	}
	vars, err := godotenv.Read(e.dotenvPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("read %s: %w", e.dotenvPath, err)
	}
	if v := strings.TrimSpace(vars[e.variable]); v != "" {
		return v, nil
	}
	return "", ErrNotFound
}
