package credentials

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Platform type constants for cloud-fronted vendor endpoints.
const (
	PlatformAWS   = "aws"
	PlatformAzure = "azure"
	PlatformGCP   = "gcp"
)

// DefaultEnvVars maps vendor names to their default environment variable names.
var DefaultEnvVars = map[string][]string{
	"deepgram":   {"DEEPGRAM_API_KEY"},
	"cartesia":   {"CARTESIA_API_KEY"},
	"elevenlabs": {"ELEVENLABS_API_KEY"},
	"groq":       {"GROQ_API_KEY"},
	"openai":     {"OPENAI_API_KEY", "OPENAI_TOKEN"},
}

// ProviderHeaderConfig maps vendor names to their API key header configuration.
var ProviderHeaderConfig = map[string]struct {
	HeaderName string
	Prefix     string
}{
	"deepgram":   {HeaderName: "Authorization", Prefix: "Token "},
	"cartesia":   {HeaderName: "X-API-Key", Prefix: ""},
	"elevenlabs": {HeaderName: "xi-api-key", Prefix: ""},
	"groq":       {HeaderName: "Authorization", Prefix: "Bearer "},
	"openai":     {HeaderName: "Authorization", Prefix: "Bearer "},
}

// CredentialConfig is the explicit credential configuration for one vendor,
// as supplied by the application wiring up this module (the core itself
// never parses a config file or CLI flag to build one).
type CredentialConfig struct {
	// APIKey is used verbatim if set.
	APIKey string
	// CredentialFile names a file (relative to ConfigDir if not absolute)
	// whose trimmed contents are the API key.
	CredentialFile string
	// CredentialEnv names an environment variable holding the API key.
	CredentialEnv string
}

// PlatformConfig selects a cloud-native credential chain instead of a bare
// API key, for vendors fronted by a cloud platform (e.g. a Bedrock-compatible
// LLM endpoint, or an Azure-fronted one).
type PlatformConfig struct {
	Type string // one of PlatformAWS, PlatformAzure, PlatformGCP

	// AWS
	Region  string
	RoleARN string

	// Azure
	Endpoint string

	// GCP
	Project string
}

// ResolverConfig holds configuration for credential resolution for one vendor.
type ResolverConfig struct {
	// VendorName identifies the vendor (deepgram, cartesia, elevenlabs, groq, openai, ...).
	VendorName string

	// Credential is the explicit credential configuration from the application.
	Credential *CredentialConfig

	// Platform selects a cloud-native credential chain; mutually exclusive
	// in practice with Credential, though Credential takes priority if both
	// are set and Credential actually yields a key.
	Platform *PlatformConfig

	// ConfigDir is the base directory for resolving relative credential file paths.
	ConfigDir string
}

// Resolve resolves credentials according to the chain:
//  1. api_key (explicit value)
//  2. credential_file (read from file)
//  3. credential_env (read from environment variable)
//  4. default env vars for the vendor
//
// If none of those yield a key and a PlatformConfig is set, it falls back to
// the appropriate cloud SDK's default credential chain.
func Resolve(ctx context.Context, cfg ResolverConfig) (Credential, error) {
	apiKey, err := findAPIKey(cfg)
	if err != nil {
		return nil, err
	}

	if apiKey != "" {
		return createAPIKeyCredential(apiKey, cfg.VendorName), nil
	}

	if cfg.Platform != nil && cfg.Platform.Type != "" {
		return resolvePlatformCredential(ctx, cfg.Platform)
	}

	return &NoOpCredential{}, nil
}

// resolvePlatformCredential builds a cloud-native credential from a platform config.
func resolvePlatformCredential(ctx context.Context, p *PlatformConfig) (Credential, error) {
	switch p.Type {
	case PlatformAWS:
		if p.RoleARN != "" {
			return NewAWSCredentialWithRole(ctx, p.Region, p.RoleARN)
		}
		return NewAWSCredential(ctx, p.Region)
	case PlatformAzure:
		return NewAzureCredential(ctx, p.Endpoint)
	case PlatformGCP:
		return NewGCPCredential(ctx, p.Project, p.Region)
	default:
		return nil, fmt.Errorf("unknown platform type: %s", p.Type)
	}
}

// findAPIKey searches for an API key in the resolution chain, without
// touching a platform credential chain.
func findAPIKey(cfg ResolverConfig) (string, error) {
	if cfg.Credential != nil && cfg.Credential.APIKey != "" {
		return cfg.Credential.APIKey, nil
	}

	if cfg.Credential != nil && cfg.Credential.CredentialFile != "" {
		key, err := readCredentialFile(cfg.Credential.CredentialFile, cfg.ConfigDir)
		if err != nil {
			return "", fmt.Errorf("failed to read credential file: %w", err)
		}
		return key, nil
	}

	if cfg.Credential != nil && cfg.Credential.CredentialEnv != "" {
		key := os.Getenv(cfg.Credential.CredentialEnv)
		if key == "" {
			return "", fmt.Errorf("environment variable %s is not set", cfg.Credential.CredentialEnv)
		}
		return key, nil
	}

	return findDefaultEnvKey(cfg.VendorName), nil
}

// findDefaultEnvKey looks for API keys in default environment variables.
func findDefaultEnvKey(vendorName string) string {
	defaultVars, ok := DefaultEnvVars[vendorName]
	if !ok {
		return ""
	}
	for _, envVar := range defaultVars {
		if key := os.Getenv(envVar); key != "" {
			return key
		}
	}
	return ""
}

// createAPIKeyCredential creates an API key credential with vendor-specific header config.
func createAPIKeyCredential(apiKey, vendorName string) *APIKeyCredential {
	headerCfg, ok := ProviderHeaderConfig[vendorName]
	if !ok {
		headerCfg = struct {
			HeaderName string
			Prefix     string
		}{HeaderName: "Authorization", Prefix: "Bearer "}
	}

	opts := []APIKeyOption{WithHeaderName(headerCfg.HeaderName)}
	if headerCfg.Prefix != "" {
		opts = append(opts, WithPrefix(headerCfg.Prefix))
	} else {
		opts = append(opts, WithPrefix(""))
	}

	return NewAPIKeyCredential(apiKey, opts...)
}

// readCredentialFile reads an API key from a file.
func readCredentialFile(path, configDir string) (string, error) {
	if !strings.HasPrefix(path, "/") && configDir != "" {
		path = configDir + "/" + path
	}

	//nolint:gosec // G304: file path is from trusted, application-supplied configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(string(data)), nil
}

// MustResolve resolves credentials and panics on error.
// Use this only in initialization code where errors are unrecoverable.
func MustResolve(ctx context.Context, cfg ResolverConfig) Credential {
	cred, err := Resolve(ctx, cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve credentials: %v", err))
	}
	return cred
}
