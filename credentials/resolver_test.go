package credentials

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_ExplicitAPIKey(t *testing.T) {
	cfg := ResolverConfig{
		VendorName: "openai",
		Credential: &CredentialConfig{
			APIKey: "sk-test-key",
		},
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, cred)

	assert.Equal(t, "api_key", cred.Type())

	akc, ok := cred.(*APIKeyCredential)
	require.True(t, ok)
	assert.Equal(t, "sk-test-key", akc.APIKey())
}

func TestResolve_CredentialFile(t *testing.T) {
	tmpDir := t.TempDir()
	credFile := filepath.Join(tmpDir, "api_key.txt")
	err := os.WriteFile(credFile, []byte("sk-file-key\n"), 0600)
	require.NoError(t, err)

	cfg := ResolverConfig{
		VendorName: "openai",
		Credential: &CredentialConfig{
			CredentialFile: credFile,
		},
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, cred)

	akc, ok := cred.(*APIKeyCredential)
	require.True(t, ok)
	assert.Equal(t, "sk-file-key", akc.APIKey())
}

func TestResolve_CredentialEnv(t *testing.T) {
	envVar := "TEST_CALLCORE_API_KEY"
	t.Setenv(envVar, "sk-env-key")

	cfg := ResolverConfig{
		VendorName: "openai",
		Credential: &CredentialConfig{
			CredentialEnv: envVar,
		},
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, cred)

	akc, ok := cred.(*APIKeyCredential)
	require.True(t, ok)
	assert.Equal(t, "sk-env-key", akc.APIKey())
}

func TestResolve_CredentialEnv_NotSet(t *testing.T) {
	cfg := ResolverConfig{
		VendorName: "openai",
		Credential: &CredentialConfig{
			CredentialEnv: "NONEXISTENT_ENV_VAR_12345",
		},
	}

	_, err := Resolve(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not set")
}

func TestResolve_DefaultEnvVars(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-default-key")

	cfg := ResolverConfig{
		VendorName: "openai",
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, cred)

	akc, ok := cred.(*APIKeyCredential)
	require.True(t, ok)
	assert.Equal(t, "sk-default-key", akc.APIKey())
}

func TestResolve_DeepgramDefaultEnvVars(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "dg-test-key")

	cfg := ResolverConfig{
		VendorName: "deepgram",
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, cred)

	akc, ok := cred.(*APIKeyCredential)
	require.True(t, ok)
	assert.Equal(t, "dg-test-key", akc.APIKey())
}

func TestResolve_CartesiaDefaultEnvVars(t *testing.T) {
	t.Setenv("CARTESIA_API_KEY", "cartesia-key")

	cfg := ResolverConfig{
		VendorName: "cartesia",
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, cred)

	akc, ok := cred.(*APIKeyCredential)
	require.True(t, ok)
	assert.Equal(t, "cartesia-key", akc.APIKey())
}

func TestResolve_NoCredential(t *testing.T) {
	for _, envVar := range DefaultEnvVars["openai"] {
		t.Setenv(envVar, "")
	}

	cfg := ResolverConfig{
		VendorName: "openai",
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, cred)

	assert.Equal(t, "none", cred.Type())
}

func TestResolve_PriorityOrder(t *testing.T) {
	tmpDir := t.TempDir()
	credFile := filepath.Join(tmpDir, "api_key.txt")
	err := os.WriteFile(credFile, []byte("sk-file-key"), 0600)
	require.NoError(t, err)

	t.Setenv("TEST_CRED_ENV", "sk-env-key")
	t.Setenv("OPENAI_API_KEY", "sk-default-key")

	cfg := ResolverConfig{
		VendorName: "openai",
		Credential: &CredentialConfig{
			APIKey:         "sk-explicit-key",
			CredentialFile: credFile,
			CredentialEnv:  "TEST_CRED_ENV",
		},
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	akc, ok := cred.(*APIKeyCredential)
	require.True(t, ok)
	assert.Equal(t, "sk-explicit-key", akc.APIKey())

	cfg = ResolverConfig{
		VendorName: "openai",
		Credential: &CredentialConfig{
			CredentialFile: credFile,
			CredentialEnv:  "TEST_CRED_ENV",
		},
	}

	cred, err = Resolve(context.Background(), cfg)
	require.NoError(t, err)
	akc, ok = cred.(*APIKeyCredential)
	require.True(t, ok)
	assert.Equal(t, "sk-file-key", akc.APIKey())

	cfg = ResolverConfig{
		VendorName: "openai",
		Credential: &CredentialConfig{
			CredentialEnv: "TEST_CRED_ENV",
		},
	}

	cred, err = Resolve(context.Background(), cfg)
	require.NoError(t, err)
	akc, ok = cred.(*APIKeyCredential)
	require.True(t, ok)
	assert.Equal(t, "sk-env-key", akc.APIKey())
}

func TestAPIKeyCredential_Apply(t *testing.T) {
	cred := NewAPIKeyCredential("sk-test-key")

	req, err := http.NewRequest("POST", "https://api.example.com", nil)
	require.NoError(t, err)

	err = cred.Apply(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test-key", req.Header.Get("Authorization"))
}

func TestAPIKeyCredential_CustomHeader(t *testing.T) {
	cred := NewAPIKeyCredential("sk-test-key",
		WithHeaderName("X-API-Key"),
		WithPrefix(""),
	)

	req, err := http.NewRequest("POST", "https://api.example.com", nil)
	require.NoError(t, err)

	err = cred.Apply(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "sk-test-key", req.Header.Get("X-API-Key"))
}

func TestNoOpCredential_Apply(t *testing.T) {
	cred := &NoOpCredential{}

	req, err := http.NewRequest("POST", "https://api.example.com", nil)
	require.NoError(t, err)

	err = cred.Apply(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, req.Header.Get("Authorization"))
}

func TestResolve_UnknownVendorName(t *testing.T) {
	cfg := ResolverConfig{
		VendorName: "unknown-vendor",
		Credential: &CredentialConfig{
			APIKey: "sk-test-key",
		},
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, cred)

	akc, ok := cred.(*APIKeyCredential)
	require.True(t, ok)

	req, err := http.NewRequest("POST", "https://api.example.com", nil)
	require.NoError(t, err)
	err = akc.Apply(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Bearer sk-test-key", req.Header.Get("Authorization"))
}

func TestResolve_CredentialFile_RelativePath(t *testing.T) {
	tmpDir := t.TempDir()
	credFile := "api_key.txt"
	err := os.WriteFile(filepath.Join(tmpDir, credFile), []byte("sk-relative-key"), 0600)
	require.NoError(t, err)

	cfg := ResolverConfig{
		VendorName: "openai",
		Credential: &CredentialConfig{
			CredentialFile: credFile,
		},
		ConfigDir: tmpDir,
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, cred)

	akc, ok := cred.(*APIKeyCredential)
	require.True(t, ok)
	assert.Equal(t, "sk-relative-key", akc.APIKey())
}

func TestResolve_CredentialFile_NotFound(t *testing.T) {
	cfg := ResolverConfig{
		VendorName: "openai",
		Credential: &CredentialConfig{
			CredentialFile: "/nonexistent/path/to/file.txt",
		},
	}

	_, err := Resolve(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read credential file")
}

func TestResolve_FallbackDefaultEnvVar(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_TOKEN", "sk-fallback-key")

	cfg := ResolverConfig{
		VendorName: "openai",
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, cred)

	akc, ok := cred.(*APIKeyCredential)
	require.True(t, ok)
	assert.Equal(t, "sk-fallback-key", akc.APIKey())
}

func TestResolve_DeepgramHeaderConfig(t *testing.T) {
	cfg := ResolverConfig{
		VendorName: "deepgram",
		Credential: &CredentialConfig{
			APIKey: "dg-key",
		},
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, cred)

	akc, ok := cred.(*APIKeyCredential)
	require.True(t, ok)

	req, err := http.NewRequest("POST", "https://api.deepgram.com", nil)
	require.NoError(t, err)
	err = akc.Apply(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "Token dg-key", req.Header.Get("Authorization"))
}

func TestResolve_CartesiaHeaderConfig(t *testing.T) {
	cfg := ResolverConfig{
		VendorName: "cartesia",
		Credential: &CredentialConfig{
			APIKey: "cartesia-key",
		},
	}

	cred, err := Resolve(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, cred)

	akc, ok := cred.(*APIKeyCredential)
	require.True(t, ok)

	req, err := http.NewRequest("POST", "https://api.cartesia.ai", nil)
	require.NoError(t, err)
	err = akc.Apply(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "cartesia-key", req.Header.Get("X-API-Key"))
}
