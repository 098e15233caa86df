package providers

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
)

func TestNewBaseProvider(t *testing.T) {
	client := &http.Client{Timeout: 30 * time.Second}
	base := NewBaseProvider("test-provider", true, client)

	if base.ID() != "test-provider" {
		t.Errorf("Expected ID 'test-provider', got %s", base.ID())
	}

	if !base.ShouldIncludeRawOutput() {
		t.Error("Expected includeRawOutput to be true")
	}

	if base.GetHTTPClient() != client {
		t.Error("Expected GetHTTPClient to return the same client")
	}
}

func TestNewBaseProviderWithAPIKey(t *testing.T) {
	tests := []struct {
		name        string
		primaryKey  string
		fallbackKey string
		primaryVal  string
		fallbackVal string
		expectedKey string
	}{
		{
			name:        "Uses primary key when available",
			primaryKey:  "TEST_PRIMARY_KEY",
			fallbackKey: "TEST_FALLBACK_KEY",
			primaryVal:  "primary-value",
			fallbackVal: "fallback-value",
			expectedKey: "primary-value",
		},
		{
			name:        "Uses fallback key when primary is empty",
			primaryKey:  "TEST_PRIMARY_KEY_EMPTY",
			fallbackKey: "TEST_FALLBACK_KEY_SET",
			primaryVal:  "",
			fallbackVal: "fallback-value",
			expectedKey: "fallback-value",
		},
		{
			name:        "Returns empty when both are empty",
			primaryKey:  "TEST_PRIMARY_NONE",
			fallbackKey: "TEST_FALLBACK_NONE",
			primaryVal:  "",
			fallbackVal: "",
			expectedKey: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.primaryVal != "" {
				os.Setenv(tt.primaryKey, tt.primaryVal)
				defer os.Unsetenv(tt.primaryKey)
			}
			if tt.fallbackVal != "" {
				os.Setenv(tt.fallbackKey, tt.fallbackVal)
				defer os.Unsetenv(tt.fallbackKey)
			}

			base, apiKey := NewBaseProviderWithAPIKey("test-id", false, tt.primaryKey, tt.fallbackKey)

			if apiKey != tt.expectedKey {
				t.Errorf("Expected API key %q, got %q", tt.expectedKey, apiKey)
			}

			if base.ID() != "test-id" {
				t.Errorf("Expected ID 'test-id', got %s", base.ID())
			}

			if base.GetHTTPClient() == nil {
				t.Error("Expected HTTP client to be initialized")
			}

			if base.GetHTTPClient().Timeout != 60*time.Second {
				t.Errorf("Expected client timeout 60s, got %v", base.GetHTTPClient().Timeout)
			}
		})
	}
}

func TestBaseProvider_Close(t *testing.T) {
	client := &http.Client{Timeout: 30 * time.Second}
	base := NewBaseProvider("test-provider", false, client)

	err := base.Close()
	if err != nil {
		t.Errorf("Expected no error on Close, got %v", err)
	}

	baseNil := BaseProvider{id: "test", includeRawOutput: false, client: nil}
	err = baseNil.Close()
	if err != nil {
		t.Errorf("Expected no error on Close with nil client, got %v", err)
	}
}

func TestBaseProvider_SupportsStreaming(t *testing.T) {
	base := NewBaseProvider("test-provider", false, nil)

	if !base.SupportsStreaming() {
		t.Error("Expected SupportsStreaming to return true by default")
	}
}

func TestCheckHTTPError(t *testing.T) {
	tests := []struct {
		name          string
		statusCode    int
		responseBody  string
		expectError   bool
		errorContains string
	}{
		{
			name:         "Success status returns no error",
			statusCode:   http.StatusOK,
			responseBody: `{"success": true}`,
			expectError:  false,
		},
		{
			name:          "400 Bad Request returns error",
			statusCode:    http.StatusBadRequest,
			responseBody:  `{"error": "invalid request"}`,
			expectError:   true,
			errorContains: "400",
		},
		{
			name:          "401 Unauthorized returns error",
			statusCode:    http.StatusUnauthorized,
			responseBody:  `{"error": "unauthorized"}`,
			expectError:   true,
			errorContains: "401",
		},
		{
			name:          "500 Internal Server Error returns error",
			statusCode:    http.StatusInternalServerError,
			responseBody:  `{"error": "server error"}`,
			expectError:   true,
			errorContains: "500",
		},
		{
			name:          "Error includes response body",
			statusCode:    http.StatusBadRequest,
			responseBody:  `{"error": "specific error message"}`,
			expectError:   true,
			errorContains: "specific error message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				w.Write([]byte(tt.responseBody))
			}))
			defer server.Close()

			resp, err := http.Get(server.URL)
			if err != nil {
				t.Fatalf("Failed to make test request: %v", err)
			}

			err = CheckHTTPError(resp, server.URL)

			if tt.expectError {
				if err == nil {
					t.Error("Expected error but got nil")
				} else if tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
					t.Errorf("Expected error to contain %q, got %q", tt.errorContains, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
				defer resp.Body.Close()
			}
		})
	}
}

func TestBaseProvider_Integration(t *testing.T) {
	t.Run("Realistic error handling flow", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_request","message":"The request was malformed"}`))
		}))
		defer server.Close()

		base, _ := NewBaseProviderWithAPIKey("test", false, "TEST_KEY_1", "TEST_KEY_2")

		resp, err := base.GetHTTPClient().Get(server.URL)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}

		err = CheckHTTPError(resp, server.URL)
		if err == nil {
			t.Error("Expected CheckHTTPError to return error for 400 status")
		}
	})

	t.Run("Realistic success flow", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"response":"success"}`))
		}))
		defer server.Close()

		base, _ := NewBaseProviderWithAPIKey("test", true, "TEST_KEY_1", "TEST_KEY_2")

		resp, err := base.GetHTTPClient().Get(server.URL)
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()

		err = CheckHTTPError(resp, server.URL)
		if err != nil {
			t.Errorf("Expected no error for 200 status, got: %v", err)
		}
	})
}
