package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Error codes returned by the identity provider.
const (
	CodeUserNotFound      = "user-not-found"
	CodeWrongPassword     = "wrong-password"
	CodeInvalidCredential = "invalid-credential"
	CodeInvalidEmail      = "invalid-email"
	CodeTooManyRequests   = "too-many-requests"
)

// AuthError is a credential failure reported by the identity provider.
type AuthError struct {
	Code string
}

func (e *AuthError) Error() string {
	return "auth: " + e.Code
}

// Message returns the user-facing Indonesian message for the error code.
func (e *AuthError) Message() string {
	switch e.Code {
	case CodeUserNotFound:
		return "User tidak ditemukan"
	case CodeWrongPassword:
		return "Password salah"
	case CodeInvalidCredential:
		return "Email atau password salah"
	case CodeInvalidEmail:
		return "Format email tidak valid"
	case CodeTooManyRequests:
		return "Terlalu banyak percobaan, coba lagi nanti"
	}
	return "Terjadi kesalahan saat login"
}

// User is the authenticated identity returned on successful sign-in.
type User struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// Client talks to the external identity provider over HTTP.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates an identity provider client. endpoint is the sign-in URL;
// apiKey is appended as the key query parameter when non-empty.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInResponse struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Token string `json:"token"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error,omitempty"`
}

// SignIn verifies credentials with the provider. Credential failures come
// back as *AuthError; anything else is an infrastructure error.
func (c *Client) SignIn(ctx context.Context, email, password string) (*User, string, error) {
	body, err := json.Marshal(signInRequest{Email: email, Password: password})
	if err != nil {
		return nil, "", fmt.Errorf("marshal request: %w", err)
	}

	url := c.endpoint
	if c.apiKey != "" {
		url += "?key=" + c.apiKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("sign in request: %w", err)
	}
	defer resp.Body.Close()

	var result signInResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, "", fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != nil && result.Error.Code != "" {
			return nil, "", &AuthError{Code: result.Error.Code}
		}
		return nil, "", fmt.Errorf("sign in failed: status %d", resp.StatusCode)
	}

	if result.Token == "" {
		return nil, "", errors.New("sign in response missing token")
	}

	return &User{UID: result.UID, Email: result.Email}, result.Token, nil
}
