package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lucasdreger/microsoft-teams-apps-icebreaker/pkg/apihelpers"
)

const (
	headerAPIKey    = "Api-Key"
	defaultTimeout  = 30 * time.Second
	maxErrorBodyLen = 4096
)

var ErrNotFound = errors.New("not found")

// StatusError is returned for responses outside the 2xx range.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

type ClientConfig struct {
	RootURL              string                       `json:"root_url" yaml:"root_url"`
	APIKey               string                       `json:"api_key" yaml:"api_key"`
	MTLSCertificatePaths *apihelpers.CertificatePaths `json:"mtls_certificate_paths" yaml:"mtls_certificate_paths"`
	Timeout              time.Duration                `json:"timeout" yaml:"timeout"`
}

type client struct {
	rootURL    string
	apiKey     string
	httpClient *http.Client
}

func newClient(cConfig ClientConfig) (*client, error) {
	if cConfig.RootURL == "" {
		return nil, errors.New("root url must not be empty")
	}

	transport, err := getTransportWithMTLSConfig(cConfig.MTLSCertificatePaths)
	if err != nil {
		slog.Error("Error creating transport with mTLS config", slog.String("error", err.Error()))
		return nil, err
	}

	timeout := cConfig.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{
		Timeout: timeout,
	}
	if transport != nil {
		httpClient.Transport = transport
	}

	return &client{
		rootURL:    strings.TrimSuffix(cConfig.RootURL, "/"),
		apiKey:     cConfig.APIKey,
		httpClient: httpClient,
	}, nil
}

// do sends payload as JSON (if not nil) and decodes the response body into out (if not nil).
func (c *client) do(ctx context.Context, method string, pathname string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.rootURL+pathname, body)
	if err != nil {
		slog.Error("unexpected error in preparing http request", slog.String("error", err.Error()))
		return err
	}
	if c.apiKey != "" {
		req.Header.Set(headerAPIKey, c.apiKey)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Error("unexpected error in http call", slog.String("method", method), slog.String("path", pathname), slog.String("error", err.Error()))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readStatusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Error("Error decoding response", slog.String("path", pathname), slog.String("error", err.Error()))
		return err
	}
	return nil
}

func readStatusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyLen))
	var errResp struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(raw))
	if json.Unmarshal(raw, &errResp) == nil && errResp.Error != "" {
		msg = errResp.Error
	}
	return &StatusError{StatusCode: resp.StatusCode, Message: msg}
}

func pathSegment(value string) string {
	return url.PathEscape(value)
}

func getTransportWithMTLSConfig(mTLSCertificatePaths *apihelpers.CertificatePaths) (*http.Transport, error) {
	if mTLSCertificatePaths == nil {
		return nil, nil
	}

	tlsConfig, err := apihelpers.LoadClientTLSConfig(*mTLSCertificatePaths)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return transport, nil
}
