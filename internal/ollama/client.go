package ollama

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultScheme = "http"
	defaultPort   = "11434"
)

// Client represents a client for an HTTP API rooted at a base URL
type Client struct {
	base      *url.URL
	http      *http.Client
	modelsUrl *url.URL
	chatUrl   *url.URL
}

// ClientConfig holds the configuration for the client
type ClientConfig struct {
	Scheme     string
	Host       string
	ModelsPath string
	ChatPath   string
	HTTPClient *http.Client
}

// NewClient creates a new API client with configurable base URL and endpoints
func NewClient(config ClientConfig) *Client {
	baseURL := &url.URL{Scheme: config.Scheme, Host: config.Host}
	httpClient := config.HTTPClient
	if httpClient == nil {
		// No client-wide timeout: chat streams stay open for as long as the
		// model generates. Callers bound requests through their context.
		httpClient = &http.Client{}
	}
	return &Client{
		base:      baseURL,
		http:      httpClient,
		modelsUrl: baseURL.ResolveReference(&url.URL{Path: config.ModelsPath}),
		chatUrl:   baseURL.ResolveReference(&url.URL{Path: config.ChatPath}),
	}
}

func (c *Client) GetModelsURL() string {
	return c.modelsUrl.String()
}

func (c *Client) GetChatURL() string {
	return c.chatUrl.String()
}

// ParseHost accepts the forms OLLAMA_HOST does: "host", "host:port",
// "scheme://host:port". Missing parts default to http and port 11434.
func ParseHost(raw string) (scheme, host string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return defaultScheme, net.JoinHostPort("localhost", defaultPort), nil
	}

	scheme = defaultScheme
	if i := strings.Index(raw, "://"); i >= 0 {
		scheme, raw = raw[:i], raw[i+3:]
	}
	if scheme != "http" && scheme != "https" {
		return "", "", fmt.Errorf("unsupported scheme %q in ollama host", scheme)
	}

	raw = strings.TrimRight(raw, "/")
	if raw == "" {
		return "", "", fmt.Errorf("empty ollama host")
	}

	if _, _, splitErr := net.SplitHostPort(raw); splitErr != nil {
		port := defaultPort
		if scheme == "https" {
			port = "443"
		}
		raw = net.JoinHostPort(strings.Trim(raw, "[]"), port)
	}
	return scheme, raw, nil
}
