package client

import (
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gpgcheck/comfyui-api/config"
)

// ComfyClient talks to a single ComfyUI server. The session identifier is
// generated once per client instance and attached to every request so the
// server routes event-channel messages back to this client. The TLS
// verification policy is fixed at construction time for both HTTP and
// websocket connections.
type ComfyClient struct {
	baseURL  *url.URL
	apiKey   string
	clientid string
	httpc    *http.Client
	dialer   *websocket.Dialer

	// OnProgress, when set, receives progress events observed during
	// WaitForCompletion. When nil, a plain progress line is printed instead.
	OnProgress func(value, max int)
}

// NewComfyClient creates a client from an explicit configuration value.
func NewComfyClient(cfg *config.Config) (*ComfyClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(cfg.ServerAddress, "/"))
	if err != nil {
		return nil, fmt.Errorf("server address: %w", err)
	}

	var tlscfg *tls.Config
	if !cfg.SSLVerify {
		tlscfg = &tls.Config{InsecureSkipVerify: true}
	}

	return &ComfyClient{
		baseURL:  base,
		apiKey:   cfg.APIKey,
		clientid: uuid.New().String(),
		httpc: &http.Client{
			Transport: &http.Transport{TLSClientConfig: tlscfg},
		},
		dialer: &websocket.Dialer{
			TLSClientConfig:  tlscfg,
			HandshakeTimeout: 45 * time.Second,
		},
	}, nil
}

// ClientID returns the session identifier for this client instance.
func (c *ComfyClient) ClientID() string {
	return c.clientid
}

// apiURL builds an HTTP URL for path, with optional query values.
func (c *ComfyClient) apiURL(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.TrimLeft(path, "/")
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// wsURL builds the event-channel URL, switching the scheme to ws/wss and
// attaching the session identifier and, when configured, the API key.
func (c *ComfyClient) wsURL() string {
	u := *c.baseURL
	if u.Scheme == "https" {
		u.Scheme = "wss"
	} else {
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws"
	query := url.Values{}
	query.Set("clientId", c.clientid)
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}
	u.RawQuery = query.Encode()
	return u.String()
}

// newRequest builds a request with the shared-secret header attached.
func (c *ComfyClient) newRequest(method, rawurl string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, rawurl, body)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	return req, nil
}
