package deviceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/servopoint/servopoint/internal/model"
)

// Client delivers commands to a device over its own HTTP endpoint. Delivery
// is best effort: the device sits behind NAT and may be unreachable, so every
// call carries the configured bounded timeout and failures surface as errors
// for the caller to retry on its own cadence.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New creates a device client for the given base URL.
func New(rawURL string, timeout time.Duration) (*Client, error) {
	if rawURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}
	if parsed.Scheme == "" {
		return nil, fmt.Errorf("base url must include scheme")
	}
	parsed.Path = strings.TrimSuffix(parsed.Path, "/")
	return &Client{
		baseURL: parsed,
		http: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// PushState posts the desired servo state to the device and returns the
// device's response text.
func (c *Client) PushState(ctx context.Context, pairingCode string, state model.Action) (string, error) {
	body, err := json.Marshal(map[string]string{
		"pairingCode": pairingCode,
		"state":       string(state),
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("/servo"), bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	text := readBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return text, fmt.Errorf("push http status %s", resp.Status)
	}
	return text, nil
}

// SendWifiCredentials forwards Wi-Fi credentials to the device as a
// form-encoded POST, matching the firmware's expectations.
func (c *Client) SendWifiCredentials(ctx context.Context, ssid, password string) (string, error) {
	values := url.Values{}
	values.Set("ssid", ssid)
	values.Set("password", password)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve("/wifi"), strings.NewReader(values.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	text := readBody(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return text, fmt.Errorf("wifi http status %s", resp.Status)
	}
	return text, nil
}

func (c *Client) resolve(p string) string {
	u := *c.baseURL
	u.Path = path.Join(c.baseURL.Path, p)
	return u.String()
}

// BaseURL returns the configured device URL without trailing slash.
func (c *Client) BaseURL() string {
	return strings.TrimRight(c.baseURL.String(), "/")
}

func readBody(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(raw))
}
