// Package avito is a client for the Avito messenger and item APIs. One
// Client serves one tenant; token acquisition and refresh go through OAuth2
// client credentials.
package avito

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultBaseURL is the production Avito API host.
const DefaultBaseURL = "https://api.avito.ru"

// Client calls the Avito API on behalf of one seller account.
type Client struct {
	baseURL string
	http    *http.Client
}

// Opts holds parameters for creating an avito Client.
type Opts struct {
	ClientID     string
	ClientSecret string
	BaseURL      string // defaults to DefaultBaseURL; override in tests
	// For testing: bypass the OAuth2 transport entirely.
	HTTPClient *http.Client
}

// New creates a Client. The returned client caches its access token and
// refreshes it before expiry.
func New(opts Opts) (*Client, error) {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if opts.ClientID == "" || opts.ClientSecret == "" {
			return nil, fmt.Errorf("avito: client id and secret are required")
		}
		cc := &clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     baseURL + "/token/",
			AuthStyle:    oauth2.AuthStyleInParams,
		}
		httpClient = cc.Client(context.Background())
		httpClient.Timeout = 30 * time.Second
	}

	return &Client{baseURL: baseURL, http: httpClient}, nil
}

// SendMessage sends a text message into the chat from the given account.
func (c *Client) SendMessage(ctx context.Context, accountID, chatID, text string) error {
	url := fmt.Sprintf("%s/messenger/v1/accounts/%s/chats/%s/messages", c.baseURL, accountID, chatID)
	payload := map[string]interface{}{
		"message": map[string]string{"text": text},
		"type":    "text",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("avito: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("avito: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("avito: send message to chat %s: %w", chatID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("avito: send message to chat %s: status %d: %s", chatID, resp.StatusCode, readBody(resp.Body))
	}
	return nil
}

// AdURL returns the public listing URL for an item.
func (c *Client) AdURL(ctx context.Context, accountID string, itemID int64) (string, error) {
	url := fmt.Sprintf("%s/core/v1/accounts/%s/items/%s/", c.baseURL, accountID, strconv.FormatInt(itemID, 10))

	var out struct {
		URL string `json:"url"`
	}
	if err := c.getJSON(ctx, url, &out); err != nil {
		return "", fmt.Errorf("avito: get ad %d: %w", itemID, err)
	}
	return out.URL, nil
}

// BuyerInfo returns the display name and public profile URL of the chat
// participant that is not the business account.
func (c *Client) BuyerInfo(ctx context.Context, accountID, chatID, businessAccountID string) (name, profileURL string, err error) {
	url := fmt.Sprintf("%s/messenger/v2/accounts/%s/chats/%s", c.baseURL, accountID, chatID)

	var out struct {
		Users []struct {
			ID      int64  `json:"id"`
			Name    string `json:"name"`
			Profile struct {
				URL string `json:"url"`
			} `json:"public_user_profile"`
		} `json:"users"`
	}
	if err := c.getJSON(ctx, url, &out); err != nil {
		return "", "", fmt.Errorf("avito: get chat %s: %w", chatID, err)
	}

	for _, u := range out.Users {
		if strconv.FormatInt(u.ID, 10) == businessAccountID {
			continue
		}
		return u.Name, u.Profile.URL, nil
	}
	return "", "", fmt.Errorf("avito: chat %s has no participant besides the business account", chatID)
}

// getJSON performs a GET and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, readBody(resp.Body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readBody reads up to 512 bytes of a response body for error messages.
func readBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(data)
}
