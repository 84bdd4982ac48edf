// pkg/calendly/calendly.go
package calendly

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.calendly.com"

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

type User struct {
	URI                 string `json:"uri"`
	Name                string `json:"name"`
	Email               string `json:"email"`
	SchedulingURL       string `json:"scheduling_url"`
	CurrentOrganization string `json:"current_organization"`
}

type EventType struct {
	URI      string `json:"uri"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Duration int    `json:"duration"`
	URL      string `json:"scheduling_url"`
}

type ScheduledEvent struct {
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type WebhookSubscription struct {
	URI          string   `json:"uri"`
	CallbackURL  string   `json:"callback_url"`
	Events       []string `json:"events"`
	Organization string   `json:"organization"`
	State        string   `json:"state"`
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) do(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("error marshaling request: %v", err)
		}
		reader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("error calling calendly: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("calendly API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("error parsing response: %v", err)
		}
	}
	return nil
}

// CurrentUser returns the account the API key belongs to.
func (c *Client) CurrentUser() (*User, error) {
	var resp struct {
		Resource User `json:"resource"`
	}
	if err := c.do("GET", "/users/me", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Resource, nil
}

// EventTypes lists the event types of the given user URI.
func (c *Client) EventTypes(userURI string) ([]EventType, error) {
	var resp struct {
		Collection []EventType `json:"collection"`
	}
	path := "/event_types?user=" + url.QueryEscape(userURI)
	if err := c.do("GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Collection, nil
}

// ScheduledEvents lists scheduled events of the given user URI.
func (c *Client) ScheduledEvents(userURI string) ([]ScheduledEvent, error) {
	var resp struct {
		Collection []ScheduledEvent `json:"collection"`
	}
	path := "/scheduled_events?user=" + url.QueryEscape(userURI)
	if err := c.do("GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Collection, nil
}

// CreateWebhookSubscription registers a callback for the given events.
func (c *Client) CreateWebhookSubscription(callbackURL, organizationURI string, events []string) (*WebhookSubscription, error) {
	body := map[string]interface{}{
		"url":          callbackURL,
		"events":       events,
		"organization": organizationURI,
		"scope":        "organization",
	}
	var resp struct {
		Resource WebhookSubscription `json:"resource"`
	}
	if err := c.do("POST", "/webhook_subscriptions", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Resource, nil
}

func (c *Client) DeleteWebhookSubscription(subscriptionURI string) error {
	// Calendly identifies subscriptions by full URI; only the path is needed.
	path := subscriptionURI
	if idx := strings.Index(subscriptionURI, "/webhook_subscriptions/"); idx >= 0 {
		path = subscriptionURI[idx:]
	}
	return c.do("DELETE", path, nil, nil)
}

// VerifySignature checks a Calendly webhook signature (HMAC-SHA256, base64).
func VerifySignature(signingKey string, payload []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write(payload)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
