// pkg/easysms/easysms.go
package easysms

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

const DefaultBaseURL = "https://api.easysms.gr"

type Service struct {
	apiKey  string
	baseURL string
	sender  string
	client  *http.Client
}

type smsRequest struct {
	APIKey  string `json:"api_key"`
	To      string `json:"to"`
	Message string `json:"message"`
	Sender  string `json:"sender,omitempty"`
}

type emailRequest struct {
	APIKey  string `json:"api_key"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// SendResult is the provider response for both SMS and email sends.
type SendResult struct {
	MessageID        string  `json:"message_id"`
	Cost             float64 `json:"cost"`
	CreditsRemaining float64 `json:"credits_remaining"`
}

// DeliveryReport is one entry of the provider's delivery report feed, also
// posted to our webhook endpoint.
type DeliveryReport struct {
	MessageID string `json:"message_id"`
	Status    string `json:"status"` // delivered | failed
	Timestamp string `json:"timestamp"`
}

func NewService(apiKey, baseURL, sender string) (*Service, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("easysms API key is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Service{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		sender:  sender,
		client:  &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// SendSMS dispatches an SMS through the provider. The recipient number is
// normalized to international format first.
func (s *Service) SendSMS(to, message string) (*SendResult, error) {
	payload := smsRequest{
		APIKey:  s.apiKey,
		To:      NormalizePhone(to),
		Message: message,
		Sender:  s.sender,
	}
	return s.post("/api/sms/send", payload)
}

func (s *Service) SendEmail(to, subject, message string) (*SendResult, error) {
	payload := emailRequest{
		APIKey:  s.apiKey,
		To:      to,
		Subject: subject,
		Message: message,
	}
	return s.post("/api/email/send", payload)
}

func (s *Service) post(path string, payload interface{}) (*SendResult, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %v", err)
	}

	req, err := http.NewRequest("POST", s.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending message: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}

	log.Printf("EasySMS API response: Status: %d, Body: %s", resp.StatusCode, string(respBody))

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("easysms API error: %s", string(respBody))
	}

	var result SendResult
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("error parsing response: %v", err)
	}

	return &result, nil
}

// DeliveryReports fetches the provider's delivery report feed.
func (s *Service) DeliveryReports() ([]DeliveryReport, error) {
	req, err := http.NewRequest("GET", s.baseURL+"/api/reports/delivery?api_key="+s.apiKey, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error fetching delivery reports: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("easysms API error: %s", string(respBody))
	}

	var reports []DeliveryReport
	if err := json.Unmarshal(respBody, &reports); err != nil {
		return nil, fmt.Errorf("error parsing delivery reports: %v", err)
	}

	return reports, nil
}

// NormalizePhone converts Greek national numbers (69xxxxxxxx) to +30
// international format. Numbers already carrying a prefix pass through.
func NormalizePhone(phone string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.TrimSpace(phone))

	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "00") {
		return "+" + cleaned[2:]
	}
	if len(cleaned) == 10 && strings.HasPrefix(cleaned, "69") {
		return "+30" + cleaned
	}
	return cleaned
}
