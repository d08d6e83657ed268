package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/logger"

	"santa/internal/models"
)

const (
	// DefaultAPIURL is the Comtele SMS endpoint.
	DefaultAPIURL = "https://api.comtele.com.br/v1/sms"
	// DefaultTimeout bounds a single gateway call.
	DefaultTimeout = 30 * time.Second

	maxResponseBytes = 64 << 10
)

// Client is a Comtele SMS API client
type Client struct {
	apiURL     string
	httpClient *http.Client
}

// NewClient creates a new Comtele API client
func NewClient(apiURL string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type sendRequest struct {
	Receiver    string `json:"Receiver"`
	Message     string `json:"Message"`
	MessageType string `json:"MessageType"`
}

type apiResponse struct {
	Success   bool   `json:"Success"`
	Message   string `json:"Message"`
	MessageID string `json:"MessageId"`
	Error     string `json:"Error"`
}

// Send delivers one SMS. Every failure, including a panic inside the transport,
// is reported through the outcome.
func (c *Client) Send(ctx context.Context, apiKey, phone, message string) (outcome models.SendOutcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Unexpected error while sending SMS: %v", r)
			outcome = failure(fmt.Sprintf("unexpected error: %v", r), false)
		}
	}()

	if strings.TrimSpace(apiKey) == "" {
		logger.Warningf("API key not provided for SMS")
		return failure("API key not provided", false)
	}
	digits := models.PhoneDigits(phone)
	if strings.TrimSpace(phone) == "" || digits == "" {
		logger.Warningf("Invalid phone number provided")
		return failure("invalid phone number", false)
	}
	if strings.TrimSpace(message) == "" {
		logger.Warningf("Empty message for SMS to %s", digits)
		return failure("empty message", false)
	}

	body, err := json.Marshal(sendRequest{
		Receiver:    digits,
		Message:     message,
		MessageType: "text",
	})
	if err != nil {
		return failure(fmt.Sprintf("unexpected error: %v", err), false)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(body))
	if err != nil {
		return failure(fmt.Sprintf("unexpected error: %v", err), false)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	logger.Infof("Sending SMS to %s", digits)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			logger.Errorf("Timeout while sending SMS to %s: %v", digits, err)
			return failure("request timeout", true)
		}
		logger.Errorf("Network error while sending SMS to %s: %v", digits, err)
		return failure(fmt.Sprintf("network error: %v", err), true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.Errorf("Network error while reading response for %s: %v", digits, err)
		return failure(fmt.Sprintf("network error: %v", err), true)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Errorf("Failed to send SMS to %s. Status: %d, Response: %s", digits, resp.StatusCode, respBody)
		transient := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return failure(fmt.Sprintf("API error: %s - %s", resp.Status, strings.TrimSpace(string(respBody))), transient)
	}

	outcome = models.SendOutcome{Success: true, Status: models.StatusSent}
	var parsed apiResponse
	if len(respBody) > 0 && json.Unmarshal(respBody, &parsed) == nil {
		outcome.MessageID = parsed.MessageID
	}
	logger.Infof("SMS sent successfully to %s", digits)
	return outcome
}

func failure(msg string, transient bool) models.SendOutcome {
	return models.SendOutcome{
		Status:       models.StatusError,
		ErrorMessage: msg,
		Transient:    transient,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
