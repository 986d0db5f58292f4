package email

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const resendEndpoint = "https://api.resend.com/emails"

type resendPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

// ResendTransport posts messages to the Resend HTTP API.
type ResendTransport struct {
	apiKey   string
	from     string
	endpoint string
	client   *http.Client
}

func NewResendTransport(apiKey, from string) *ResendTransport {
	return &ResendTransport{
		apiKey:   apiKey,
		from:     from,
		endpoint: resendEndpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *ResendTransport) Send(to, subject, html string) error {
	jsonData, err := json.Marshal(resendPayload{
		From:    t.from,
		To:      to,
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("error marshaling email data: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, t.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend API error: status %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}
