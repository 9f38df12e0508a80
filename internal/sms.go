package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

// SendSMSAlert sends a short text message through the Vonage SMS API.
// Requires VONAGE_API_KEY and VONAGE_API_SECRET; the sender name can be
// overridden with VONAGE_FROM.
// Docs: https://developer.vonage.com/en/messaging/sms/overview
func SendSMSAlert(ctx context.Context, phoneE164, text string) error {
	apiKey := os.Getenv("VONAGE_API_KEY")
	apiSecret := os.Getenv("VONAGE_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		return errors.New("vonage api credentials not configured")
	}
	from := os.Getenv("VONAGE_FROM")
	if from == "" {
		from = "FinSent"
	}

	form := url.Values{}
	form.Set("api_key", apiKey)
	form.Set("api_secret", apiSecret)
	form.Set("from", from)
	form.Set("to", phoneE164)
	form.Set("text", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://rest.nexmo.com/sms/json", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out struct {
		Messages []struct {
			Status    string `json:"status"`
			ErrorText string `json:"error-text"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if len(out.Messages) == 0 {
		return errors.New("empty sms response")
	}
	if out.Messages[0].Status != "0" {
		if out.Messages[0].ErrorText != "" {
			return errors.New(out.Messages[0].ErrorText)
		}
		return errors.New("sms send failed")
	}
	return nil
}
