// Package notify posts closed-trip settlements to an external webhook.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"poultrytrade/backend/internal/trip"
)

type Webhook struct {
	client *resty.Client
	url    string
}

func NewWebhook(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := resty.New().
		SetHeader("Content-Type", "application/json").
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= http.StatusInternalServerError
		})
	return &Webhook{client: client, url: url}
}

type event struct {
	Event      string          `json:"event"`
	Settlement trip.Settlement `json:"settlement"`
}

func (w *Webhook) Publish(ctx context.Context, s trip.Settlement) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetBody(event{Event: "trip.closed", Settlement: s}).
		Post(w.url)
	if err != nil {
		return fmt.Errorf("post settlement webhook: %w", err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return fmt.Errorf("settlement webhook error: status=%d body=%s", resp.StatusCode(), resp.String())
	}
	return nil
}
