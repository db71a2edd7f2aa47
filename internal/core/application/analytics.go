package application

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// AnalyticsService posts operation events to the analytics sink. Tracking is
// fire and forget: failures are logged and swallowed, never surfaced.
type AnalyticsService struct {
	endpoint string
	client   *http.Client
}

// NewAnalyticsService returns a tracker for the given endpoint. An empty
// endpoint disables tracking.
func NewAnalyticsService(endpoint string) *AnalyticsService {
	return &AnalyticsService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

type trackEvent struct {
	Operation   string `json:"operation"`
	Amount      uint64 `json:"amount"`
	TokenSymbol string `json:"token_symbol"`
	UserWallet  string `json:"user_wallet"`
}

// Track reports an operation. It returns immediately; the POST happens in the
// background.
func (a *AnalyticsService) Track(
	operation string, amount uint64, tokenSymbol, userWallet string,
) {
	if a == nil || a.endpoint == "" {
		return
	}

	go func() {
		payload, err := json.Marshal(trackEvent{
			Operation:   operation,
			Amount:      amount,
			TokenSymbol: tokenSymbol,
			UserWallet:  userWallet,
		})
		if err != nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload),
		)
		if err != nil {
			log.WithError(err).Debug("analytics: building request")
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			log.WithError(err).Debug("analytics: tracking failed")
			return
		}
		resp.Body.Close()
	}()
}
