package compressed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/veil-network/veil-daemon/pkg/ledger"
)

// ErrNoWebsocketEndpoint is thrown when subscribing without a configured
// websocket endpoint.
var ErrNoWebsocketEndpoint = errors.New("no websocket endpoint configured")

type wsNotification struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Value struct {
				Err any `json:"err"`
			} `json:"value"`
		} `json:"result"`
	} `json:"params"`
}

// SubscribeSignature opens a websocket subscription for the given signature
// and delivers a single notification once the transaction reaches a terminal
// status. The channel is closed when the context is done or the socket drops;
// callers must keep polling as a fallback.
func (s *service) SubscribeSignature(
	ctx context.Context, signature string,
) (<-chan ledger.SignatureNotification, error) {
	if s.wsURL == "" {
		return nil, ErrNoWebsocketEndpoint
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error on dialing ledger websocket: %w", err)
	}

	sub := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]interface{}{"commitment": "confirmed"},
		},
	}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error on subscribing signature: %w", err)
	}

	notifications := make(chan ledger.SignatureNotification, 1)

	go func() {
		defer close(notifications)
		defer conn.Close()

		done := make(chan struct{})
		go func() {
			<-ctx.Done()
			close(done)
			conn.Close()
		}()

		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				select {
				case <-done:
				default:
					log.WithError(err).Debug("signature subscription dropped")
				}
				return
			}

			var notification wsNotification
			if err := json.Unmarshal(message, &notification); err != nil {
				continue
			}
			if notification.Method != "signatureNotification" {
				continue
			}

			result := ledger.SignatureNotification{Signature: signature}
			if txErr := notification.Params.Result.Value.Err; txErr != nil {
				result.Err = fmt.Sprintf("%v", txErr)
			}
			notifications <- result
			return
		}
	}()

	return notifications, nil
}
