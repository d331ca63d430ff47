package status

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// WebhookSink POSTs events as JSON to a URL from a background worker.
// With a secret set, every request carries an HMAC-SHA256 signature of the
// body in X-Signature. Failed deliveries are retried with exponential
// backoff up to MaxAttempts.
type WebhookSink struct {
	URL         string
	Secret      string
	HTTP        *http.Client
	MaxAttempts int
	// Backoff is the delay before the first retry; it doubles per attempt.
	Backoff time.Duration
	Logger  zerolog.Logger

	mu     sync.Mutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewWebhookSink starts the delivery worker. Close must be called to flush it.
func NewWebhookSink(url, secret string, logger zerolog.Logger) *WebhookSink {
	s := &WebhookSink{
		URL:         url,
		Secret:      secret,
		HTTP:        &http.Client{Timeout: 5 * time.Second},
		MaxAttempts: 5,
		Backoff:     200 * time.Millisecond,
		Logger:      logger,
		queue:       make(chan Event, 64),
	}
	s.wg.Add(1)
	go s.work()
	return s
}

// Publish queues evt. A full queue or a closed sink drops the event.
func (s *WebhookSink) Publish(evt Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.Logger.Debug().Str("run", evt.RunID).Str("code", string(evt.Code)).Msg("webhook sink closed, event dropped")
		return
	}
	select {
	case s.queue <- evt:
	default:
		s.Logger.Warn().Str("run", evt.RunID).Str("code", string(evt.Code)).Msg("webhook queue full, event dropped")
	}
}

// Close delivers what is queued and stops the worker. It is safe to call
// more than once.
func (s *WebhookSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()
	s.wg.Wait()
	return nil
}

func (s *WebhookSink) work() {
	defer s.wg.Done()
	for evt := range s.queue {
		body, err := json.Marshal(evt)
		if err != nil {
			s.Logger.Warn().Err(err).Str("run", evt.RunID).Msg("marshal status event")
			continue
		}
		for attempt := 0; ; attempt++ {
			err = s.deliver(body, evt.Code)
			if err == nil {
				break
			}
			if attempt+1 >= s.MaxAttempts {
				s.Logger.Warn().Err(err).Str("run", evt.RunID).Int("attempts", attempt+1).Msg("webhook delivery failed")
				break
			}
			time.Sleep(nextBackoff(s.Backoff, attempt))
		}
	}
}

func (s *WebhookSink) deliver(body []byte, code Code) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", string(code))
	if s.Secret != "" {
		req.Header.Set("X-Signature", SignHMAC(s.Secret, body))
	}
	resp, err := s.HTTP.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", resp.StatusCode)
	}
	return nil
}

func nextBackoff(base time.Duration, attempt int) time.Duration {
	if attempt > 10 {
		attempt = 10
	}
	d := base * time.Duration(1<<attempt)
	if d > time.Minute {
		d = time.Minute
	}
	return d
}

// SignHMAC returns the lowercase hex HMAC-SHA256 of body.
func SignHMAC(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMAC checks a signature produced by SignHMAC.
func VerifyHMAC(secret string, body []byte, provided string) bool {
	b, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), b)
}
