package thirdparty

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

type Pusher struct {
	Client  *http.Client
	APIKey  string
	Secret  string
	Retries int
	Backoff []time.Duration
	Metrics *PushMetrics
	Logger  *zap.Logger
}

func NewPusher(client *http.Client, apiKey, secret string) *Pusher {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Pusher{
		Client:  client,
		APIKey:  apiKey,
		Secret:  secret,
		Retries: 3,
		Backoff: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, time.Second},
		Logger:  zap.NewNop(),
	}
}

// Push 发送事件并记录指标
func (p *Pusher) Push(ctx context.Context, endpoint string, ev Event) error {
	if ev.Nonce == "" {
		ev.Nonce = fmt.Sprintf("%08x", rand.Uint32())
	}
	start := time.Now()
	code, _, err := p.SendJSON(ctx, endpoint, ev)
	if err == nil && (code < 200 || code >= 300) {
		err = fmt.Errorf("http %d", code)
	}
	if p.Metrics != nil {
		p.Metrics.PushDuration.WithLabelValues(ev.Event).Observe(time.Since(start).Seconds())
		result := "success"
		if err != nil {
			result = "failed"
		}
		p.Metrics.PushTotal.WithLabelValues(ev.Event, result).Inc()
	}
	if err != nil {
		p.logger().Warn("push failed", zap.String("event", ev.Event), zap.Int("code", code), zap.Error(err))
		return err
	}
	p.logger().Info("push delivered", zap.String("event", ev.Event), zap.Int("code", code))
	return nil
}

// SendJSON 发送 JSON 事件，自动添加签名头；5xx 与网络错误按 Backoff 重试
func (p *Pusher) SendJSON(ctx context.Context, endpoint string, payload any) (int, []byte, error) {
	if p == nil || p.Client == nil {
		return 0, nil, errors.New("nil pusher")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return 0, nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	ts := time.Now().Unix()
	nonce := fmt.Sprintf("%08x", rand.Uint32())
	sig := SignHMAC(p.Secret, buildCanonical(http.MethodPost, u.Path, ts, nonce, hashHex(body)))

	var (
		respBody []byte
		code     int
		lastErr  error
	)
	for attempt := 0; attempt <= p.Retries; attempt++ {
		// 每次重试重建请求，body 只能读一次
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Api-Key", p.APIKey)
		req.Header.Set("X-Signature", sig)
		req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
		req.Header.Set("X-Nonce", nonce)

		resp, err := p.Client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			lastErr = nil
			code = resp.StatusCode
			respBody, _ = io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if code < 500 {
				return code, respBody, nil
			}
		}
		if attempt == p.Retries {
			break
		}
		if p.Metrics != nil {
			if ev, ok := payload.(Event); ok {
				p.Metrics.RetryTotal.WithLabelValues(ev.Event).Inc()
			}
		}
		var wait time.Duration
		if len(p.Backoff) > 0 {
			wait = p.Backoff[min(attempt, len(p.Backoff)-1)]
		}
		select {
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	if lastErr != nil {
		return 0, nil, lastErr
	}
	return code, respBody, fmt.Errorf("http %d", code)
}

func (p *Pusher) logger() *zap.Logger {
	if p.Logger == nil {
		return zap.NewNop()
	}
	return p.Logger
}
