package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/lumi-ct/backend/internal/models"
	"github.com/lumi-ct/backend/internal/repositories"
	"go.uber.org/zap"
)

// Notifier delivers one-way notifications. Failures are logged and swallowed:
// a notification must never undo or veto the mutation that triggered it.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// NotifierClient persists the in-app copy and forwards the notification to
// the external delivery gateway (email/SMS transports live behind it).
type NotifierClient struct {
	baseURL    string
	httpClient *http.Client
	repo       *repositories.NotificationRepo
	log        *zap.Logger
}

func NewNotifierClient(baseURL string, repo *repositories.NotificationRepo, log *zap.Logger) *NotifierClient {
	return &NotifierClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		repo: repo,
		log:  log,
	}
}

func (c *NotifierClient) Notify(ctx context.Context, n models.Notification) {
	if n.Channel == "" {
		n.Channel = models.ChannelInApp
	}

	if _, err := c.repo.Insert(ctx, &n); err != nil {
		c.log.Warn("failed to persist notification",
			zap.String("type", n.Type),
			zap.String("user_id", n.UserID.String()),
			zap.Error(err),
		)
	}

	if err := c.deliver(ctx, n); err != nil {
		c.log.Warn("notification delivery failed",
			zap.String("type", n.Type),
			zap.String("user_id", n.UserID.String()),
			zap.Error(err),
		)
	}
}

func (c *NotifierClient) deliver(ctx context.Context, n models.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	url := c.baseURL + "/internal/notifications"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notification gateway unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification gateway returned %d", resp.StatusCode)
	}
	return nil
}
