package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mediasort/internal/config"
)

const userAgent = "mediasort/1"

// RunSummary is the notification view of a finished run.
type RunSummary struct {
	RunID       string
	OutputDir   string
	Discovered  int
	Organized   int
	Quarantined int
	Failed      int
	Skipped     int
	Duration    time.Duration
	Aborted     bool
	Canceled    bool
}

// Service defines the notification surface used by the runner and CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyRunFailed(ctx context.Context, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg config.Notifications) Service {
	topic := strings.TrimSpace(cfg.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.NtfyRequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, s RunSummary) error {
	data := payload{
		title: "mediasort - Run Complete",
		tags:  []string{"mediasort", "run", "completed"},
	}
	switch {
	case s.Aborted:
		data.title = "mediasort - Run Aborted"
		data.tags = []string{"mediasort", "run", "aborted"}
		data.priority = "high"
	case s.Canceled:
		data.title = "mediasort - Run Canceled"
		data.tags = []string{"mediasort", "run", "canceled"}
	case s.Failed > 0:
		data.title = "mediasort - Run Complete (with errors)"
		data.priority = "high"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d organized, %d quarantined, %d failed", s.Organized, s.Quarantined, s.Failed)
	if s.Skipped > 0 {
		fmt.Fprintf(&b, ", %d left in place", s.Skipped)
	}
	fmt.Fprintf(&b, " of %d files in %s", s.Discovered, roundDuration(s.Duration))
	if s.OutputDir != "" {
		fmt.Fprintf(&b, "\nOutput: %s", s.OutputDir)
	}
	if s.RunID != "" {
		fmt.Fprintf(&b, "\nRun: %s", s.RunID)
	}
	data.message = b.String()
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, err error) error {
	message := "unknown error"
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	data := payload{
		title:    "mediasort - Run Failed",
		message:  "Run could not start: " + message,
		tags:     []string{"mediasort", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "mediasort - Test",
		message:  "Notification system test",
		tags:     []string{"mediasort", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

// headers maps the payload onto ntfy's publish headers. Priority is left
// unset for ntfy's default.
func (p payload) headers() http.Header {
	h := http.Header{}
	h.Set("User-Agent", userAgent)
	h.Set("Content-Type", "text/plain; charset=utf-8")
	h.Set("Title", p.title)
	if len(p.tags) > 0 {
		h.Set("Tags", strings.Join(p.tags, ","))
	}
	if p.priority != "" {
		h.Set("Priority", p.priority)
	}
	return h
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("ntfy %s: %w", n.endpoint, err)
	}
	req.Header = data.headers()

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("ntfy %s: %w", n.endpoint, err)
	}
	defer resp.Body.Close()

	// ntfy answers 200 with the stored message; anything else carries a
	// JSON error body worth surfacing.
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ntfy %s: %s: %s", n.endpoint, resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

func roundDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error { return nil }
func (noopService) NotifyRunFailed(context.Context, error) error         { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }
