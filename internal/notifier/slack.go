package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobharvest/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// SlackNotifier sends posting alerts to a Slack channel via Incoming Webhooks.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	gap        time.Duration // pause between messages
}

// NewSlackNotifier returns a notifier that posts each record to Slack via webhook.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
		gap:        500 * time.Millisecond,
	}
}

// Notify sends each record as a separate Slack message using Block Kit.
// Returns an error only if ALL messages fail. Individual failures are logged.
func (s *SlackNotifier) Notify(site string, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	failures := 0
	for i, r := range records {
		if i > 0 {
			time.Sleep(s.gap)
		}

		if err := s.sendMessage(site, r); err != nil {
			s.logger.Error("slack notification failed",
				"site", site,
				"company", r.Get(model.FieldCompany),
				"title", r.Get(model.FieldTitle),
				"error", err,
			)
			failures++
		}
	}

	sent := len(records) - failures
	if failures == len(records) {
		return fmt.Errorf("all %d slack notifications failed", failures)
	}
	s.logger.Info("slack notifications complete", "site", site, "sent", sent, "failed", failures)
	return nil
}

func (s *SlackNotifier) sendMessage(site string, r model.Record) error {
	body, err := json.Marshal(buildPayload(site, r))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
		if secs <= 0 {
			secs = 1
		}
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", secs)
		time.Sleep(time.Duration(secs) * time.Second)

		resp2, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("post to slack (retry): %w", err)
		}
		defer resp2.Body.Close()

		if resp2.StatusCode != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", resp2.StatusCode)
		}
		s.logger.Info("slack message sent", "title", r.Get(model.FieldTitle), "retried", true)
		return nil
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned %d", resp.StatusCode)
	}
	s.logger.Info("slack message sent", "title", r.Get(model.FieldTitle))
	return nil
}

// Block Kit payload types.

type slackPayload struct {
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type     string         `json:"type"`
	Text     *slackText     `json:"text,omitempty"`
	Fields   []slackText    `json:"fields,omitempty"`
	Elements []slackElement `json:"elements,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type  string    `json:"type"`
	Text  slackText `json:"text"`
	URL   string    `json:"url"`
	Style string    `json:"style"`
}

// SendTestMessage sends a dummy posting to verify the integration works.
func SendTestMessage(n model.Notifier) error {
	test := model.NewRecord(model.OutputSchema, map[string]string{
		model.FieldSourceSite:  "test",
		model.FieldJobID:       "test-001",
		model.FieldTitle:       "Notificación de prueba",
		model.FieldCompany:     "JobHarvest",
		model.FieldLocation:    "San José, Costa Rica",
		model.FieldSalary:      "₡ 1.000.000",
		model.FieldURL:         "https://www.elempleo.com/cr/ofertas-empleo/",
		model.FieldPostingDate: time.Now().Format("2006-01-02"),
	})
	return n.Notify("test", []model.Record{test})
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// applyLink prefers the outbound apply URL over the posting page.
func applyLink(r model.Record) string {
	if u := r.Get(model.FieldApplyURL); u != "" {
		return u
	}
	return r.Get(model.FieldURL)
}

func buildPayload(site string, r model.Record) slackPayload {
	posted := r.Get(model.FieldPostingDate)
	if posted == "" {
		posted = "Just detected"
	}
	company := orDash(r.Get(model.FieldCompany))
	title := r.Get(model.FieldTitle)

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: "🚀 " + company + ": " + title},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Company:*\n" + company},
				{Type: "mrkdwn", Text: "*Location:*\n" + orDash(r.Get(model.FieldLocation))},
			},
		},
		{
			Type: "section",
			Fields: []slackText{
				{Type: "mrkdwn", Text: "*Posted:*\n" + posted},
				{Type: "mrkdwn", Text: "*Source:*\n" + site},
			},
		},
	}

	if salary := r.Get(model.FieldSalary); salary != "" {
		text := "*Salary:* " + salary
		if t := r.Get(model.FieldSalaryType); t != "" {
			text += " (" + t + ")"
		}
		blocks = append(blocks, slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		})
	}

	if link := applyLink(r); link != "" {
		blocks = append(blocks, slackBlock{
			Type: "actions",
			Elements: []slackElement{
				{
					Type:  "button",
					Text:  slackText{Type: "plain_text", Text: "Apply Now"},
					URL:   link,
					Style: "primary",
				},
			},
		})
	}
	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackPayload{Blocks: blocks}
}
