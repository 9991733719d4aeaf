package notifier

import (
	"log/slog"

	"github.com/amishk599/jobharvest/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new postings to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each record via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each record with company, title, location, salary and URL.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(site string, records []model.Record) error {
	for _, r := range records {
		args := []any{
			"site", site,
			"company", r.Get(model.FieldCompany),
			"title", r.Get(model.FieldTitle),
			"location", r.Get(model.FieldLocation),
			"url", r.Get(model.FieldURL),
		}
		if s := r.Get(model.FieldSalary); s != "" {
			args = append(args, "salary", s)
		}
		if d := r.Get(model.FieldPostingDate); d != "" {
			args = append(args, "posted", d)
		}
		n.logger.Info("new job", args...)
	}
	return nil
}
