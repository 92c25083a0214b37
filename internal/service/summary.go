package service

import (
	"fmt"
	"html"
	"strings"
	"time"

	"lifelock/internal/model"
	"lifelock/internal/store"
)

// SummaryService builds human-readable daily digests from the task store.
type SummaryService struct {
	store *store.TaskStore
}

func NewSummaryService(s *store.TaskStore) *SummaryService {
	return &SummaryService{store: s}
}

// DailySummary renders overdue work, the day's focus list and progress stats
// as Telegram-flavoured HTML.
func (s *SummaryService) DailySummary(now time.Time) string {
	tasks := s.store.Tasks()
	stats := s.store.Stats()

	var overdue, dueSoon, inProgress []*model.Task
	for _, task := range tasks {
		if task.Status == model.StatusCompleted {
			continue
		}
		switch {
		case task.IsOverdue(now):
			overdue = append(overdue, task)
		case dueWithin(task, now, 48*time.Hour):
			dueSoon = append(dueSoon, task)
		case task.Status == model.StatusInProgress:
			inProgress = append(inProgress, task)
		}
	}

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily digest</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("2006-01-02")))

	builder.WriteString("⚠️ <b>Overdue</b>\n")
	if len(overdue) == 0 {
		builder.WriteString("— nothing overdue\n")
	} else {
		for _, task := range overdue {
			builder.WriteString(formatTaskLine(task, now))
		}
	}

	builder.WriteString("\n⏳ <b>Due within 48h</b>\n")
	if len(dueSoon) == 0 {
		builder.WriteString("— nothing due soon\n")
	} else {
		for _, task := range dueSoon {
			builder.WriteString(formatTaskLine(task, now))
		}
	}

	builder.WriteString("\n🔥 <b>In progress</b>\n")
	if len(inProgress) == 0 {
		builder.WriteString("— nothing in flight\n")
	} else {
		for _, task := range inProgress {
			builder.WriteString(formatTaskLine(task, now))
		}
	}

	completedToday := s.store.GetCompletedToday()
	builder.WriteString(fmt.Sprintf("\n✅ Done today: %d · overall %d/%d (%.0f%%)\n",
		len(completedToday), stats.Completed, stats.Total, stats.CompletionRate))

	return strings.TrimSpace(builder.String())
}

func dueWithin(task *model.Task, now time.Time, window time.Duration) bool {
	if task.DueDate == nil {
		return false
	}
	d := task.DueDate.Sub(now)
	return d >= 0 && d <= window
}

func formatTaskLine(task *model.Task, now time.Time) string {
	var sb strings.Builder

	icon := categoryIcon(task.Category)
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(strings.TrimSpace(task.Title))))

	if task.Priority == model.PriorityHigh {
		sb.WriteString(" ‼️")
	}

	if pct := task.CompletionPercent(); len(task.Subtasks) > 0 {
		sb.WriteString(fmt.Sprintf(" <i>(%.0f%%)</i>", pct))
	}

	if task.DueDate != nil {
		d := task.DueDate.In(now.Location())
		if task.IsOverdue(now) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s — <b>overdue</b>", d.Format("2006-01-02")))
		} else if days, ok := task.DaysUntilDue(now); ok {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · ~%d day(s) left", d.Format("2006-01-02"), days))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}

func categoryIcon(c model.Category) string {
	switch c {
	case model.CategoryDeepWork:
		return "🧠"
	case model.CategoryLightWork:
		return "🪶"
	case model.CategoryMorningRoutine:
		return "🌅"
	case model.CategoryAdmin:
		return "🗂"
	}
	return "🟢"
}
