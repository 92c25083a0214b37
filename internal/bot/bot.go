// Package bot is the Telegram front end. It renders the store's derived view
// and turns user commands into gateway mutations; all optimistic/rollback
// behavior lives behind the gateway, the bot only presents the outcome.
package bot

import (
	"context"
	"fmt"
	"html"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"lifelock/internal/config"
	"lifelock/internal/gateway"
	"lifelock/internal/model"
	"lifelock/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTitle
	stageCategory
	stagePriority
	stageDue
)

const (
	cbCompletePrefix = "complete:"
	cbDeletePrefix   = "delete:"
)

const (
	btnSkip      = "skip"
	menuNewTask  = "➕ New task"
	menuTasks    = "📋 Tasks"
	menuSummary  = "📊 Summary"
	menuClearFlt = "🧹 Clear filter"
)

type draft struct {
	stage    conversationStage
	title    string
	category model.Category
	priority model.Priority
	due      *time.Time
}

// Bot aggregates the Telegram API with the sync gateway.
type Bot struct {
	api        *tgbotapi.BotAPI
	gw         *gateway.Gateway
	summarySvc *service.SummaryService
	config     *config.Config
	drafts     map[int64]*draft
}

func New(token string, gw *gateway.Gateway, summarySvc *service.SummaryService, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:        api,
		gw:         gw,
		summarySvc: summarySvc,
		config:     cfg,
		drafts:     make(map[int64]*draft),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || update.Message.Chat.ID != b.config.AllowedChatID {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}
	return ctx.Err()
}

// SendSummary pushes the daily digest to the configured chat.
func (b *Bot) SendSummary(now time.Time) error {
	return b.sendHTML(b.config.AllowedChatID, b.summarySvc.DailySummary(now))
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if d, ok := b.drafts[chatID]; ok && d.stage != stageNone && !strings.HasPrefix(text, "/") {
		return b.advanceDraft(ctx, chatID, d, text)
	}

	switch {
	case text == "/start" || text == "/help":
		return b.sendHTML(chatID, helpText())
	case text == "/tasks" || text == menuTasks:
		return b.sendTaskList(chatID)
	case text == "/add" || text == menuNewTask:
		b.drafts[chatID] = &draft{stage: stageTitle}
		return b.send(chatID, "Title for the new task?")
	case text == "/summary" || text == menuSummary:
		return b.SendSummary(time.Now())
	case text == "/clear" || text == menuClearFlt:
		b.gw.Store().ResetFilters()
		return b.sendTaskList(chatID)
	case strings.HasPrefix(text, "/filter"):
		return b.applyFilterCommand(chatID, strings.TrimSpace(strings.TrimPrefix(text, "/filter")))
	case strings.HasPrefix(text, "/search "):
		b.gw.Store().SetFilters(model.Filter{Search: strings.TrimSpace(strings.TrimPrefix(text, "/search "))})
		return b.sendTaskList(chatID)
	default:
		return b.send(chatID, "Unknown command, try /help")
	}
}

func (b *Bot) advanceDraft(ctx context.Context, chatID int64, d *draft, text string) error {
	switch d.stage {
	case stageTitle:
		if text == "" {
			return b.send(chatID, "Title cannot be empty, try again.")
		}
		d.title = text
		d.stage = stageCategory
		return b.send(chatID, "Category? (admin / deep_work / light_work / morning_routine, or "+btnSkip+")")
	case stageCategory:
		if text != btnSkip {
			d.category = model.Category(text)
		}
		d.stage = stagePriority
		return b.send(chatID, "Priority? (low / medium / high, or "+btnSkip+")")
	case stagePriority:
		if text != btnSkip {
			d.priority = model.Priority(text)
		}
		d.stage = stageDue
		return b.send(chatID, "Due date? (YYYY-MM-DD, or "+btnSkip+")")
	case stageDue:
		if text != btnSkip {
			due, err := time.ParseInLocation("2006-01-02", text, time.Local)
			if err != nil {
				return b.send(chatID, "Could not parse the date, expected YYYY-MM-DD.")
			}
			d.due = &due
		}
		delete(b.drafts, chatID)
		return b.createFromDraft(ctx, chatID, d)
	}
	delete(b.drafts, chatID)
	return nil
}

func (b *Bot) createFromDraft(ctx context.Context, chatID int64, d *draft) error {
	task := &model.Task{
		Title:    d.title,
		Category: d.category,
		Priority: d.priority,
		DueDate:  d.due,
		Status:   model.StatusNotStarted,
	}
	if task.Priority == "" {
		task.Priority = model.PriorityMedium
	}

	created, err := b.gw.CreateTask(ctx, task)
	if err != nil {
		return b.send(chatID, renderError(err))
	}
	return b.sendHTML(chatID, fmt.Sprintf("Created <b>%s</b> ✔️", html.EscapeString(created.Title)))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.Message == nil || cb.Message.Chat == nil || cb.Message.Chat.ID != b.config.AllowedChatID {
		return nil
	}
	chatID := cb.Message.Chat.ID
	defer func() {
		if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, "")); err != nil {
			log.Printf("answer callback: %v", err)
		}
	}()

	switch {
	case strings.HasPrefix(cb.Data, cbCompletePrefix):
		id := strings.TrimPrefix(cb.Data, cbCompletePrefix)
		_, err := b.gw.UpdateTask(ctx, id, model.TaskChanges{Status: model.StatusPtr(model.StatusCompleted)})
		if err != nil {
			return b.send(chatID, renderError(err))
		}
		return b.sendTaskList(chatID)
	case strings.HasPrefix(cb.Data, cbDeletePrefix):
		id := strings.TrimPrefix(cb.Data, cbDeletePrefix)
		if err := b.gw.DeleteTask(ctx, id); err != nil {
			return b.send(chatID, renderError(err))
		}
		return b.sendTaskList(chatID)
	}
	return nil
}

// applyFilterCommand parses "/filter key=value" pairs: status, priority,
// category, overdue.
func (b *Bot) applyFilterCommand(chatID int64, args string) error {
	if args == "" {
		return b.send(chatID, "Usage: /filter status=in_progress priority=high category=deep_work overdue=true")
	}
	var f model.Filter
	for _, pair := range strings.Fields(args) {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return b.send(chatID, fmt.Sprintf("Bad filter %q, expected key=value", pair))
		}
		switch key {
		case "status":
			f.Statuses = append(f.Statuses, model.Status(value))
		case "priority":
			f.Priorities = append(f.Priorities, model.Priority(value))
		case "category":
			f.Categories = append(f.Categories, model.Category(value))
		case "overdue":
			f.Overdue = model.BoolPtr(value == "true")
		default:
			return b.send(chatID, fmt.Sprintf("Unknown filter key %q", key))
		}
	}
	b.gw.Store().SetFilters(f)
	return b.sendTaskList(chatID)
}

func (b *Bot) sendTaskList(chatID int64) error {
	tasks := b.gw.Store().Filtered()
	if len(tasks) == 0 {
		return b.send(chatID, "No tasks match the current view.")
	}

	now := time.Now()
	var sb strings.Builder
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, task := range tasks {
		sb.WriteString(fmt.Sprintf("%d. %s %s", i+1, statusIcon(task, now), html.EscapeString(task.Title)))
		if task.DueDate != nil {
			sb.WriteString(fmt.Sprintf(" · due %s", task.DueDate.Format("2006-01-02")))
		}
		if len(task.Subtasks) > 0 {
			sb.WriteString(fmt.Sprintf(" · %.0f%%", task.CompletionPercent()))
		}
		sb.WriteByte('\n')

		label := fmt.Sprintf("✅ %d", i+1)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbCompletePrefix+task.ID),
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("🗑 %d", i+1), cbDeletePrefix+task.ID),
		))
	}

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) send(chatID int64, text string) error {
	_, err := b.api.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

func (b *Bot) sendHTML(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

// renderError maps gateway error kinds onto user-facing messages.
func renderError(err error) string {
	switch {
	case gateway.IsNotFound(err):
		return "That task no longer exists — it may have been deleted from another device."
	case gateway.IsValidation(err):
		return "The server rejected the change: " + err.Error()
	case gateway.IsConflict(err):
		return "The task changed on another device; the view has been refreshed. Please retry."
	case gateway.IsNetwork(err):
		return "Network trouble — the change was undone. Please retry."
	default:
		return "Something went wrong: " + err.Error()
	}
}

func statusIcon(task *model.Task, now time.Time) string {
	switch {
	case task.Status == model.StatusCompleted:
		return "✅"
	case task.IsOverdue(now):
		return "⚠️"
	case task.Status == model.StatusInProgress:
		return "🔥"
	}
	return "🟢"
}

func helpText() string {
	return strings.Join([]string{
		"<b>LifeLock</b> — personal task tracker",
		"",
		"/tasks — show the current view",
		"/add — create a task",
		"/filter status=… priority=… category=… overdue=true",
		"/search &lt;text&gt; — free-text filter",
		"/clear — reset filters",
		"/summary — daily digest",
	}, "\n")
}
