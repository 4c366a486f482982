package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"weekly-planner/internal/lifecycle"
	"weekly-planner/internal/model"
	"weekly-planner/internal/week"
)

const helpText = "ℹ️ <b>Commands</b>\n" +
	"• /newtask — add a task step by step\n" +
	"• /week [2025-W10] — tasks of a week with their progress\n" +
	"• /summary [2025-W10] — weekly overview\n" +
	"• /advance &lt;id&gt; — todo → in progress → done → todo\n" +
	"• /status &lt;id&gt; &lt;todo|in_progress|done|blocked&gt; — set a status\n" +
	"• /subtask &lt;id&gt; &lt;weight 1-10&gt; &lt;title&gt; — add a subtask\n" +
	"• /check &lt;subtask id&gt; — check or uncheck a subtask\n" +
	"• /progress &lt;id&gt; &lt;current&gt; [total] — set a counter\n" +
	"• /note &lt;id&gt; &lt;text&gt; — log an update, /notes &lt;id&gt; to read them\n" +
	"• /migrate &lt;2025-W08&gt; — pull unfinished work of an older week here\n" +
	"• /rollover — carry last week into this one now\n" +
	"• /delete &lt;id&gt; — delete a task\n" +
	"• /cancel — cancel the current input"

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf("👋 Hi, %s!\n<b>I plan your work week by week.</b> Unfinished tasks follow you into the next week and recurring ones come back fresh every Monday.\n\n%s",
		escape(name), helpText)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	return b.sendText(msg.Chat.ID, helpText)
}

func (b *Bot) handleWeek(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	wk, err := b.weekArg(msg.CommandArguments())
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendWeek(ctx, msg.Chat.ID, user, wk)
}

func (b *Bot) handleSummary(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	wk, err := b.weekArg(msg.CommandArguments())
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	text, err := b.summarySvc.WeeklySummary(ctx, user, wk)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, text)
}

// weekArg parses an optional week argument, defaulting to the current week.
func (b *Bot) weekArg(args string) (week.Week, error) {
	args = strings.TrimSpace(args)
	if args == "" {
		return b.taskSvc.CurrentWeek(), nil
	}
	return week.Parse(args)
}

func (b *Bot) sendWeek(ctx context.Context, chatID int64, user *model.User, wk week.Week) error {
	views, err := b.taskSvc.ListWeek(ctx, user, wk)
	if err != nil {
		return b.replyError(chatID, err)
	}
	if len(views) == 0 {
		return b.sendText(chatID, fmt.Sprintf("No tasks in %s. Add one with /newtask.", wk))
	}

	current := wk == b.taskSvc.CurrentWeek()
	now := time.Now()

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📋 <b>Week %s</b>\n", wk))
	if current {
		builder.WriteString("Tap a task to move it to its next status.\n")
	}
	builder.WriteByte('\n')

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, v := range views {
		builder.WriteString(formatTaskView(v, now))
		if !current {
			continue
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s #%d · %s", statusIcon(lifecycle.NextStatus(v.Task.Status)), v.Task.ID, shortTitle(v.Task.Title, 22)),
				fmt.Sprintf("%s%d", cbAdvancePrefix, v.Task.ID)),
			tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, v.Task.ID)),
		))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	if len(buttons) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(buttons...)
	}
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleAdvance(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the task ID: /advance 12")
	}
	return b.advanceAndRefresh(ctx, msg.Chat.ID, msg.From, taskID)
}

func (b *Bot) advanceAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	res, err := b.taskSvc.Advance(ctx, user, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}
	b.logger.Info("status advanced", "task_id", taskID, "user_id", user.ID, "target", res.Kind, "status", res.Status())
	if err := b.sendText(chatID, statusChangedText(res)); err != nil {
		return err
	}
	return b.sendWeek(ctx, chatID, user, b.taskSvc.CurrentWeek())
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, status, err := parseStatusArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /status 12 in_progress")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	res, err := b.taskSvc.SetStatus(ctx, user, taskID, status)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, statusChangedText(res))
}

func statusChangedText(res *lifecycle.DispatchResult) string {
	title := ""
	if res.Task != nil {
		title = escape(normalizeTitle(res.Task.Title))
	}
	if res.Kind == lifecycle.TargetCompletion && res.Completion != nil {
		return fmt.Sprintf("♻️ «%s» is %s %s for %s.", title, statusIcon(res.Status()), statusLabel(res.Status()), res.Completion.Week())
	}
	return fmt.Sprintf("%s «%s» is %s.", statusIcon(res.Status()), title, statusLabel(res.Status()))
}

func (b *Bot) handleSubtask(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, weight, title, err := parseSubtaskArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /subtask 12 3 book the movers")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	subtask, err := b.taskSvc.AddSubtask(ctx, user, taskID, title, weight)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("➕ Subtask #%d «%s» (weight %d) added to #%d.", subtask.ID, escape(subtask.Title), subtask.Weight, taskID))
}

func (b *Bot) handleCheck(ctx context.Context, msg *tgbotapi.Message) error {
	subtaskID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the subtask ID: /check 31")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	subtask, err := b.taskSvc.ToggleSubtask(ctx, user, subtaskID)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	view, err := b.taskSvc.GetTaskView(ctx, user, subtask.TaskID)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	mark := "⬜"
	if subtask.IsCompleted {
		mark = "☑️"
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("%s %s · task #%d is at %d%%", mark, escape(subtask.Title), view.Task.ID, view.Progress))
}

func (b *Bot) handleProgress(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, current, total, err := parseProgressArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /progress 12 3 [10]")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	view, err := b.taskSvc.SetProgress(ctx, user, taskID, current, total)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📈 «%s» is at %d%%.", escape(normalizeTitle(view.Task.Title)), view.Progress))
}

func (b *Bot) handleNote(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, text, err := parseIDAndText(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /note 12 sent the draft")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	note, err := b.taskSvc.AddNote(ctx, user, taskID, text)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("📝 Noted on #%d at %d%%.", taskID, *note.ProgressValue))
}

func (b *Bot) handleNotes(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the task ID: /notes 12")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	notes, err := b.taskSvc.ListNotes(ctx, user, taskID, 10)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if len(notes) == 0 {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("No notes on #%d yet.", taskID))
	}
	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("📝 <b>Notes on #%d</b>\n", taskID))
	for _, n := range notes {
		builder.WriteString(fmt.Sprintf("• %s %s", n.CreatedAt.Format("2006-01-02 15:04"), escape(n.Text)))
		if n.ProgressValue != nil {
			builder.WriteString(fmt.Sprintf(" <i>(%d%%)</i>", *n.ProgressValue))
		}
		builder.WriteByte('\n')
	}
	return b.sendText(msg.Chat.ID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleMigrate(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Give the week to pull from: /migrate 2025-W08")
	}
	from, err := week.Parse(args)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	report, err := b.taskSvc.Migrate(ctx, user, from)
	if report == nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if sendErr := b.sendText(msg.Chat.ID, migrationText(report)); sendErr != nil {
		return sendErr
	}
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return nil
}

func (b *Bot) handleRollover(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	report, err := b.taskSvc.Rollover(ctx, user)
	if report == nil {
		return b.replyError(msg.Chat.ID, err)
	}
	if sendErr := b.sendText(msg.Chat.ID, rolloverText(report)); sendErr != nil {
		return sendErr
	}
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return nil
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	taskID, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Give the task ID: /delete 12")
	}
	return b.askDeleteConfirmation(ctx, msg.Chat.ID, msg.From, taskID)
}

func (b *Bot) askDeleteConfirmation(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	view, err := b.taskSvc.GetTaskView(ctx, user, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}

	text := fmt.Sprintf("Delete «%s» (#%d)?", escape(normalizeTitle(view.Task.Title)), taskID)
	if view.Task.Recurring() {
		text += "\nIt is recurring: every week of it will be gone."
	}
	b.setConfirmation(from.ID, confirmationRequest{taskID: taskID})
	return b.sendWithReplyMarkup(chatID, text, tgbotapi.NewInlineKeyboardMarkup(tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(btnConfirm, fmt.Sprintf("%s%d", cbConfirmPrefix, taskID)),
		tgbotapi.NewInlineKeyboardButtonData(btnCancel, fmt.Sprintf("%s%d", cbCancelPrefix, taskID)),
	)))
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.deleteTaskAndRefresh(ctx, msg.Chat.ID, msg.From, req.taskID)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Kept it.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, from *tgbotapi.User, taskID uint) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	if err := b.taskSvc.DeleteTask(ctx, user, taskID); err != nil {
		return b.replyError(chatID, err)
	}

	b.logger.Info("task deleted", "task_id", taskID, "user_id", user.ID)
	if err := b.sendTextWithRemove(chatID, fmt.Sprintf("🗑 Task #%d deleted.", taskID)); err != nil {
		return err
	}
	return b.sendWeek(ctx, chatID, user, b.taskSvc.CurrentWeek())
}
