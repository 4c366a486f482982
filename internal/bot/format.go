package bot

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"
	"unicode"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"weekly-planner/internal/lifecycle"
	"weekly-planner/internal/model"
	"weekly-planner/internal/service"
)

const (
	btnSkip          = "⏭️ Skip"
	btnYes           = "Yes"
	btnNo            = "No"
	btnConfirm       = "✅ Confirm"
	btnCancel        = "↩️ Cancel"
	btnCancelDialog  = "⏪ Stop input"
	menuLabelNewTask = "➕ New task"
	menuLabelWeek    = "📋 This week"
	menuLabelSummary = "📊 Summary"
	menuLabelHelp    = "ℹ️ Help"
)

var categoryButtons = map[model.Category]string{
	model.CategoryLifeAdmin:       "🧩 Life admin",
	model.CategoryWork:            "💼 Work",
	model.CategoryWeeklyRecurring: "♻️ Weekly recurring",
}

var priorityButtons = map[model.Priority]string{
	model.PriorityHigh:   "🔴 High",
	model.PriorityMedium: "🟠 Medium",
	model.PriorityLow:    "🟢 Low",
}

var errBadArgs = errors.New("bad arguments")

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelNewTask),
			tgbotapi.NewKeyboardButton(menuLabelWeek),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelSummary),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = false
	return kb
}

func oneTimeKeyboard(rows ...[]tgbotapi.KeyboardButton) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(rows...)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTimeKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))
}

func skipKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTimeKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnSkip)),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
}

func yesNoKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTimeKeyboard(tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnYes),
		tgbotapi.NewKeyboardButton(btnNo),
		tgbotapi.NewKeyboardButton(btnCancelDialog),
	))
}

func confirmKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTimeKeyboard(tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton(btnConfirm),
		tgbotapi.NewKeyboardButton(btnCancel),
	))
}

func categoryKeyboard() tgbotapi.ReplyKeyboardMarkup {
	rows := make([][]tgbotapi.KeyboardButton, 0, len(model.Categories)+1)
	for _, c := range model.Categories {
		rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(categoryButtons[c])))
	}
	rows = append(rows, tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)))
	return oneTimeKeyboard(rows...)
}

func priorityKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return oneTimeKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(priorityButtons[model.PriorityHigh]),
			tgbotapi.NewKeyboardButton(priorityButtons[model.PriorityMedium]),
			tgbotapi.NewKeyboardButton(priorityButtons[model.PriorityLow]),
		),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(btnCancelDialog)),
	)
}

func isSkipInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == "-" || value == strings.ToLower(btnSkip) || value == "skip"
}

func isConfirmInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnConfirm) || value == "confirm" || value == "yes"
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel" || value == "no"
}

func isCancelDialogInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancelDialog) || value == "stop"
}

// parseCategoryInput accepts a keyboard label or the raw category value.
func parseCategoryInput(text string) (model.Category, bool) {
	value := strings.TrimSpace(text)
	for c, label := range categoryButtons {
		if strings.EqualFold(value, label) {
			return c, true
		}
	}
	c := model.Category(normalizeToken(value))
	return c, c.Valid()
}

func parsePriorityInput(text string) (model.Priority, bool) {
	value := strings.TrimSpace(text)
	for p, label := range priorityButtons {
		if strings.EqualFold(value, label) {
			return p, true
		}
	}
	p := model.Priority(normalizeToken(value))
	return p, p.Valid()
}

// normalizeToken lowercases and maps spaces and dashes to underscores, so
// "In progress" reads as in_progress.
func normalizeToken(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(value)
}

func parseTaskID(data, prefix string) (uint, error) {
	return parseID(strings.TrimPrefix(data, prefix))
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "#")), 10, 64)
	if err != nil || value == 0 {
		return 0, errBadArgs
	}
	return uint(value), nil
}

// parseIDAndText splits "12 some text".
func parseIDAndText(args string) (uint, string, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return 0, "", errBadArgs
	}
	id, err := parseID(fields[0])
	if err != nil {
		return 0, "", err
	}
	return id, strings.Join(fields[1:], " "), nil
}

func parseStatusArgs(args string) (uint, model.Status, error) {
	id, rest, err := parseIDAndText(args)
	if err != nil {
		return 0, "", err
	}
	status := model.Status(normalizeToken(rest))
	if status == "inprogress" || status == "progress" {
		status = model.StatusInProgress
	}
	if !status.Valid() {
		return 0, "", errBadArgs
	}
	return id, status, nil
}

func parseSubtaskArgs(args string) (uint, int, string, error) {
	fields := strings.Fields(args)
	if len(fields) < 3 {
		return 0, 0, "", errBadArgs
	}
	id, err := parseID(fields[0])
	if err != nil {
		return 0, 0, "", err
	}
	weight, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, "", errBadArgs
	}
	return id, weight, strings.Join(fields[2:], " "), nil
}

func parseProgressArgs(args string) (uint, int, *int, error) {
	fields := strings.Fields(args)
	if len(fields) < 2 || len(fields) > 3 {
		return 0, 0, nil, errBadArgs
	}
	id, err := parseID(fields[0])
	if err != nil {
		return 0, 0, nil, err
	}
	current, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, nil, errBadArgs
	}
	if len(fields) == 2 {
		return id, current, nil, nil
	}
	total, err := strconv.Atoi(fields[2])
	if err != nil {
		return 0, 0, nil, errBadArgs
	}
	return id, current, &total, nil
}

func escape(s string) string {
	return html.EscapeString(s)
}

func normalizeTitle(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	runes := []rune(value)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func shortTitle(title string, maxLen int) string {
	clean := normalizeTitle(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func categoryLabel(c model.Category) string {
	if label, ok := categoryButtons[c]; ok {
		return label
	}
	return "🏷️ " + escape(string(c))
}

func statusIcon(s model.Status) string {
	switch s {
	case model.StatusInProgress:
		return "🟡"
	case model.StatusDone:
		return "✅"
	case model.StatusBlocked:
		return "⛔"
	default:
		return "⚪"
	}
}

func statusLabel(s model.Status) string {
	return strings.ReplaceAll(string(s), "_", " ")
}

func progressBar(percent int) string {
	filled := percent / 10
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

func formatTaskView(v service.TaskView, now time.Time) string {
	task := v.Task
	var b strings.Builder

	prefix := statusIcon(task.Status)
	if v.Target == lifecycle.TargetCompletion {
		prefix += "♻️"
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s <i>%s</i>\n", prefix, task.ID, escape(normalizeTitle(task.Title)), task.Priority))
	b.WriteString(fmt.Sprintf("   %s %d%%\n", progressBar(v.Progress), v.Progress))

	if task.DueDate != nil && task.Status != model.StatusDone {
		d := task.DueDate.In(now.Location())
		if now.After(d) {
			b.WriteString(fmt.Sprintf("   ⏰ due %s, <b>overdue</b>\n", d.Format("2006-01-02")))
		} else {
			b.WriteString(fmt.Sprintf("   ⏰ due %s\n", d.Format("2006-01-02")))
		}
	}
	for _, st := range task.Subtasks {
		mark := "⬜"
		if st.IsCompleted {
			mark = "☑️"
		}
		b.WriteString(fmt.Sprintf("   %s %s <i>#%d ×%d</i>\n", mark, escape(st.Title), st.ID, st.Weight))
	}
	b.WriteByte('\n')
	return b.String()
}

func refList(refs []lifecycle.TaskRef) string {
	var b strings.Builder
	for _, r := range refs {
		b.WriteString(fmt.Sprintf("   • #%d %s\n", r.TaskID, escape(normalizeTitle(r.Title))))
	}
	return b.String()
}

func failureList(failures []lifecycle.Failure) string {
	var b strings.Builder
	for _, f := range failures {
		b.WriteString(fmt.Sprintf("   • #%d failed\n", f.TaskID))
	}
	return b.String()
}

func rolloverText(r *lifecycle.RolloverReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔄 <b>Rollover %s → %s</b>\n", r.From, r.To))
	if len(r.Moved)+len(r.Reinstanced)+len(r.Failures) == 0 {
		b.WriteString("Nothing to carry over.")
		return b.String()
	}
	if len(r.Moved) > 0 {
		b.WriteString(fmt.Sprintf("➡️ Carried over: %d\n", len(r.Moved)))
		b.WriteString(refList(r.Moved))
	}
	if len(r.Reinstanced) > 0 {
		b.WriteString(fmt.Sprintf("♻️ Fresh for this week: %d\n", len(r.Reinstanced)))
		b.WriteString(refList(r.Reinstanced))
	}
	if len(r.Failures) > 0 {
		b.WriteString(fmt.Sprintf("⚠️ Failed: %d\n", len(r.Failures)))
		b.WriteString(failureList(r.Failures))
	}
	return strings.TrimSpace(b.String())
}

func migrationText(r *lifecycle.MigrationReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>Migration %s → %s</b>\n", r.From, r.To))
	if len(r.Moved)+len(r.Copied)+len(r.Failures) == 0 {
		b.WriteString("Nothing unfinished there.")
		return b.String()
	}
	if len(r.Moved) > 0 {
		b.WriteString(fmt.Sprintf("➡️ Moved: %d\n", len(r.Moved)))
		b.WriteString(refList(r.Moved))
	}
	if len(r.Copied) > 0 {
		b.WriteString(fmt.Sprintf("📄 Copied, originals kept with their history: %d\n", len(r.Copied)))
		b.WriteString(refList(r.Copied))
	}
	if len(r.Failures) > 0 {
		b.WriteString(fmt.Sprintf("⚠️ Failed: %d\n", len(r.Failures)))
		b.WriteString(failureList(r.Failures))
	}
	return strings.TrimSpace(b.String())
}
