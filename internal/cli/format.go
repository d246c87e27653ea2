package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/daybook/internal/models"
)

var (
	OKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	WarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	DimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	TitleStyle = lipgloss.NewStyle().Bold(true)
)

func pin(pinned bool) string {
	if pinned {
		return "*"
	}
	return " "
}

func check(done bool) string {
	if done {
		return "[x]"
	}
	return "[ ]"
}

// FormatNote renders a note as one line.
func FormatNote(n models.Note) string {
	var tags []string
	if n.Category != nil && *n.Category != "" {
		tags = append(tags, *n.Category)
	}
	if n.IsArchived {
		tags = append(tags, "archived")
	}
	if n.IsDeleted {
		tags = append(tags, "trash")
	}
	line := fmt.Sprintf("%s %s  %s", pin(n.IsPinned), n.ID, n.Title)
	if len(tags) > 0 {
		line += DimStyle.Render(" (" + strings.Join(tags, ", ") + ")")
	}
	return line
}

// FormatRoutine renders a routine as one line.
func FormatRoutine(r models.Routine) string {
	line := fmt.Sprintf("%s %s  %s  [%s]", pin(r.IsPinned), r.ID, r.Title, r.Frequency)
	if r.ReminderTime != nil {
		line += " @" + r.ReminderTime.String()
	}
	if !r.IsActive {
		line += DimStyle.Render(" (inactive)")
	}
	return line
}

// FormatCompletion renders a routine completion as one line.
func FormatCompletion(c models.RoutineCompletion) string {
	return fmt.Sprintf("  %s  %s  %s", c.CompletionDate, c.RoutineID, DimStyle.Render(c.CompletedAt.Local().Format("15:04")))
}

// FormatSchedule renders a schedule entry as one line.
func FormatSchedule(s models.Schedule) string {
	line := fmt.Sprintf("%s %s %s %s-%s  %s  %s", pin(s.IsPinned), check(s.IsCompleted), s.Date, s.StartTime, s.EndTime, s.ID, s.Title)
	if s.Location != nil && *s.Location != "" {
		line += " @ " + *s.Location
	}
	if s.Category != "" {
		line += DimStyle.Render(" (" + s.Category + ")")
	}
	return line
}

// FormatExpense renders an expense as one line.
func FormatExpense(e models.Expense) string {
	line := fmt.Sprintf("  %s  %10.2f  %-14s %s  %s", e.Date, e.Amount, e.Category, e.ID, e.Title)
	if e.Description != nil && *e.Description != "" {
		line += DimStyle.Render(" - " + *e.Description)
	}
	return line
}

// FormatCategory renders an expense category as one line.
func FormatCategory(c models.ExpenseCategory) string {
	return fmt.Sprintf("  %-14s budget %8.2f  %s", c.Name, c.MonthlyBudget, DimStyle.Render(c.ColorHex+" "+c.IconName))
}
