package tracker

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/shishobooks/booktracker/pkg/models"
	"github.com/shishobooks/booktracker/pkg/timeline"
)

const dateLayout = "Jan 2, 2006"

type styles struct {
	heading lipgloss.Style
	accent  lipgloss.Style
	title   lipgloss.Style
	done    lipgloss.Style
	faint   lipgloss.Style
	empty   lipgloss.Style
}

func newStyles() styles {
	return styles{
		heading: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("8")),
		accent:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		title:   lipgloss.NewStyle().Bold(true),
		done:    lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("8")),
		faint:   lipgloss.NewStyle().Faint(true),
		empty:   lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8")),
	}
}

// Render draws the timeline the way the list command prints it: Unread, then
// This Week, then one section per month.
func Render(tl timeline.Timeline) string {
	st := newStyles()
	if tl.Len() == 0 {
		return st.empty.Render(`No books yet. Use "add" to create your first one.`) + "\n"
	}

	var b strings.Builder
	section := func(heading string, style lipgloss.Style, books []*models.Book) {
		if len(books) == 0 {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(style.Render(strings.ToUpper(heading)))
		b.WriteString("\n")
		for _, book := range books {
			b.WriteString(renderBook(st, book))
		}
	}

	section("Unread", st.heading, tl.Unread)
	section("This Week", st.accent, tl.ThisWeek)
	for _, m := range tl.Months {
		section(m.Label, st.heading, m.Books)
	}

	return b.String()
}

func renderBook(st styles, book *models.Book) string {
	mark := "[ ]"
	title := st.title.Render(book.Title)
	date := "Added on " + book.CreatedAt.Format(dateLayout)
	if book.Read {
		mark = "[x]"
		title = st.done.Render(book.Title)
		date = "Read on " + book.EffectiveDate().Format(dateLayout)
	}

	return fmt.Sprintf("  %s %s %s\n      %s\n      %s\n",
		mark,
		st.faint.Render(fmt.Sprintf("#%d", book.ID)),
		title,
		book.Author,
		st.faint.Render(date),
	)
}

// ConsoleNotifier prints notifications as single lines to W.
type ConsoleNotifier struct {
	W io.Writer
}

func (n *ConsoleNotifier) Success(title string) {
	fmt.Fprintln(n.W, lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render("✓ "+title))
}

func (n *ConsoleNotifier) Error(title, description string) {
	line := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")).Render("✗ " + title)
	if description != "" {
		line += ": " + description
	}
	fmt.Fprintln(n.W, line)
}
