package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/objgraph/pkg/serial"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseCommand creates the browse command for paging through the records
// of a tree.
func (c *CLI) browseCommand() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "browse [file]",
		Short: "Browse the records of a tree interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tree, err := c.readTree(args[0], format)
			if err != nil {
				return err
			}
			m := newBrowseModel(args[0], tree)
			if len(m.rows) == 0 {
				printInfo("No records in %s", args[0])
				return nil
			}
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
			return err
		},
	}

	cmd.Flags().StringVar(&format, "from", "", "input format: "+formatList())
	_ = cmd.RegisterFlagCompletionFunc("from", completeFormats)

	return cmd
}

// browseRow is one record reached while walking the tree.
type browseRow struct {
	path   string
	class  string
	uid    string
	depth  int
	repeat bool
	stub   bool
	fields [][2]string
}

type browseKeys struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Detail key.Binding
	Quit   key.Binding
}

func newBrowseKeys() browseKeys {
	return browseKeys{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Top:    key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom: key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Detail: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("⏎", "fields")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

func (k browseKeys) help() string {
	parts := make([]string, 0, 6)
	for _, b := range []key.Binding{k.Up, k.Down, k.Top, k.Bottom, k.Detail, k.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

// browseModel is the bubbletea model behind the browse command.
type browseModel struct {
	title  string
	rows   []browseRow
	keys   browseKeys
	cursor int
	offset int
	height int
	detail bool
}

func newBrowseModel(title string, tree any) browseModel {
	return browseModel{
		title:  title,
		rows:   collectRows(tree),
		keys:   newBrowseKeys(),
		height: 15,
	}
}

func collectRows(tree any) []browseRow {
	var rows []browseRow
	serial.Walk(tree, func(v serial.Visit) bool {
		row := browseRow{
			path:   v.Path,
			class:  recordLabel(v.Record),
			uid:    "—",
			depth:  v.Depth,
			repeat: v.Repeat,
			stub:   v.Record.IsStub(),
		}
		if uid, ok := v.Record.UID(); ok {
			row.uid = strconv.FormatInt(uid, 10)
		}
		for name, val := range v.Record.Fields() {
			row.fields = append(row.fields, [2]string{name, fieldSummary(val)})
		}
		rows = append(rows, row)
		return true
	})
	return rows
}

func recordLabel(r *serial.Record) string {
	switch {
	case !r.IsTagged():
		return "{}"
	case r.Module() != "":
		return r.Module() + "." + r.Class()
	default:
		return r.Class()
	}
}

func fieldSummary(v any) string {
	switch x := v.(type) {
	case *serial.Record:
		if uid, ok := x.UID(); ok {
			return fmt.Sprintf("→ %s #%d", recordLabel(x), uid)
		}
		return "→ " + recordLabel(x)
	case []any:
		return fmt.Sprintf("[%d items]", len(x))
	case nil:
		return "null"
	case string:
		return truncate(strconv.Quote(x), 48)
	default:
		return truncate(fmt.Sprint(x), 48)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func (m browseModel) Init() tea.Cmd {
	return nil
}

func (m browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Top):
			m.cursor = 0
		case key.Matches(msg, m.keys.Bottom):
			m.cursor = len(m.rows) - 1
		case key.Matches(msg, m.keys.Detail):
			m.detail = !m.detail
		}
	case tea.WindowSizeMsg:
		m.height = max(msg.Height-8, 5)
	}
	m.scroll()
	return m, nil
}

// scroll keeps the cursor inside the visible window.
func (m *browseModel) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func (m browseModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.title))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(m.keys.help()))
	b.WriteString("\n\n")

	end := min(m.offset+m.height, len(m.rows))
	rows := make([][]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		r := m.rows[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		state := ""
		switch {
		case r.repeat:
			state = "ref"
		case r.stub:
			state = "stub"
		}
		rows = append(rows, []string{cursor, r.path, r.class, r.uid, strconv.Itoa(r.depth), state})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Path", "Class", "UID", "Depth", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.offset + row
			if idx >= len(m.rows) {
				return lipgloss.NewStyle()
			}
			switch {
			case idx == m.cursor:
				return listSelectedStyle
			case m.rows[idx].repeat || m.rows[idx].stub:
				return listDimStyle
			default:
				return listNormalStyle
			}
		})

	b.WriteString(t.Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.rows))))
	b.WriteString("\n")

	if m.detail && m.cursor < len(m.rows) {
		b.WriteString("\n")
		b.WriteString(m.fieldsView(m.rows[m.cursor]))
	}
	return b.String()
}

func (m browseModel) fieldsView(r browseRow) string {
	if len(r.fields) == 0 {
		return listDimStyle.Render("  no fields")
	}
	width := 0
	for _, f := range r.fields {
		width = max(width, len(f[0]))
	}
	var b strings.Builder
	for _, f := range r.fields {
		b.WriteString("  ")
		b.WriteString(StyleDim.Render(fmt.Sprintf("%-*s", width, f[0])))
		b.WriteString("  ")
		b.WriteString(StyleValue.Render(f[1]))
		b.WriteString("\n")
	}
	return b.String()
}
