package review

import (
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobharvest/internal/model"
)

// Lines per record in the list view (title + subtitle + blank separator).
const recordItemHeight = 3

// KeyFields are the columns a usable posting is expected to carry. A record
// missing any of them is listed with its gaps.
var KeyFields = []string{
	model.FieldTitle, model.FieldCompany, model.FieldLocation,
	model.FieldPostingDate, model.FieldDescription, model.FieldURL,
}

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	gapStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(28)

	detailValueStyle = lipgloss.NewStyle()

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	descDividerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("240"))

	descHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Italic(true)

	descBodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

// Gaps returns the key fields r leaves empty, in KeyFields order.
func Gaps(r model.Record) []string {
	var gaps []string
	for _, f := range KeyFields {
		if strings.TrimSpace(r.Get(f)) == "" {
			gaps = append(gaps, f)
		}
	}
	return gaps
}

// Partition splits records into those the filter accepts. A nil filter
// accepts every record.
func Partition(records []model.Record, filter model.RecordFilter) []model.Record {
	if filter == nil {
		return slices.Clone(records)
	}
	var matched []model.Record
	for _, r := range records {
		if filter.Match(r) {
			matched = append(matched, r)
		}
	}
	return matched
}

// SortByPostingDate orders records newest first. Dates are ISO formatted so
// string order is date order; undated records go last.
func SortByPostingDate(records []model.Record) {
	slices.SortStableFunc(records, func(a, b model.Record) int {
		da, db := a.Get(model.FieldPostingDate), b.Get(model.FieldPostingDate)
		switch {
		case da == db:
			return 0
		case da == "":
			return 1
		case db == "":
			return -1
		}
		return strings.Compare(db, da)
	})
}

type reviewModel struct {
	title         string
	allRecords    []model.Record
	matched       []model.Record
	leftViewport  viewport.Model
	rightViewport viewport.Model
	activePane    int // 0=left, 1=right
	leftCursor    int
	rightCursor   int
	width         int
	height        int
	ready         bool

	view            viewState
	detail          model.Record
	detailViewport  viewport.Model
	showDescription bool

	wantQuit bool
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailViewport.Width = m.width - 4
			m.detailViewport.Height = m.height - 4
			m.detailViewport.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m reviewModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		m.wantQuit = false
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		m.recalcContent()
		m.ensureCursorVisible()
		return m, nil
	case "enter":
		return m.openDetailView()
	}

	var cmd tea.Cmd
	if m.activePane == 0 {
		m.leftViewport, cmd = m.leftViewport.Update(msg)
	} else {
		m.rightViewport, cmd = m.rightViewport.Update(msg)
	}
	return m, cmd
}

func (m reviewModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		if u := applyLink(m.detail); u != "" {
			openURL(u)
		}
		return m, nil
	case "r":
		if m.detail.Get(model.FieldDescription) != "" {
			m.showDescription = !m.showDescription
			m.detailViewport.SetContent(m.renderDetail())
			m.detailViewport.SetYOffset(0)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.detailViewport, cmd = m.detailViewport.Update(msg)
	return m, cmd
}

func (m *reviewModel) moveCursor(delta int) {
	if m.activePane == 0 {
		m.leftCursor = clamp(m.leftCursor+delta, 0, max(len(m.allRecords)-1, 0))
	} else {
		m.rightCursor = clamp(m.rightCursor+delta, 0, max(len(m.matched)-1, 0))
	}
}

func (m *reviewModel) ensureCursorVisible() {
	vp, cursor := &m.leftViewport, m.leftCursor
	if m.activePane == 1 {
		vp, cursor = &m.rightViewport, m.rightCursor
	}

	top := cursor * recordItemHeight
	bottom := top + recordItemHeight - 1
	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m reviewModel) openDetailView() (tea.Model, tea.Cmd) {
	records, cursor := m.allRecords, m.leftCursor
	if m.activePane == 1 {
		records, cursor = m.matched, m.rightCursor
	}
	if len(records) == 0 {
		return m, nil
	}

	m.view = viewDetail
	m.detail = records[cursor]
	m.showDescription = false
	m.detailViewport = viewport.New(m.width-4, m.height-4)
	m.detailViewport.SetContent(m.renderDetail())
	return m, nil
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)
	// Header + border top/bottom + status bar.
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.leftViewport = viewport.New(paneWidth, paneHeight)
		m.rightViewport = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		m.leftViewport.Width = paneWidth
		m.leftViewport.Height = paneHeight
		m.rightViewport.Width = paneWidth
		m.rightViewport.Height = paneHeight
	}
	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	m.leftViewport.SetContent(renderRecords(m.allRecords, m.leftCursor, m.activePane == 0))
	m.rightViewport.SetContent(renderRecords(m.matched, m.rightCursor, m.activePane == 1))
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		return m.viewDetail()
	}
	return m.viewList()
}

func (m reviewModel) viewList() string {
	paneWidth := m.leftViewport.Width

	leftHeader := fmt.Sprintf(" %s · All Records (%d)", m.title, len(m.allRecords))
	rightHeader := fmt.Sprintf(" Matched Records (%d)", len(m.matched))

	leftHeaderSt, rightHeaderSt := activeHeaderStyle, inactiveHeaderStyle
	leftBorder, rightBorder := activeBorderStyle, inactiveBorderStyle
	if m.activePane == 1 {
		leftHeaderSt, rightHeaderSt = inactiveHeaderStyle, activeHeaderStyle
		leftBorder, rightBorder = inactiveBorderStyle, activeBorderStyle
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(paneWidth+2).Render(leftHeaderSt.Render(leftHeader)),
		" ",
		lipgloss.NewStyle().Width(paneWidth+2).Render(rightHeaderSt.Render(rightHeader)),
	)
	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftBorder.Width(paneWidth).Render(m.leftViewport.View()),
		" ",
		rightBorder.Width(paneWidth).Render(m.rightViewport.View()),
	)

	gapped := 0
	for _, r := range m.allRecords {
		if len(Gaps(r)) > 0 {
			gapped++
		}
	}
	statusText := fmt.Sprintf(" %d total | %d matched | %d with gaps    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		len(m.allRecords), len(m.matched), gapped)
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + panes + "\n" + statusBar
}

func (m reviewModel) viewDetail() string {
	title := detailTitleStyle.Render("Record Details")
	content := activeBorderStyle.Width(m.width - 2).Render(m.detailViewport.View())

	statusText := " o open URL  esc/backspace back  ↑/↓ scroll  q quit"
	if m.detail.Get(model.FieldDescription) != "" {
		statusText = " o open URL  r desc  esc/backspace back  ↑/↓ scroll  q quit"
	}
	statusBar := statusBarStyle.Width(m.width).Render(statusText)

	return title + "\n" + content + "\n" + statusBar
}

func (m reviewModel) renderDetail() string {
	return renderDetail(m.detail, m.showDescription, max(m.width-8, 20))
}

// renderDetail lists every non-empty column in schema order, then the gaps.
// The description is folded behind a hint unless showDescription is set.
func renderDetail(r model.Record, showDescription bool, wrapWidth int) string {
	var b strings.Builder
	schema := r.Schema()
	if schema == nil {
		return ""
	}
	for _, f := range schema.Fields() {
		v := r.Get(f)
		if v == "" || f == model.FieldDescription {
			continue
		}
		b.WriteString(detailLabelStyle.Render(f))
		b.WriteString(detailValueStyle.Render(v))
		b.WriteByte('\n')
	}

	if gaps := Gaps(r); len(gaps) > 0 {
		b.WriteByte('\n')
		b.WriteString(gapStyle.Render("missing: "+strings.Join(gaps, ", ")) + "\n")
	}

	desc := r.Get(model.FieldDescription)
	if desc == "" {
		return b.String()
	}
	b.WriteByte('\n')
	if showDescription {
		label := "── Description "
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		b.WriteString(descDividerStyle.Render(label+fill) + "\n\n")
		b.WriteString(descBodyStyle.Render(wordWrap(desc, wrapWidth)) + "\n")
	} else {
		b.WriteString(descHintStyle.Render("  press r to read the description") + "\n")
	}
	return b.String()
}

func renderRecords(records []model.Record, cursor int, isActive bool) string {
	if len(records) == 0 {
		return "  (no records)"
	}

	var b strings.Builder
	for i, r := range records {
		titleSt, subtitleSt := titleStyle, subtitleStyle
		prefix := "  "
		if isActive && i == cursor {
			titleSt, subtitleSt = selectedTitleStyle, selectedSubtitleStyle
			prefix = "> "
		}

		title := orNA(r.Get(model.FieldTitle))
		if company := r.Get(model.FieldCompany); company != "" {
			title += " · " + company
		}
		b.WriteString(prefix)
		b.WriteString(titleSt.Render(title))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s",
			orNA(r.Get(model.FieldLocation)), orNA(r.Get(model.FieldPostingDate)))))
		if n := len(Gaps(r)); n > 0 {
			b.WriteString(gapStyle.Render(fmt.Sprintf("  %d missing", n)))
		}
		b.WriteByte('\n')

		if i < len(records)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func applyLink(r model.Record) string {
	if u := r.Get(model.FieldApplyURL); u != "" {
		return u
	}
	return r.Get(model.FieldURL)
}

func orNA(s string) string {
	if s == "" {
		return "n/a"
	}
	return s
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunReviewTUI launches the split-pane review of records. The right pane
// holds the records filter accepts; filter may be nil.
// Returns wantQuit=true if the user pressed q/ctrl+c, false if they pressed
// esc to return to the picker.
func RunReviewTUI(title string, records []model.Record, filter model.RecordFilter) (bool, error) {
	all := slices.Clone(records)
	SortByPostingDate(all)

	m := reviewModel{
		title:      title,
		allRecords: all,
		matched:    Partition(all, filter),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	return result.(reviewModel).wantQuit, nil
}
