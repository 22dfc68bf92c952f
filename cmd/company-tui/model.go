package main

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vitos/company_page/internal/domain"
	"github.com/vitos/company_page/internal/usecase"
)

// Styles.
var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	gainStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(string(domain.FillColorGain)))
	lossStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(string(domain.FillColorLoss)))
	priceStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("6"))
	inputStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	sidebarStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
)

var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// Messages.
type tickMsg time.Time
type stateMsg usecase.PageState
type closedMsg struct{}
type errMsg struct{ err error }

type newsMsg struct {
	symbol   string
	articles []domain.NewsArticle
	err      error
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForState(updates <-chan usecase.PageState) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return stateMsg(st)
	}
}

// Model.
type model struct {
	pages     *usecase.PageService
	news      domain.NewsProvider
	newsLimit int
	pageID    string
	updates   <-chan usecase.PageState

	state      usecase.PageState
	articles   []domain.NewsArticle
	newsSymbol string
	now        time.Time
	err        error

	editing bool
	input   string

	width, height int
}

func newModel(pages *usecase.PageService, news domain.NewsProvider, newsLimit int, initial usecase.PageState, updates <-chan usecase.PageState) model {
	return model{
		pages:     pages,
		news:      news,
		newsLimit: newsLimit,
		pageID:    initial.PageID,
		updates:   updates,
		state:     initial,
		now:       time.Now(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), waitForState(m.updates))
}

func (m model) loadNews(symbol string) tea.Cmd {
	if m.news == nil || symbol == "" {
		return nil
	}
	news, limit := m.news, m.newsLimit
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		articles, err := news.GetNews(ctx, symbol, limit)
		return newsMsg{symbol: symbol, articles: articles, err: err}
	}
}

func (m model) changeSymbol(symbol string) tea.Cmd {
	pages, id := m.pages, m.pageID
	return func() tea.Msg {
		if _, err := pages.ChangeSymbol(context.Background(), id, symbol); err != nil {
			return errMsg{err}
		}
		return nil
	}
}

func (m model) symbol() string {
	if m.state.Company == nil {
		return ""
	}
	return m.state.Company.Symbol
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.editing {
			return m.updateInput(msg)
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "/", "s":
			m.editing = true
			m.input = ""
		case "r":
			return m, m.loadNews(m.symbol())
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		m.now = time.Time(msg)
		return m, tickCmd()

	case stateMsg:
		prev := m.symbol()
		m.state = usecase.PageState(msg)
		cmds := []tea.Cmd{waitForState(m.updates)}
		if sym := m.symbol(); sym != prev || m.newsSymbol == "" {
			m.newsSymbol = sym
			m.articles = nil
			cmds = append(cmds, m.loadNews(sym))
		}
		return m, tea.Batch(cmds...)

	case newsMsg:
		if msg.symbol != m.symbol() {
			return m, nil
		}
		m.articles, m.err = msg.articles, msg.err
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case closedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		m.input = ""
	case tea.KeyEnter:
		m.editing = false
		symbol := strings.ToUpper(strings.TrimSpace(m.input))
		m.input = ""
		if symbol != "" {
			m.err = nil
			return m, m.changeSymbol(symbol)
		}
	case tea.KeyBackspace:
		if len(m.input) > 0 {
			m.input = m.input[:len(m.input)-1]
		}
	case tea.KeyRunes:
		m.input += string(msg.Runes)
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	return m, nil
}

func (m model) View() string {
	view := usecase.Present(m.state)
	vis := m.state.Visibility
	var b strings.Builder

	// Header
	if vis.CompanyName {
		name := view.Name
		if name == "" {
			name = view.Symbol
		}
		b.WriteString(titleStyle.Render(name) + " " + dimStyle.Render(view.Symbol) + "\n")
	}
	if vis.Price && view.PriceText != "" {
		b.WriteString(priceStyle.Render(view.PriceText))
	} else {
		b.WriteString(dimStyle.Render("loading price..."))
	}
	if vis.PriceChange && m.state.View != nil {
		b.WriteString("  " + changeStyle(*m.state.View).Render(view.ChangeText) + " " + labelStyle.Render("Today"))
	}
	b.WriteString("\n\n")

	// Chart
	if vis.Chart {
		b.WriteString(m.renderChart() + "\n\n")
	} else {
		b.WriteString(dimStyle.Render("loading chart...") + "\n\n")
	}

	body := b.String()
	if vis.Sidebar {
		sidebar := sidebarStyle.Render(labelStyle.Render("Buying Power") + "\n" + priceStyle.Render(view.BuyingPowerText))
		if m.state.Layout == domain.LayoutCompact {
			body += sidebar + "\n"
		} else {
			body = lipgloss.JoinHorizontal(lipgloss.Top, body, "  ", sidebar) + "\n"
		}
	}

	var rest strings.Builder
	if vis.About {
		rest.WriteString(sectionStyle.Render(" About ") + "\n")
		if view.Description != "" {
			rest.WriteString(view.Description + "\n")
		}
		for _, f := range view.Facts {
			rest.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render(fmt.Sprintf("%-22s", f.Label)), f.Value))
		}
		rest.WriteString("\n")
	}
	if vis.Newsfeed && m.news != nil {
		rest.WriteString(sectionStyle.Render(" News ") + "\n")
		if len(m.articles) == 0 {
			rest.WriteString(dimStyle.Render("no news") + "\n")
		}
		for _, a := range m.articles {
			rest.WriteString(fmt.Sprintf("%s %s\n", dimStyle.Render(a.Source), a.Headline))
		}
		rest.WriteString("\n")
	}

	footer := dimStyle.Render(m.now.Format("15:04:05") + "  [/] symbol  [r] reload news  [q] quit")
	if m.editing {
		footer = inputStyle.Render("symbol: " + m.input + "█")
	}
	if m.err != nil {
		footer = lossStyle.Render("error: "+m.err.Error()) + "\n" + footer
	}
	return body + rest.String() + footer + "\n"
}

func changeStyle(v domain.DerivedViewModel) lipgloss.Style {
	if v.IsPositive {
		return gainStyle
	}
	return lossStyle
}

// renderChart draws the intraday series as a sparkline in minute order.
func (m model) renderChart() string {
	series := m.state.Intraday
	if len(series) == 0 {
		return dimStyle.Render("no intraday data")
	}
	keys := make([]string, 0, len(series))
	for k := range series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	width := m.width - 30
	if width < 20 {
		width = 60
	}
	if len(keys) > width {
		keys = keys[len(keys)-width:]
	}

	lo, hi := series[keys[0]], series[keys[0]]
	for _, k := range keys {
		lo = min(lo, series[k])
		hi = max(hi, series[k])
	}

	var b strings.Builder
	for _, k := range keys {
		idx := 0
		if hi > lo {
			idx = int((series[k] - lo) / (hi - lo) * float64(len(sparkRunes)-1))
		}
		b.WriteRune(sparkRunes[idx])
	}
	style := gainStyle
	if m.state.View != nil {
		style = changeStyle(*m.state.View)
	}
	return style.Render(b.String()) + "\n" + dimStyle.Render(fmt.Sprintf("%s .. %s", keys[0], keys[len(keys)-1]))
}
