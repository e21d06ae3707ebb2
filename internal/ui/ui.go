package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/brettbeeson/notsolong/internal/api"
	"github.com/brettbeeson/notsolong/internal/auth"
	"github.com/brettbeeson/notsolong/internal/feed"
	"github.com/brettbeeson/notsolong/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	TitleView ViewState = iota
	CategoryView
)

// Model represents the TUI application state: a title being read, the recap
// cursor within it, and the category picker.
type Model struct {
	ctx        context.Context
	view       ViewState
	controller *feed.Controller
	session    *auth.Manager
	client     *api.Client

	width  int
	height int

	bundle       *api.TitleBundle
	recapIndex   int
	categoryList list.Model
	status       string
	loading      bool
	err          error

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, controller *feed.Controller, session *auth.Manager, client *api.Client) *Model {
	categories := list.New(categoryItems(), list.NewDefaultDelegate(), 0, 0)
	categories.Title = "Categories"

	return &Model{
		ctx:          ctx,
		view:         TitleView,
		controller:   controller,
		session:      session,
		client:       client,
		categoryList: categories,
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Init starts the feed with a fresh random title.
func (m *Model) Init() tea.Cmd {
	m.loading = true
	return m.restartFeed()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.categoryList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case TitleView:
			return m.handleTitleKeys(msg)
		case CategoryView:
			return m.handleCategoryKeys(msg)
		}

	case Msg:
		return m.handleFeedMsg(msg)
	}

	return m, nil
}

func (m *Model) handleFeedMsg(msg Msg) (tea.Model, tea.Cmd) {
	m.loading = false

	switch msg.kind {
	case MsgBundleLoaded, MsgVoteApplied:
		if bundle, ok := msg.data.(*api.TitleBundle); ok && bundle != nil {
			m.bundle = bundle
			if msg.kind == MsgBundleLoaded {
				m.recapIndex = 0
			}
			m.status = ""
			m.err = nil
		}
		return m, nil

	case MsgNothingAhead:
		m.status = "No more unseen titles right now."
		return m, nil

	case MsgFeedError:
		err, _ := msg.data.(error)
		switch {
		case errors.Is(err, shared.ErrNavigationBusy):
			// A double-tap during a fetch or its cooldown; drop it.
		case errors.Is(err, shared.ErrNoTitles):
			m.bundle = nil
			m.status = fmt.Sprintf("No titles in %s. Add one with `nsl titles add`.", m.categoryLabel())
		default:
			m.status = api.ErrorMessage(err, "Something went wrong")
		}
		return m, nil
	}

	return m, nil
}

func (m *Model) handleTitleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "n", "right", "l":
		m.loading = true
		return m, m.nextTitle()
	case "b", "left", "h":
		m.loading = true
		return m, m.previousTitle()
	case "r":
		m.loading = true
		return m, m.restartFeed()
	case "c":
		m.view = CategoryView
		return m, nil
	case "down", "j":
		if m.bundle != nil && m.recapIndex < len(m.bundle.Recaps())-1 {
			m.recapIndex++
		}
		return m, nil
	case "up", "k":
		if m.recapIndex > 0 {
			m.recapIndex--
		}
		return m, nil
	case "+", "u":
		return m, m.vote(1)
	case "-", "d":
		return m, m.vote(-1)
	}

	return m, nil
}

func (m *Model) handleCategoryKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = TitleView
		return m, nil
	case "enter":
		selected := m.categoryList.SelectedItem()
		if item, ok := selected.(categoryItem); ok {
			m.controller.SetCategory(item.category)
			m.view = TitleView
			m.loading = true
			return m, m.restartFeed()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.categoryList, cmd = m.categoryList.Update(msg)
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case CategoryView:
		return m.categoryList.View()
	default:
		return m.renderTitle()
	}
}

func (m *Model) renderTitle() string {
	var b strings.Builder

	if m.loading {
		b.WriteString(styles.warn.Render("Loading..."))
		b.WriteString("\n")
	}

	if m.bundle == nil {
		if m.status != "" {
			b.WriteString(styles.warn.Render(m.status))
		} else {
			b.WriteString(styles.help.Render("Nothing loaded yet."))
		}
		b.WriteString("\n\n")
		b.WriteString(m.help.View(m.keys))
		return b.String()
	}

	heading := m.bundle.Title.Name
	if m.bundle.Title.Author != "" {
		heading += " — " + m.bundle.Title.Author
	}
	b.WriteString(styles.title.Render(heading))
	b.WriteString("\n")
	b.WriteString(styles.help.Render(fmt.Sprintf("[%s]", m.categoryTag())))
	b.WriteString("\n\n")

	recaps := m.bundle.Recaps()
	if len(recaps) == 0 {
		b.WriteString(styles.warn.Render("No recaps yet. Add one with `nsl recaps add`."))
		b.WriteString("\n")
	} else {
		if m.recapIndex >= len(recaps) {
			m.recapIndex = len(recaps) - 1
		}
		recap := recaps[m.recapIndex]
		b.WriteString(styles.recap.Render(strings.TrimSpace(recap.Text)))
		b.WriteString("\n\n")

		attribution := "anonymous"
		if recap.User != nil && recap.User.Username != "" {
			attribution = recap.User.Username
		}
		vote := m.controller.DisplayVote(&recap)
		voteTag := ""
		switch vote {
		case 1:
			voteTag = styles.ok.Render(" ▲")
		case -1:
			voteTag = styles.err.Render(" ▼")
		}
		b.WriteString(styles.author.Render(fmt.Sprintf("— %s, score %+d%s", attribution, recap.Score, voteTag)))
		b.WriteString("\n")
		b.WriteString(styles.help.Render(fmt.Sprintf("recap %d/%d", m.recapIndex+1, len(recaps))))
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(styles.warn.Render(m.status))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) categoryTag() string {
	if c := m.controller.Category(); c != "" {
		return string(c)
	}
	return "all"
}

func (m *Model) categoryLabel() string {
	if c := m.controller.Category(); c != "" {
		return "category " + string(c)
	}
	return "any category"
}

// nextTitle advances the feed off the UI goroutine.
func (m *Model) nextTitle() tea.Cmd {
	return func() tea.Msg {
		bundle, err := m.controller.Next(m.ctx)
		if err != nil {
			return feedErrorMsg(err)
		}
		if bundle == nil {
			return nothingAheadMsg()
		}
		return bundleLoadedMsg(bundle)
	}
}

func (m *Model) previousTitle() tea.Cmd {
	return func() tea.Msg {
		bundle, err := m.controller.Back(m.ctx)
		if err != nil {
			return feedErrorMsg(err)
		}
		if bundle == nil {
			return nothingAheadMsg()
		}
		return bundleLoadedMsg(bundle)
	}
}

func (m *Model) restartFeed() tea.Cmd {
	return func() tea.Msg {
		bundle, err := m.controller.Restart(m.ctx)
		if err != nil {
			return feedErrorMsg(err)
		}
		if bundle == nil {
			return nothingAheadMsg()
		}
		return bundleLoadedMsg(bundle)
	}
}

// vote casts a vote on the active recap. Requires a signed-in session.
func (m *Model) vote(value int) tea.Cmd {
	if m.bundle == nil {
		return nil
	}
	recaps := m.bundle.Recaps()
	if len(recaps) == 0 {
		return nil
	}
	if !m.session.Authenticated() {
		m.status = "Sign in first: nsl auth login"
		return nil
	}

	recap := recaps[m.recapIndex]
	return func() tea.Msg {
		if _, err := m.client.VoteRecap(m.ctx, recap.ID, value); err != nil {
			return feedErrorMsg(err)
		}
		m.controller.SetLocalVote(recap.ID, value)
		bundle, err := m.controller.Reload(m.ctx)
		if err != nil {
			return feedErrorMsg(err)
		}
		return voteAppliedMsg(bundle)
	}
}
