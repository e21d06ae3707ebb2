package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/brettbeeson/notsolong/internal/api"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgBundleLoaded MsgKind = iota
	MsgNothingAhead
	MsgVoteApplied
	MsgFeedError
)

// bundleLoadedMsg is the constructor for [MsgBundleLoaded]
func bundleLoadedMsg(bundle *api.TitleBundle) Msg {
	return Msg{kind: MsgBundleLoaded, data: bundle}
}

// nothingAheadMsg is the constructor for [MsgNothingAhead]: the navigation
// completed but nothing changed (forward history exhausted or a busy
// trigger was dropped).
func nothingAheadMsg() Msg {
	return Msg{kind: MsgNothingAhead}
}

// voteAppliedMsg is the constructor for [MsgVoteApplied]
func voteAppliedMsg(bundle *api.TitleBundle) Msg {
	return Msg{kind: MsgVoteApplied, data: bundle}
}

// feedErrorMsg is the constructor for [MsgFeedError]
func feedErrorMsg(err error) Msg {
	return Msg{kind: MsgFeedError, data: err}
}
