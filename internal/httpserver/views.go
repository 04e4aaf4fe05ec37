// internal/httpserver/views.go
//
// Client-facing JSON shapes for sessions.
// Hidden tiles never expose their content, so the board cannot be read
// off the API.

package httpserver

import (
	"github.com/robalobadob/memory/server/internal/game"
	"github.com/robalobadob/memory/server/internal/palette"
)

// tileView is one tile as the browser sees it.
type tileView struct {
	Index   int            `json:"index"`
	Content string         `json:"content,omitempty"`
	Label   string         `json:"label,omitempty"`
	Icon    string         `json:"icon,omitempty"`
	State   game.TileState `json:"state"`
	Clicked bool           `json:"clicked"` // was ever revealed; hides the "?" placeholder
}

// gameView is the full render model for a session.
type gameView struct {
	GameID     string          `json:"gameId"`
	Mode       game.Mode       `json:"mode"`
	Difficulty game.Difficulty `json:"difficulty"`
	Daily      string          `json:"daily,omitempty"`
	Tiles      []tileView      `json:"tiles"`
	Pending    bool            `json:"pending"`
	game.Status
}

func buildGameView(sess *game.Session, snap game.Snapshot) gameView {
	tiles := make([]tileView, len(snap.Tiles))
	for i, t := range snap.Tiles {
		tv := tileView{Index: i, State: t.State, Clicked: t.WasEverRevealed}
		if t.State != game.TileHidden {
			tv.Content = t.Content
			if sym, ok := palette.Lookup(t.Content); ok {
				tv.Label, tv.Icon = sym.Label, sym.Icon
			}
		}
		tiles[i] = tv
	}
	return gameView{
		GameID:     snap.ID,
		Mode:       snap.Mode,
		Difficulty: snap.Difficulty,
		Daily:      sess.DailyDate,
		Tiles:      tiles,
		Pending:    snap.Pending,
		Status:     snap.Status,
	}
}

// flipRes is the response to a flip, over HTTP or WebSocket.
type flipRes struct {
	Accepted  bool     `json:"accepted"`
	Evaluated bool     `json:"evaluated"`
	Match     bool     `json:"match"`
	Game      gameView `json:"game"`
}
