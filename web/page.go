package web

import (
	"bytes"
	"embed"
	"html/template"

	football "football-live-tracker"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type indexPage struct {
	Competition string
	Board       football.Board
}

// renderBoard renders the fragment the page swaps in on every websocket push.
func renderBoard(board football.Board) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "board", board); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderIndex(competition string, board football.Board) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "index", indexPage{Competition: competition, Board: board}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
