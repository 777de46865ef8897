package render

import (
	"strings"
	"time"

	"github.com/gmllt/dtnboard/internal/board"
	"github.com/gmllt/dtnboard/internal/dnd"
)

// Handler binds a client event on an element to a named action.
type Handler struct {
	Event  string
	Action string
}

type Handlers []Handler

// String is the form the client reads back from data-actions attributes.
func (h Handlers) String() string {
	parts := make([]string, len(h))
	for i, x := range h {
		parts[i] = x.Event + ":" + x.Action
	}
	return strings.Join(parts, " ")
}

func (h Handlers) Has(event, action string) bool {
	for _, x := range h {
		if x.Event == event && x.Action == action {
			return true
		}
	}
	return false
}

type CardNode struct {
	ID        string
	ColumnID  string
	Firstname string
	Lastname  string // upper-cased for display
	Category  string
	Date      string // DD/MM/YYYY, or the raw value when unparsable
	Payload   string // drag payload
	On        map[string]Handlers
}

type ColumnNode struct {
	ID    string
	Title string
	Cards []CardNode
	On    map[string]Handlers
}

// Tree is the UI tree for one board state. A new tree is built for every
// render; nothing is carried over from the previous one.
type Tree struct {
	Columns []ColumnNode
}

// FormatDate renders a YYYY-MM-DD date the way the board displays it.
func FormatDate(s string) string {
	if s == "" {
		return ""
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t.Format("02/01/2006")
}

// Build projects the board into a fresh tree without handlers.
func Build(b *board.Board) *Tree {
	t := &Tree{Columns: make([]ColumnNode, 0, len(b.Columns))}
	for _, col := range b.Columns {
		cn := ColumnNode{ID: col.ID, Title: col.Title, Cards: make([]CardNode, 0, len(col.Cards))}
		for _, c := range col.Cards {
			cn.Cards = append(cn.Cards, CardNode{
				ID:        c.ID,
				ColumnID:  col.ID,
				Firstname: c.Firstname,
				Lastname:  strings.ToUpper(c.Lastname),
				Category:  c.Category.String(),
				Date:      FormatDate(c.Date),
			})
		}
		t.Columns = append(t.Columns, cn)
	}
	return t
}

// Bind attaches the interaction handlers to every node of t.
func Bind(t *Tree) {
	for i := range t.Columns {
		col := &t.Columns[i]
		col.On = map[string]Handlers{
			"menu":        {{"click", "toggle-menu"}},
			"rename":      {{"click", "rename-column"}, {"blur", "commit-rename"}},
			"rename-menu": {{"click", "rename-column"}}, // no blur: it would commit the button label
			"delete":      {{"click", "delete-column"}},
			"add":         {{"click", "open-create"}},
			// dragover must be accepted or the drop is rejected
			"zone": {{"dragover", "accept"}, {"drop", "drop"}},
		}
		for j := range col.Cards {
			card := &col.Cards[j]
			// ids always come from the board, so Encode cannot fail here
			card.Payload, _ = dnd.Intent{FromColumnID: card.ColumnID, CardID: card.ID}.Encode()
			card.On = map[string]Handlers{
				"card":   {{"dragstart", "drag"}, {"dragend", "end-drag"}},
				"name":   {{"click", "open-card"}},
				"menu":   {{"click", "toggle-menu"}},
				"open":   {{"click", "open-card"}},
				"edit":   {{"click", "open-edit"}},
				"delete": {{"click", "delete-card"}},
			}
		}
	}
}
