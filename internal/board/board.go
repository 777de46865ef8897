// Package board holds the canonical columns/cards model and its mutations.
//
// Every mutation leaves the board consistent: ids stay unique, each card
// sits in exactly one column, and column and card order are preserved.
// Mutations that reference a column or card that is no longer present are
// silent no-ops.
package board

import (
	"strings"

	"github.com/gmllt/dtnboard/internal/ident"
)

// DefaultColumns are seeded on first run.
var DefaultColumns = []string{
	"devis à faire",
	"devis validé",
	"rdv programmé",
	"facture à envoyer",
}

type Card struct {
	ID        string   `json:"id"`
	Firstname string   `json:"firstname"`
	Lastname  string   `json:"lastname"`
	Phone     string   `json:"phone,omitempty"`
	Email     string   `json:"email,omitempty"`
	Address   string   `json:"address,omitempty"`
	Notes     string   `json:"notes,omitempty"`
	Category  Category `json:"category"`
	Date      string   `json:"date,omitempty"` // YYYY-MM-DD
}

type Column struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Cards []Card `json:"cards"`
}

type Board struct {
	Columns []Column `json:"columns"`

	newID ident.Generator
}

// Fields is the editable part of a card as submitted by the form.
type Fields struct {
	Firstname      string
	Lastname       string
	Phone          string
	Email          string
	Address        string
	Date           string
	Notes          string
	Category       string
	CustomCategory string
}

// New returns an empty board using gen for ids. A nil gen uses ident.New.
func New(gen ident.Generator) *Board {
	return &Board{Columns: []Column{}, newID: gen}
}

// Default returns a board with the seeded columns.
func Default(gen ident.Generator) *Board {
	b := New(gen)
	for _, title := range DefaultColumns {
		b.AddColumn(title)
	}
	return b
}

// SetGenerator replaces the id generator, e.g. after decoding.
func (b *Board) SetGenerator(gen ident.Generator) {
	b.newID = gen
}

func (b *Board) id() string {
	if b.newID == nil {
		return ident.New()
	}
	return b.newID()
}

func (b *Board) columnIndex(id string) int {
	for i := range b.Columns {
		if b.Columns[i].ID == id {
			return i
		}
	}
	return -1
}

func findCardIndex(cards []Card, id string) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Column returns the column with the given id.
func (b *Board) Column(id string) (*Column, bool) {
	i := b.columnIndex(id)
	if i < 0 {
		return nil, false
	}
	return &b.Columns[i], true
}

// FindCard returns the card cardID held by columnID.
func (b *Board) FindCard(columnID, cardID string) (*Card, bool) {
	col, ok := b.Column(columnID)
	if !ok {
		return nil, false
	}
	i := findCardIndex(col.Cards, cardID)
	if i < 0 {
		return nil, false
	}
	return &col.Cards[i], true
}

// CardCount is the number of cards across all columns.
func (b *Board) CardCount() int {
	n := 0
	for _, c := range b.Columns {
		n += len(c.Cards)
	}
	return n
}

// Clone returns a deep copy sharing the id generator.
func (b *Board) Clone() *Board {
	out := &Board{Columns: make([]Column, len(b.Columns)), newID: b.newID}
	for i, c := range b.Columns {
		c.Cards = append([]Card(nil), c.Cards...)
		if c.Cards == nil {
			c.Cards = []Card{}
		}
		out.Columns[i] = c
	}
	return out
}

// AddColumn appends an empty column. Blank titles are rejected.
func (b *Board) AddColumn(title string) (*Column, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, false
	}
	b.Columns = append(b.Columns, Column{ID: b.id(), Title: title, Cards: []Card{}})
	return &b.Columns[len(b.Columns)-1], true
}

// RenameColumn keeps the previous title when newTitle is blank.
func (b *Board) RenameColumn(columnID, newTitle string) bool {
	col, ok := b.Column(columnID)
	if !ok {
		return false
	}
	newTitle = strings.TrimSpace(newTitle)
	if newTitle == "" || newTitle == col.Title {
		return false
	}
	col.Title = newTitle
	return true
}

// DeleteColumn removes the column together with its cards.
func (b *Board) DeleteColumn(columnID string) bool {
	i := b.columnIndex(columnID)
	if i < 0 {
		return false
	}
	b.Columns = append(b.Columns[:i], b.Columns[i+1:]...)
	return true
}

func (f Fields) apply(c *Card) {
	c.Firstname = strings.TrimSpace(f.Firstname)
	c.Lastname = strings.TrimSpace(f.Lastname)
	c.Phone = strings.TrimSpace(f.Phone)
	c.Email = strings.TrimSpace(f.Email)
	c.Address = strings.TrimSpace(f.Address)
	c.Notes = strings.TrimSpace(f.Notes)
	c.Category = ResolveCategory(f.Category, f.CustomCategory)
	c.Date = f.Date
}

// AddCard creates a card at the bottom of columnID, or of the first
// column when columnID is empty.
func (b *Board) AddCard(columnID string, f Fields) (*Card, bool) {
	if columnID == "" {
		if len(b.Columns) == 0 {
			return nil, false
		}
		columnID = b.Columns[0].ID
	}
	col, ok := b.Column(columnID)
	if !ok {
		return nil, false
	}
	card := Card{ID: b.id()}
	f.apply(&card)
	col.Cards = append(col.Cards, card)
	return &col.Cards[len(col.Cards)-1], true
}

// EditCard overwrites the editable fields, keeping id and column.
func (b *Board) EditCard(columnID, cardID string, f Fields) bool {
	card, ok := b.FindCard(columnID, cardID)
	if !ok {
		return false
	}
	f.apply(card)
	return true
}

func (b *Board) DeleteCard(columnID, cardID string) bool {
	col, ok := b.Column(columnID)
	if !ok {
		return false
	}
	i := findCardIndex(col.Cards, cardID)
	if i < 0 {
		return false
	}
	col.Cards = append(col.Cards[:i], col.Cards[i+1:]...)
	return true
}

// MoveCard transfers a card to the bottom of another column. Moving within
// the same column does nothing.
func (b *Board) MoveCard(fromColumnID, toColumnID, cardID string) bool {
	if fromColumnID == toColumnID {
		return false
	}
	from, ok := b.Column(fromColumnID)
	if !ok {
		return false
	}
	to, ok := b.Column(toColumnID)
	if !ok {
		return false
	}
	i := findCardIndex(from.Cards, cardID)
	if i < 0 {
		return false
	}
	card := from.Cards[i]
	from.Cards = append(from.Cards[:i], from.Cards[i+1:]...)
	to.Cards = append(to.Cards, card)
	return true
}
