// Package form holds the card form field set and the read-only card view
// used by the drawer and the modal.
package form

import (
	"net/url"
	"strings"

	"github.com/gmllt/dtnboard/internal/board"
	"github.com/gmllt/dtnboard/internal/render"
)

// Values is the field set the card form submits and is filled with.
type Values struct {
	Column         string `json:"column"`
	Card           string `json:"card"`
	Firstname      string `json:"firstname"`
	Lastname       string `json:"lastname"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	Address        string `json:"address"`
	Date           string `json:"date"`
	Notes          string `json:"notes"`
	Category       string `json:"category"`
	CustomCategory string `json:"customCategory"`
}

// Parse reads the submitted form.
func Parse(v url.Values) Values {
	return Values{
		Column:         v.Get("column"),
		Card:           v.Get("card"),
		Firstname:      v.Get("firstname"),
		Lastname:       v.Get("lastname"),
		Phone:          v.Get("phone"),
		Email:          v.Get("email"),
		Address:        v.Get("address"),
		Date:           v.Get("date"),
		Notes:          v.Get("notes"),
		Category:       v.Get("category"),
		CustomCategory: v.Get("customCategory"),
	}
}

func (v Values) Fields() board.Fields {
	return board.Fields{
		Firstname:      v.Firstname,
		Lastname:       v.Lastname,
		Phone:          v.Phone,
		Email:          v.Email,
		Address:        v.Address,
		Date:           v.Date,
		Notes:          v.Notes,
		Category:       v.Category,
		CustomCategory: v.CustomCategory,
	}
}

// OpenCreate returns an empty form targeting columnID ("" = first column).
func OpenCreate(columnID string) Values {
	return Values{Column: columnID, Category: board.Known[0]}
}

// OpenEdit fills the form from an existing card. A category outside the
// known set selects Other and goes into CustomCategory.
func OpenEdit(b *board.Board, columnID, cardID string) (Values, bool) {
	c, ok := b.FindCard(columnID, cardID)
	if !ok {
		return Values{}, false
	}
	v := Values{
		Column:    columnID,
		Card:      cardID,
		Firstname: c.Firstname,
		Lastname:  c.Lastname,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		Date:      c.Date,
		Notes:     c.Notes,
		Category:  c.Category.String(),
	}
	if c.Category.IsCustom() || c.Category.String() == "" {
		v.Category = board.Other
		v.CustomCategory = c.Category.String()
	}
	return v, true
}

// Detail is the read-only projection shown in the card modal.
type Detail struct {
	Column   string `json:"column"`
	Card     string `json:"card"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Address  string `json:"address"`
	Date     string `json:"date"`
	Notes    string `json:"notes"`
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func NewDetail(columnID string, c board.Card) Detail {
	return Detail{
		Column:   columnID,
		Card:     c.ID,
		Title:    strings.TrimSpace(c.Firstname + " " + strings.ToUpper(c.Lastname)),
		Category: orDash(c.Category.String()),
		Phone:    orDash(c.Phone),
		Email:    orDash(c.Email),
		Address:  orDash(c.Address),
		Date:     orDash(render.FormatDate(c.Date)),
		Notes:    orDash(c.Notes),
	}
}
