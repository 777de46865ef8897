// Package dnd implements the drag-and-drop transfer between columns.
//
// A drag carries an Intent naming the card and the column it was picked up
// from. The intent crosses the client boundary as a JSON string and is
// decoded again when a column's drop zone receives it.
package dnd

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MIMEType is the data transfer type the client attaches the payload under.
const MIMEType = "text/plain"

var (
	ErrEmptyPayload  = errors.New("dnd: empty payload")
	ErrInvalidIntent = errors.New("dnd: intent needs a column and a card")
	ErrNotDragging   = errors.New("dnd: no drag in progress")
)

type Intent struct {
	FromColumnID string `json:"fromColumnId"`
	CardID       string `json:"cardId"`
}

func (i Intent) Valid() bool {
	return i.FromColumnID != "" && i.CardID != ""
}

// Encode renders the intent as the drag payload.
func (i Intent) Encode() (string, error) {
	if !i.Valid() {
		return "", ErrInvalidIntent
	}
	data, err := json.Marshal(i)
	if err != nil {
		return "", fmt.Errorf("dnd: encode intent: %w", err)
	}
	return string(data), nil
}

// Decode parses a drag payload.
func Decode(payload string) (Intent, error) {
	if payload == "" {
		return Intent{}, ErrEmptyPayload
	}
	var i Intent
	if err := json.Unmarshal([]byte(payload), &i); err != nil {
		return Intent{}, fmt.Errorf("dnd: decode intent: %w", err)
	}
	if !i.Valid() {
		return Intent{}, ErrInvalidIntent
	}
	return i, nil
}
