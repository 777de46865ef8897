package dnd

import "fmt"

type State int

const (
	Idle State = iota
	Dragging
	Dropped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Dropped:
		return "dropped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Mover is the board operation a drop delegates to.
type Mover interface {
	MoveCard(fromColumnID, toColumnID, cardID string) bool
}

// Tracker follows one drag gesture: Idle -> Dragging -> Dropped -> Idle.
// The zero value is Idle.
type Tracker struct {
	state   State
	payload string
}

func (t *Tracker) State() State { return t.state }

// Start picks a card up and returns the payload to attach to the drag.
func (t *Tracker) Start(i Intent) (string, error) {
	payload, err := i.Encode()
	if err != nil {
		return "", err
	}
	t.state = Dragging
	t.payload = payload
	return payload, nil
}

// Cancel ends a drag released outside every drop zone.
func (t *Tracker) Cancel() {
	t.state = Idle
	t.payload = ""
}

// Drop delivers payload to the zone of toColumnID. An empty payload
// reuses the one from Start. The tracker returns to Idle once the move has
// been handed to m, whether or not it changed the board.
func (t *Tracker) Drop(toColumnID, payload string, m Mover) (bool, error) {
	if payload == "" {
		if t.state != Dragging {
			return false, ErrNotDragging
		}
		payload = t.payload
	}
	defer t.Cancel()

	i, err := Decode(payload)
	if err != nil {
		return false, err
	}
	t.state = Dropped
	return m.MoveCard(i.FromColumnID, toColumnID, i.CardID), nil
}
