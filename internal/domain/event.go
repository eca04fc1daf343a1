package domain

import "time"

// Action names the cart mutation behind a change event.
type Action string

const (
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionUpdate Action = "update"
	ActionClear  Action = "clear"
)

// ChangeEvent is broadcast after a mutation. Delivery is coalesced: rapid
// mutations may collapse into the latest event of the window, so subscribers
// can rely on the final State but not on seeing every intermediate event.
type ChangeEvent struct {
	Action Action `json:"action"`
	// Item is the affected line, when any.
	Item *LineItem `json:"item,omitempty"`
	// PreviousQuantity holds the pre-mutation quantity for update actions.
	PreviousQuantity int       `json:"previousQuantity,omitempty"`
	State            CartState `json:"cartState"`
	At               time.Time `json:"timestamp"`
}
