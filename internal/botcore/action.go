package botcore

import (
	"fmt"
	"strings"
)

// ActionKind tags the callback data of an inline button.
type ActionKind string

const (
	ActionPlay       ActionKind = "PLAY"
	ActionQueue      ActionKind = "ADD_TO_QUEUE"
	ActionFavorite   ActionKind = "ADD_TO_FAVORITE"
	ActionPrevious   ActionKind = "PREVIOUS"
	ActionNext       ActionKind = "NEXT"
	ActionTogglePlay ActionKind = "TOGGLE_PLAY"
)

const actionSeparator = "|"

var actionKinds = map[ActionKind]struct{}{
	ActionPlay:       {},
	ActionQueue:      {},
	ActionFavorite:   {},
	ActionPrevious:   {},
	ActionNext:       {},
	ActionTogglePlay: {},
}

// Action is the parsed form of callback data: KIND|service|id. The id is
// everything after the second separator, so it may contain ':' or '|'.
type Action struct {
	Kind    ActionKind
	Service MusicServiceType
	ID      string
}

// Encode renders the action as a callback payload.
func (a Action) Encode() string {
	return string(a.Kind) + actionSeparator + string(a.Service) + actionSeparator + a.ID
}

// ParseAction decodes a payload produced by Encode.
func ParseAction(data string) (Action, error) {
	parts := strings.SplitN(data, actionSeparator, 3)
	if len(parts) != 3 {
		return Action{}, fmt.Errorf("parse action %q: want KIND|service|id", data)
	}
	kind := ActionKind(parts[0])
	if _, ok := actionKinds[kind]; !ok {
		return Action{}, fmt.Errorf("parse action %q: unknown kind", data)
	}
	return Action{Kind: kind, Service: MusicServiceType(parts[1]), ID: parts[2]}, nil
}

// parseActionOf parses data and requires the given kind.
func parseActionOf(data string, kind ActionKind) (Action, error) {
	a, err := ParseAction(data)
	if err != nil {
		return Action{}, err
	}
	if a.Kind != kind {
		return Action{}, fmt.Errorf("%w: got %s, want %s", errUnexpectedAction, a.Kind, kind)
	}
	return a, nil
}
