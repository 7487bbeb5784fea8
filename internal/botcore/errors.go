package botcore

import (
	"errors"
	"fmt"
)

var (
	ErrPrivateOnly              = errors.New("command is available in private chat only")
	ErrUserExists               = errors.New("user already has a linked music service")
	ErrNoMusicService           = errors.New("no linked music service")
	ErrExpiredMusicServiceToken = errors.New("music service token expired")
	ErrNoTrack                  = errors.New("nothing is playing")
	ErrNoServiceSubscription    = errors.New("music service subscription required")
	errUnexpectedAction         = errors.New("unexpected action")
)

// NotSupportedError is returned by a backend for operations it cannot do.
type NotSupportedError struct {
	Service MusicServiceType
	Op      string
}

// Error implements error.
func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s: %s is not supported", e.Service, e.Op)
}

// ErrorKind is a recognized domain failure with a fixed user response.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindPrivateOnly
	KindNoMusicService
	KindExpiredToken
	KindNoTrack
	KindNoSubscription
)

// String returns the kind used in logs and metrics.
func (k ErrorKind) String() string {
	switch k {
	case KindPrivateOnly:
		return "private_only"
	case KindNoMusicService:
		return "no_music_service"
	case KindExpiredToken:
		return "expired_token"
	case KindNoTrack:
		return "no_track"
	case KindNoSubscription:
		return "no_subscription"
	default:
		return "unknown"
	}
}

// recognized is checked in order; the first match wins.
var recognized = []struct {
	err  error
	kind ErrorKind
}{
	{ErrPrivateOnly, KindPrivateOnly},
	{ErrNoMusicService, KindNoMusicService},
	{ErrExpiredMusicServiceToken, KindExpiredToken},
	{ErrNoTrack, KindNoTrack},
	{ErrNoServiceSubscription, KindNoSubscription},
}

// KindOf classifies err against the recognized domain errors.
func KindOf(err error) ErrorKind {
	for _, r := range recognized {
		if errors.Is(err, r.err) {
			return r.kind
		}
	}
	return KindUnknown
}
