package music

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt"

	"nowplaying-bot/internal/botcore"
)

const stateTTL = 15 * time.Minute

// ErrInvalidState rejects OAuth callbacks that were not started by the bot,
// target another service or came too late.
var ErrInvalidState = errors.New("invalid oauth state")

type stateClaims struct {
	Platform string                   `json:"plt"`
	UserID   string                   `json:"uid"`
	Service  botcore.MusicServiceType `json:"svc"`
	jwt.StandardClaims
}

func (s *Service) signState(service botcore.MusicServiceType, account botcore.Account) (string, error) {
	now := time.Now()
	claims := stateClaims{
		Platform: account.Platform,
		UserID:   account.UserID,
		Service:  service,
		StandardClaims: jwt.StandardClaims{
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(stateTTL).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Service) parseState(state string, service botcore.MusicServiceType) (botcore.Account, error) {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return botcore.Account{}, fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Service != service {
		return botcore.Account{}, fmt.Errorf("%w: issued for %s", ErrInvalidState, claims.Service)
	}
	if claims.Platform == "" || claims.UserID == "" {
		return botcore.Account{}, fmt.Errorf("%w: no account", ErrInvalidState)
	}
	return botcore.Account{Platform: claims.Platform, UserID: claims.UserID}, nil
}
