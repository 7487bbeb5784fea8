package web

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"nowplaying-bot/internal/botcore"
	"nowplaying-bot/internal/services/music"
)

const (
	defaultSharesLimit = 20
	maxSharesLimit     = 100
)

// TokenExchanger completes an OAuth flow started from a chat.
type TokenExchanger interface {
	CreateAndSaveTokens(ctx context.Context, service botcore.MusicServiceType, code, state string) (botcore.Account, error)
}

// ShareLister reads share history.
type ShareLister interface {
	Recent(ctx context.Context, chatID string, limit int) ([]botcore.HistoryEntry, error)
	Latest(ctx context.Context, limit int) ([]botcore.HistoryEntry, error)
}

type sharesResponse struct {
	Shares []botcore.HistoryEntry `json:"shares"`
}

// Health answers liveness checks.
func Health() echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}
}

// OAuthCallback links the music account named by the state parameter.
func OAuthCallback(tokens TokenExchanger, logger *zap.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		service := botcore.MusicServiceType(c.Param("service"))
		if reason := c.QueryParam("error"); reason != "" {
			logger.Info("oauth linking cancelled", zap.String("service", string(service)), zap.String("reason", reason))
			return c.String(http.StatusOK, "Linking was cancelled. You can start again from the chat with /start.")
		}
		code, state := c.QueryParam("code"), c.QueryParam("state")
		if code == "" || state == "" {
			return echo.NewHTTPError(http.StatusBadRequest, "code and state are required")
		}

		account, err := tokens.CreateAndSaveTokens(c.Request().Context(), service, code, state)
		switch {
		case errors.Is(err, music.ErrInvalidState):
			return echo.NewHTTPError(http.StatusBadRequest, "this link is invalid or expired, request a new one with /start")
		case errors.Is(err, music.ErrUnknownService):
			return echo.NewHTTPError(http.StatusNotFound, "unknown music service")
		case err != nil:
			logger.Error("oauth callback failed", zap.String("service", string(service)), zap.Error(err))
			return echo.NewHTTPError(http.StatusBadGateway, "could not link the account, please try again")
		}

		logger.Info("oauth callback completed", zap.String("service", string(service)), zap.Stringer("account", account))
		return c.String(http.StatusOK, "Your account is linked. You can go back to the chat and use /share.")
	}
}

// ListShares returns recent shares of one chat (chat query parameter) or of
// all chats.
func ListShares(shares ShareLister) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := defaultSharesLimit
		if raw := c.QueryParam("limit"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v <= 0 {
				return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive number")
			}
			limit = min(v, maxSharesLimit)
		}

		ctx := c.Request().Context()
		var (
			entries []botcore.HistoryEntry
			err     error
		)
		if chat := c.QueryParam("chat"); chat != "" {
			entries, err = shares.Recent(ctx, chat, limit)
		} else {
			entries, err = shares.Latest(ctx, limit)
		}
		if err != nil {
			return err
		}
		if entries == nil {
			entries = []botcore.HistoryEntry{}
		}
		return c.JSON(http.StatusOK, sharesResponse{Shares: entries})
	}
}
