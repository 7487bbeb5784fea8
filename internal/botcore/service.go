package botcore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	searchPageSize = 20
	historyLimit   = 10
)

// BotService is the set of user actions every messenger adapter drives.
type BotService interface {
	Messenger() MessengerType

	SignUp(ctx context.Context, m *Message)
	ShareSong(ctx context.Context, m *Message, cfg ShareSongConfig) error
	ShareSongWithoutControls(ctx context.Context, m *Message) error
	Search(ctx context.Context, m *Message) error
	GetProfile(ctx context.Context, m *Message)
	Donate(ctx context.Context, m *Message)
	History(ctx context.Context, m *Message)
	EnableKeyboard(ctx context.Context, m *Message)
	DisableKeyboard(ctx context.Context, m *Message)
	UnlinkService(ctx context.Context, m *Message)

	PlaySong(ctx context.Context, m *Message)
	AddSongToQueue(ctx context.Context, m *Message)
	ToggleFavorite(ctx context.Context, m *Message)
	PreviousSong(ctx context.Context, m *Message)
	NextSong(ctx context.Context, m *Message)
	TogglePlay(ctx context.Context, m *Message)

	ProcessShare(ctx context.Context, m *Message, cfg ShareSongConfig) error
	ProcessUpdateShare(ctx context.Context, job UpdateShareJob)
	ProcessPostToChat(ctx context.Context, job PostToChatJob) error
	ProcessSearch(ctx context.Context, m *Message)
}

// Options wires a Service for one messenger. History and Enricher are
// optional.
type Options struct {
	Messenger     MessengerType
	Sender        Sender
	Messages      Messages
	Music         MusicService
	Queue         Queue
	Users         Users
	History       History
	Enricher      Enricher
	ShareDefaults ShareSongConfig
	// PostToChat enables the postToChat hop after a share is enriched.
	PostToChat bool
	Logger     *zap.Logger
}

// Service implements BotService on top of the messenger's collaborators.
type Service struct {
	messenger     MessengerType
	sender        Sender
	messages      Messages
	music         MusicService
	queue         Queue
	users         Users
	history       History
	enricher      Enricher
	shareDefaults ShareSongConfig
	postToChat    bool
	notify        Notifier
	logger        *zap.Logger
}

var _ BotService = (*Service)(nil)

// NewService validates opts and builds the service for one messenger.
func NewService(opts Options) (*Service, error) {
	switch {
	case opts.Messenger == "":
		return nil, fmt.Errorf("messenger type is empty")
	case opts.Sender == nil:
		return nil, fmt.Errorf("sender is nil")
	case opts.Messages == nil:
		return nil, fmt.Errorf("messages renderer is nil")
	case opts.Music == nil:
		return nil, fmt.Errorf("music service is nil")
	case opts.Queue == nil:
		return nil, fmt.Errorf("queue is nil")
	case opts.Users == nil:
		return nil, fmt.Errorf("users is nil")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		messenger:     opts.Messenger,
		sender:        opts.Sender,
		messages:      opts.Messages,
		music:         opts.Music,
		queue:         opts.Queue,
		users:         opts.Users,
		history:       opts.History,
		enricher:      opts.Enricher,
		shareDefaults: opts.ShareDefaults,
		postToChat:    opts.PostToChat,
		notify:        Notifier{Sender: opts.Sender, Messages: opts.Messages},
		logger:        logger.With(zap.String("messenger", string(opts.Messenger))),
	}, nil
}

// Messenger is the messenger this service answers on.
func (s *Service) Messenger() MessengerType { return s.messenger }

// SignUp sends login links, or a notice when a service is already linked.
func (s *Service) SignUp(ctx context.Context, m *Message) {
	s.guardMessage(ctx, m, s.signUp)
}

func (s *Service) signUp(ctx context.Context, m *Message) error {
	if !m.IsPrivate() {
		return ErrPrivateOnly
	}
	if err := s.users.CreateUser(ctx, m); err != nil {
		if errors.Is(err, ErrUserExists) {
			return s.sender.SendMessage(ctx, m, s.messages.AlreadyConnected(m))
		}
		return fmt.Errorf("create user: %w", err)
	}

	account := m.Account()
	services := s.music.Services()
	links := make([]LoginLink, 0, len(services))
	for _, service := range services {
		url, err := s.music.CreateLoginURL(ctx, service, account)
		if err != nil {
			return fmt.Errorf("login url for %s: %w", service, err)
		}
		links = append(links, LoginLink{Service: service, URL: url})
	}
	return s.sender.SendMessage(ctx, m, s.messages.SignUp(m, links))
}

// ShareSong only enqueues; the card is rendered by ProcessShare.
func (s *Service) ShareSong(ctx context.Context, m *Message, cfg ShareSongConfig) error {
	if err := s.queue.Enqueue(ctx, JobShareSong, ShareSongJob{Message: *m, Config: cfg}, DefaultJobOptions); err != nil {
		return fmt.Errorf("enqueue %s: %w", JobShareSong, err)
	}
	return nil
}

// ShareSongWithoutControls shares the current song without playback buttons.
func (s *Service) ShareSongWithoutControls(ctx context.Context, m *Message) error {
	return s.ShareSong(ctx, m, ShareSongConfig{Control: Flag(false)})
}

// ProcessShare posts the card for the current song and schedules the link lookup.
func (s *Service) ProcessShare(ctx context.Context, m *Message, cfg ShareSongConfig) error {
	res, err := s.music.GetCurrentTrack(ctx, m.Account())
	if err != nil {
		return s.recoverShare(ctx, m, err)
	}
	m.MusicServiceType = res.Type

	data := ShareSongData{Track: res.Data}
	cfg = cfg.Over(s.shareDefaults)
	sent, err := s.sender.SendShare(ctx, m, s.messages.Share(m, data, cfg))
	if err != nil {
		return fmt.Errorf("send share: %w", err)
	}

	job := UpdateShareJob{Message: *m, MessageToUpdate: sent, Data: data, Config: cfg}
	if err := s.queue.Enqueue(ctx, JobUpdateShare, job, DefaultJobOptions); err != nil {
		// The card is already posted; retrying would post it twice.
		s.logger.Error("enqueue share update", append(messageFields(m), zap.Error(err))...)
	}
	return nil
}

// ProcessUpdateShare never fails: enrichment is best-effort.
func (s *Service) ProcessUpdateShare(ctx context.Context, job UpdateShareJob) {
	m := &job.Message
	fields := append(messageFields(m), zap.String("track_id", job.Data.Track.ID))
	defer s.recoverPanic(m)

	data := job.Data
	if data.Track.URL == "" {
		res, err := s.music.GetTrack(ctx, data.Track.ID, m.Account())
		if err != nil {
			s.logger.Error("refetch shared track", append(fields, zap.Error(err))...)
			return
		}
		data.Track = res.Data
	}

	if s.enricher != nil {
		songWhip, err := s.enricher.Lookup(ctx, data.Track)
		if err != nil {
			s.logger.Error("enrich shared track", append(fields, zap.Error(err))...)
			return
		}
		data.SongWhip = songWhip
	}

	cfg := job.Config
	cfg.Loading = Flag(false)
	if err := s.sender.UpdateShare(ctx, m, job.MessageToUpdate, s.messages.Share(m, data, cfg)); err != nil {
		s.logger.Error("update share", append(fields, zap.Error(err))...)
		return
	}

	if s.history != nil && m.Chat != nil && m.Chat.ID.IsNumeric() {
		entry := HistoryEntry{
			ChatID:    m.Chat.ID.String(),
			Messenger: m.MessengerType(),
			UserID:    m.From.ID.String(),
			UserName:  m.From.Name,
			Service:   m.MusicServiceType,
			TrackID:   data.Track.ID,
			Name:      data.Track.Name,
			Artists:   data.Track.Artists,
			URL:       data.Track.URL,
			SharedAt:  time.Now().UTC(),
		}
		if err := s.history.Record(ctx, entry); err != nil {
			s.logger.Warn("record share history", append(fields, zap.Error(err))...)
		}
	}

	if !s.postToChat {
		return
	}
	if err := s.queue.Enqueue(ctx, JobPostToChat, PostToChatJob{Message: *m, Data: data}, DefaultJobOptions); err != nil {
		s.logger.Error("enqueue post to chat", append(fields, zap.Error(err))...)
	}
}

// ProcessPostToChat copies a share to the feed chat.
func (s *Service) ProcessPostToChat(ctx context.Context, job PostToChatJob) error {
	m := &job.Message
	cfg := ShareSongConfig{
		Control:   Flag(false),
		Anonymous: Flag(true),
		Loading:   Flag(false),
		Donate:    Flag(false),
	}
	if err := s.sender.PostToChat(ctx, m, s.messages.Share(m, job.Data, cfg)); err != nil {
		return fmt.Errorf("post to chat: %w", err)
	}
	return nil
}

// PlaySong starts the track referenced by the action.
func (s *Service) PlaySong(ctx context.Context, m *Message) {
	s.guardAction(ctx, m, func(ctx context.Context, m *Message) error {
		a, err := parseActionOf(m.Text, ActionPlay)
		if err != nil {
			return err
		}
		service, err := s.music.PlaySong(ctx, a.ID, m.Account())
		if err != nil {
			return err
		}
		m.MusicServiceType = service
		return s.sender.AnswerToAction(ctx, m, s.messages.Played(m))
	})
}

// AddSongToQueue queues the track after the current one.
func (s *Service) AddSongToQueue(ctx context.Context, m *Message) {
	s.guardAction(ctx, m, func(ctx context.Context, m *Message) error {
		a, err := parseActionOf(m.Text, ActionQueue)
		if err != nil {
			return err
		}
		service, err := s.music.AddToQueue(ctx, a.ID, m.Account())
		if err != nil {
			return err
		}
		m.MusicServiceType = service
		return s.sender.AnswerToAction(ctx, m, s.messages.Queued(m))
	})
}

// ToggleFavorite saves or removes the track in the user's library.
func (s *Service) ToggleFavorite(ctx context.Context, m *Message) {
	s.guardAction(ctx, m, s.toggleFavorite)
}

func (s *Service) toggleFavorite(ctx context.Context, m *Message) error {
	a, err := parseActionOf(m.Text, ActionFavorite)
	if err != nil {
		return err
	}
	res, err := s.music.ToggleFavorite(ctx, []string{a.ID}, m.Account())
	if err != nil {
		return err
	}
	m.MusicServiceType = res.Type

	switch res.Data {
	case FavoriteSaved, FavoriteRemoved:
		return s.sender.AnswerToAction(ctx, m, s.messages.Favorite(m, res.Data))
	default:
		return nil
	}
}

// PreviousSong and NextSong switch tracks on the active device.
func (s *Service) PreviousSong(ctx context.Context, m *Message) {
	s.guardAction(ctx, m, func(ctx context.Context, m *Message) error {
		service, err := s.music.PreviousTrack(ctx, m.Account())
		if err != nil {
			return err
		}
		m.MusicServiceType = service
		return s.sender.AnswerToAction(ctx, m, s.messages.Switched(m))
	})
}

// NextSong skips to the next track.
func (s *Service) NextSong(ctx context.Context, m *Message) {
	s.guardAction(ctx, m, func(ctx context.Context, m *Message) error {
		service, err := s.music.NextTrack(ctx, m.Account())
		if err != nil {
			return err
		}
		m.MusicServiceType = service
		return s.sender.AnswerToAction(ctx, m, s.messages.Switched(m))
	})
}

// TogglePlay pauses or resumes playback.
func (s *Service) TogglePlay(ctx context.Context, m *Message) {
	s.guardAction(ctx, m, func(ctx context.Context, m *Message) error {
		res, err := s.music.TogglePlay(ctx, m.Account())
		if err != nil {
			return err
		}
		m.MusicServiceType = res.Type
		return s.sender.AnswerToAction(ctx, m, s.messages.Toggled(m, res.Data))
	})
}

// Search defers an inline query to the queue.
func (s *Service) Search(ctx context.Context, m *Message) error {
	if err := s.queue.Enqueue(ctx, JobInlineQuery, InlineQueryJob{Message: *m}, DefaultJobOptions); err != nil {
		return fmt.Errorf("enqueue %s: %w", JobInlineQuery, err)
	}
	return nil
}

// ProcessSearch answers an inline search with one page of tracks.
func (s *Service) ProcessSearch(ctx context.Context, m *Message) {
	s.guardSearch(ctx, m, s.processSearch)
}

func (s *Service) processSearch(ctx context.Context, m *Message) error {
	account := m.Account()

	if strings.TrimSpace(m.Text) == "" {
		res, err := s.music.GetCurrentTrack(ctx, account)
		if err != nil {
			return err
		}
		m.MusicServiceType = res.Type
		items := []SearchItem{s.messages.SearchItem(m, res.Data), s.messages.SearchDonate(m)}
		return s.sender.SendSearch(ctx, m, items, SearchOptions{})
	}

	offset := 0
	if m.Offset != "" {
		if v, err := strconv.Atoi(m.Offset); err == nil && v >= 0 {
			offset = v
		}
	}

	res, err := s.music.SearchTracks(ctx, m.Text, Pagination{Offset: offset, Limit: searchPageSize}, account)
	if err != nil {
		return err
	}
	m.MusicServiceType = res.Type

	items := make([]SearchItem, 0, len(res.Data.Items)+1)
	for _, track := range res.Data.Items {
		items = append(items, s.messages.SearchItem(m, track))
	}
	items = append(items, s.messages.SearchDonate(m))

	return s.sender.SendSearch(ctx, m, items, SearchOptions{NextOffset: nextOffset(res.Data.Pagination, offset)})
}

func nextOffset(p Pagination, requested int) string {
	if !p.Next {
		return ""
	}
	limit := p.Limit
	if limit <= 0 {
		limit = searchPageSize
	}
	offset := p.Offset
	if offset <= 0 {
		offset = requested
	}
	return strconv.Itoa(offset + limit)
}

// GetProfile shows the linked account.
func (s *Service) GetProfile(ctx context.Context, m *Message) {
	s.guardMessage(ctx, m, func(ctx context.Context, m *Message) error {
		res, err := s.music.GetProfile(ctx, m.Account())
		if err != nil {
			return err
		}
		m.MusicServiceType = res.Type
		return s.sender.SendMessage(ctx, m, s.messages.Profile(m, res.Data))
	})
}

// Donate sends the donation link.
func (s *Service) Donate(ctx context.Context, m *Message) {
	s.guardMessage(ctx, m, func(ctx context.Context, m *Message) error {
		return s.sender.SendMessage(ctx, m, s.messages.Donate(m))
	})
}

// History lists the songs recently shared in the chat.
func (s *Service) History(ctx context.Context, m *Message) {
	s.guardMessage(ctx, m, func(ctx context.Context, m *Message) error {
		var entries []HistoryEntry
		if s.history != nil {
			var err error
			entries, err = s.history.Recent(ctx, m.ChatID().String(), historyLimit)
			if err != nil {
				return fmt.Errorf("load history: %w", err)
			}
		}
		return s.sender.SendMessage(ctx, m, s.messages.History(m, entries))
	})
}

// EnableKeyboard shows the playback keyboard.
func (s *Service) EnableKeyboard(ctx context.Context, m *Message) {
	s.guardMessage(ctx, m, func(ctx context.Context, m *Message) error {
		return s.sender.EnableKeyboard(ctx, m, s.messages.EnableKeyboard(m))
	})
}

// DisableKeyboard removes the playback keyboard.
func (s *Service) DisableKeyboard(ctx context.Context, m *Message) {
	s.guardMessage(ctx, m, func(ctx context.Context, m *Message) error {
		return s.sender.DisableKeyboard(ctx, m, s.messages.DisableKeyboard(m))
	})
}

// UnlinkService drops the stored tokens of the user.
func (s *Service) UnlinkService(ctx context.Context, m *Message) {
	s.guardMessage(ctx, m, s.unlinkService)
}

func (s *Service) unlinkService(ctx context.Context, m *Message) error {
	if !m.IsPrivate() {
		return ErrPrivateOnly
	}
	if err := s.users.UnlinkService(ctx, m); err != nil {
		return fmt.Errorf("unlink service: %w", err)
	}
	return s.sender.SendUnlinkService(ctx, m, s.messages.Unlinked(m))
}
