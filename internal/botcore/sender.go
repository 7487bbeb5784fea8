package botcore

import "context"

// Sender emits content back to one messenger.
type Sender interface {
	SendMessage(ctx context.Context, m *Message, content Content) error
	// SendShare posts a share card and returns the id of the posted message.
	SendShare(ctx context.Context, m *Message, content Content) (ID, error)
	UpdateShare(ctx context.Context, m *Message, target ID, content Content) error
	SendSearch(ctx context.Context, m *Message, items []SearchItem, opts SearchOptions) error
	AnswerToAction(ctx context.Context, m *Message, content Content) error
	EnableKeyboard(ctx context.Context, m *Message, content Content) error
	DisableKeyboard(ctx context.Context, m *Message, content Content) error
	SendUnlinkService(ctx context.Context, m *Message, content Content) error
	// PostToChat publishes a share into the messenger's feed chat.
	PostToChat(ctx context.Context, m *Message, content Content) error
}

// Notifier pairs a Sender with its renderer for the recurring answers.
type Notifier struct {
	Sender   Sender
	Messages Messages
}

// OnPrivateOnly tells the user the command only works in private chats.
func (n Notifier) OnPrivateOnly(ctx context.Context, m *Message) error {
	return n.Sender.SendMessage(ctx, m, n.Messages.Failure(m, KindPrivateOnly))
}

// SendNoTrack says nothing is playing.
func (n Notifier) SendNoTrack(ctx context.Context, m *Message) error {
	return n.Sender.SendMessage(ctx, m, n.Messages.Failure(m, KindNoTrack))
}

// SendSignUp asks the user to link a music service first.
func (n Notifier) SendSignUp(ctx context.Context, m *Message) error {
	return n.Sender.SendMessage(ctx, m, n.Messages.Failure(m, KindNoMusicService))
}

// SendFailure answers a recognized failure as a chat message.
func (n Notifier) SendFailure(ctx context.Context, m *Message, kind ErrorKind) error {
	return n.Sender.SendMessage(ctx, m, n.Messages.Failure(m, kind))
}

// AnswerFailure acknowledges an action callback with the failure text.
func (n Notifier) AnswerFailure(ctx context.Context, m *Message, kind ErrorKind) error {
	return n.Sender.AnswerToAction(ctx, m, n.Messages.Failure(m, kind))
}

// AnswerNoActiveDevices asks the user to start playback somewhere first.
func (n Notifier) AnswerNoActiveDevices(ctx context.Context, m *Message) error {
	return n.Sender.AnswerToAction(ctx, m, n.Messages.NoActiveDevices(m))
}

// SendSearchFailure answers an inline search with a single failure item.
func (n Notifier) SendSearchFailure(ctx context.Context, m *Message, kind ErrorKind) error {
	return n.Sender.SendSearch(ctx, m, []SearchItem{n.Messages.SearchFailure(m, kind)}, SearchOptions{})
}

// SendSearchSignUp answers an inline search from an unlinked user.
func (n Notifier) SendSearchSignUp(ctx context.Context, m *Message) error {
	return n.SendSearchFailure(ctx, m, KindNoMusicService)
}
