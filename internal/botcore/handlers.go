package botcore

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// step is one guarded BotService action.
type step func(ctx context.Context, m *Message) error

// guardMessage answers recognized failures of a chat command with a message
// and logs the rest.
func (s *Service) guardMessage(ctx context.Context, m *Message, fn step) {
	defer s.recoverPanic(m)

	err := fn(ctx, m)
	if err == nil {
		return
	}
	kind := KindOf(err)
	if kind == KindUnknown {
		s.logger.Error("message action failed", append(messageFields(m), zap.Error(err))...)
		return
	}
	if ackErr := s.notify.SendFailure(ctx, m, kind); ackErr != nil {
		s.logger.Error("answer message failure", append(messageFields(m), zap.Stringer("kind", kind), zap.Error(ackErr))...)
	}
}

// guardAction acknowledges every failed callback; the platform expects an
// answer within its timeout even when the cause is unknown.
func (s *Service) guardAction(ctx context.Context, m *Message, fn step) {
	defer s.recoverPanic(m)

	err := fn(ctx, m)
	if err == nil {
		return
	}
	kind := KindOf(err)
	var ackErr error
	if kind == KindUnknown {
		s.logger.Error("callback action failed", append(messageFields(m), zap.Error(err))...)
		ackErr = s.notify.AnswerNoActiveDevices(ctx, m)
	} else {
		ackErr = s.notify.AnswerFailure(ctx, m, kind)
	}
	if ackErr != nil {
		s.logger.Error("answer action failure", append(messageFields(m), zap.Stringer("kind", kind), zap.Error(ackErr))...)
	}
}

// guardSearch answers failed inline searches with a single result item.
func (s *Service) guardSearch(ctx context.Context, m *Message, fn step) {
	defer s.recoverPanic(m)

	err := fn(ctx, m)
	if err == nil {
		return
	}
	kind := KindOf(err)
	if kind == KindUnknown {
		s.logger.Error("inline search failed", append(messageFields(m), zap.Error(err))...)
	}
	if ackErr := s.notify.SendSearchFailure(ctx, m, kind); ackErr != nil {
		s.logger.Error("answer search failure", append(messageFields(m), zap.Stringer("kind", kind), zap.Error(ackErr))...)
	}
}

// recoverShare answers recognized failures of a queued share so they do not
// consume retries. Unknown errors go back to the queue.
func (s *Service) recoverShare(ctx context.Context, m *Message, err error) error {
	kind := KindOf(err)
	if kind == KindUnknown {
		return err
	}
	if ackErr := s.notify.SendFailure(ctx, m, kind); ackErr != nil {
		s.logger.Error("answer share failure", append(messageFields(m), zap.Stringer("kind", kind), zap.Error(ackErr))...)
	}
	return nil
}

func (s *Service) recoverPanic(m *Message) {
	if r := recover(); r != nil {
		s.logger.Error("action panicked", append(messageFields(m), zap.Error(fmt.Errorf("panic: %v", r)))...)
	}
}

func messageFields(m *Message) []zap.Field {
	return []zap.Field{
		zap.String("messenger", string(m.MessengerType())),
		zap.String("type", string(m.Type())),
		zap.Stringer("message_id", m.ID),
		zap.Stringer("user_id", m.From.ID),
	}
}
