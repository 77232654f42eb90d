package relay

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/handiism/kona-downloader/internal/logging"
)

// Envelope types.
const (
	TypeMessage    = "message"
	TypeTabUpdated = "tab_updated"
	TypeTabRemoved = "tab_removed"
	TypeResponse   = "response"
	TypeNotify     = "notify"
)

// maxLine bounds a single inbound envelope.
const maxLine = 1 << 20

// Envelope is one line of the stdio protocol.
type Envelope struct {
	Type     string    `json:"type"`
	ID       int64     `json:"id,omitempty"`
	TabID    int       `json:"tab_id"`
	Status   string    `json:"status,omitempty"`
	Message  *Message  `json:"message,omitempty"`
	Response *Response `json:"response,omitempty"`
}

// stream writes envelopes to w, one per line.
type stream struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (s *stream) write(env Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(env)
}

func (s *stream) Notify(ctx context.Context, tabID int, msg Message) error {
	return s.write(Envelope{Type: TypeNotify, TabID: tabID, Message: &msg})
}

// Serve reads envelopes from in until EOF or ctx is done and writes replies
// to out. Notifications triggered by tab_updated envelopes go to out as
// well, regardless of the Notifier configured on the Relay.
//
// Malformed lines are logged and skipped.
func (r *Relay) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx = logging.WithComponent(ctx, "relay")
	logger := logging.FromContext(ctx)
	s := &stream{enc: json.NewEncoder(out)}

	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), maxLine)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	logger.Info().Msg("relay listening")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("read envelope: %w", err)
					}
				default:
				}
				logger.Info().Msg("relay input closed")
				return nil
			}
			if len(line) == 0 {
				continue
			}
			if err := r.dispatch(ctx, s, line); err != nil {
				return err
			}
		}
	}
}

func (r *Relay) dispatch(ctx context.Context, s *stream, line []byte) error {
	logger := logging.FromContext(ctx)

	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		logger.Warn().Err(err).Msg("malformed envelope")
		return nil
	}

	switch env.Type {
	case TypeMessage:
		var msg Message
		if env.Message != nil {
			msg = *env.Message
		}
		resp := r.Handle(ctx, Sender{TabID: env.TabID}, msg)
		if err := s.write(Envelope{Type: TypeResponse, ID: env.ID, TabID: env.TabID, Response: &resp}); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	case TypeTabUpdated:
		r.tabUpdated(ctx, env.TabID, env.Status, s)
	case TypeTabRemoved:
		r.TabRemoved(env.TabID)
	default:
		logger.Warn().Str("type", env.Type).Msg("unknown envelope type")
	}
	return nil
}
