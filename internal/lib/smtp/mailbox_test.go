package smtp

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/edu-identity/internal/config"
)

type SessionMock struct {
	mock.Mock
}

func (m *SessionMock) Mail(from string) error { return m.Called(from).Error(0) }
func (m *SessionMock) Rcpt(to string) error   { return m.Called(to).Error(0) }
func (m *SessionMock) Quit() error            { return m.Called().Error(0) }
func (m *SessionMock) Close() error           { return m.Called().Error(0) }

func (m *SessionMock) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

type WriterMock struct {
	mock.Mock
	written strings.Builder
}

func (m *WriterMock) Write(p []byte) (int, error) {
	m.written.Write(p)
	args := m.Called(p)
	return args.Int(0), args.Error(1)
}

func (m *WriterMock) Close() error { return m.Called().Error(0) }

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func newTestMailbox(s session, openErr error) *Mailbox {
	m := NewMailbox(config.SMTP{User: "robot@edu.example"}, 0, newNoopLogger())
	m.open = func(context.Context) (session, error) {
		if openErr != nil {
			return nil, openErr
		}
		return s, nil
	}
	return m
}

func TestMailbox_From(t *testing.T) {
	assert.Equal(t, "robot@edu.example", NewMailbox(config.SMTP{User: "robot@edu.example"}, 0, newNoopLogger()).From())
	assert.Equal(t, "noreply@edu.example",
		NewMailbox(config.SMTP{User: "robot@edu.example", From: "noreply@edu.example"}, 0, newNoopLogger()).From())
}

func TestMailbox_Send(t *testing.T) {
	msg := []byte("Subject: hi\r\n\r\nbody")

	tests := []struct {
		name       string
		to         []string
		openErr    error
		setupMocks func(*SessionMock, *WriterMock)
		wantErr    string
	}{
		{
			name: "delivered to every recipient",
			to:   []string{"a@b.com", "c@d.com"},
			setupMocks: func(s *SessionMock, w *WriterMock) {
				s.On("Mail", "robot@edu.example").Return(nil).Once()
				s.On("Rcpt", "a@b.com").Return(nil).Once()
				s.On("Rcpt", "c@d.com").Return(nil).Once()
				s.On("Data").Return(w, nil).Once()
				w.On("Write", msg).Return(len(msg), nil).Once()
				w.On("Close").Return(nil).Once()
				s.On("Quit").Return(nil).Once()
				s.On("Close").Return(nil).Once()
			},
		},
		{
			name:       "no recipients",
			setupMocks: func(_ *SessionMock, _ *WriterMock) {},
			wantErr:    "no recipients",
		},
		{
			name:       "relay unreachable",
			to:         []string{"a@b.com"},
			openErr:    ErrNoStartTLS,
			setupMocks: func(_ *SessionMock, _ *WriterMock) {},
			wantErr:    "STARTTLS",
		},
		{
			name: "recipient rejected closes session",
			to:   []string{"a@b.com"},
			setupMocks: func(s *SessionMock, _ *WriterMock) {
				s.On("Mail", "robot@edu.example").Return(nil).Once()
				s.On("Rcpt", "a@b.com").Return(errors.New("550 no such user")).Once()
				s.On("Close").Return(nil).Once()
			},
			wantErr: "RCPT TO a@b.com: 550",
		},
		{
			name: "body write fails",
			to:   []string{"a@b.com"},
			setupMocks: func(s *SessionMock, w *WriterMock) {
				s.On("Mail", "robot@edu.example").Return(nil).Once()
				s.On("Rcpt", "a@b.com").Return(nil).Once()
				s.On("Data").Return(w, nil).Once()
				w.On("Write", msg).Return(0, errors.New("broken pipe")).Once()
				w.On("Close").Return(nil).Once()
				s.On("Close").Return(nil).Once()
			},
			wantErr: "write body: broken pipe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := new(SessionMock)
			w := new(WriterMock)
			tt.setupMocks(s, w)

			err := newTestMailbox(s, tt.openErr).Send(context.Background(), tt.to, msg)

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, string(msg), w.written.String())
			}
			s.AssertExpectations(t)
			w.AssertExpectations(t)
		})
	}
}
