package sender

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/edu-identity/internal/models"
)

type MailerMock struct {
	mock.Mock
	sent []byte
}

func (m *MailerMock) From() string {
	return m.Called().String(0)
}

func (m *MailerMock) Send(ctx context.Context, to []string, msg []byte) error {
	m.sent = msg
	return m.Called(ctx, to, msg).Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestService_Handle(t *testing.T) {
	codeBody := []byte(`{"id":"01J","kind":"verification_code","email":"a@b.com","code":"482913","validity_minutes":15}`)

	tests := []struct {
		name         string
		body         []byte
		setupMocks   func(*MailerMock)
		wantErr      bool
		errorMessage string
		wantInBody   []string
	}{
		{
			name: "verification code",
			body: codeBody,
			setupMocks: func(m *MailerMock) {
				m.On("From").Return("noreply@edu.example")
				m.On("Send", mock.Anything, []string{"a@b.com"}, mock.AnythingOfType("[]uint8")).Return(nil).Once()
			},
			wantInBody: []string{"482913", "15", "To: a@b.com", "From: noreply@edu.example", "charset=\"UTF-8\""},
		},
		{
			name: "welcome",
			body: []byte(`{"id":"01K","kind":"welcome","email":"a@b.com","name":"Ann","handle":"annlee"}`),
			setupMocks: func(m *MailerMock) {
				m.On("From").Return("noreply@edu.example")
				m.On("Send", mock.Anything, []string{"a@b.com"}, mock.AnythingOfType("[]uint8")).Return(nil).Once()
			},
			wantInBody: []string{"Ann", "annlee"},
		},
		{
			name:         "invalid JSON",
			body:         []byte(`invalid json`),
			setupMocks:   func(_ *MailerMock) {},
			wantErr:      true,
			errorMessage: "error unmarshalling message",
		},
		{
			name:         "unknown kind",
			body:         []byte(`{"kind":"sms","email":"a@b.com"}`),
			setupMocks:   func(_ *MailerMock) {},
			wantErr:      true,
			errorMessage: "unknown email kind",
		},
		{
			name:         "no recipient",
			body:         []byte(`{"kind":"welcome"}`),
			setupMocks:   func(_ *MailerMock) {},
			wantErr:      true,
			errorMessage: "no recipient",
		},
		{
			name: "relay rejects recipient",
			body: codeBody,
			setupMocks: func(m *MailerMock) {
				m.On("From").Return("noreply@edu.example")
				m.On("Send", mock.Anything, []string{"a@b.com"}, mock.AnythingOfType("[]uint8")).
					Return(errors.New("RCPT TO a@b.com: 550 no such user")).Once()
			},
			wantErr:      true,
			errorMessage: "550",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mailer := new(MailerMock)
			tt.setupMocks(mailer)

			err := NewService(mailer, newNoopLogger()).Handle(context.Background(), tt.body)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMessage)
			} else {
				require.NoError(t, err)
			}
			for _, s := range tt.wantInBody {
				assert.Contains(t, string(mailer.sent), s)
			}
			mailer.AssertExpectations(t)
		})
	}
}

func TestCompose(t *testing.T) {
	msg := string(Compose("noreply@edu.example", []string{"a@b.com", "c@d.com"}, "Привет", "текст"))

	assert.Contains(t, msg, "To: a@b.com, c@d.com\r\n")
	assert.Contains(t, msg, "Subject: =?UTF-8?q?")
	assert.Contains(t, msg, "\r\n\r\nтекст")
}

func TestRender(t *testing.T) {
	subject, text, err := Render(models.EmailMessage{Kind: models.EmailVerificationCode, Code: "000123", ValidityMinutes: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, subject)
	assert.Contains(t, text, "000123")
	assert.Contains(t, text, "10 мин")

	_, _, err = Render(models.EmailMessage{Kind: "push"})
	assert.True(t, errors.Is(err, ErrUnknownKind))
}
