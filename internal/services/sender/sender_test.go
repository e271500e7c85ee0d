package sender

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/venture-billing/internal/lib/sl"
	"github.com/magabrotheeeer/venture-billing/internal/lib/smtp"
)

type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Connect(ctx context.Context) (smtp.Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(smtp.Client), args.Error(1)
}

func (m *MockTransport) From() string {
	args := m.Called()
	return args.String(0)
}

type MockSMTPClient struct {
	mock.Mock
}

func (m *MockSMTPClient) Mail(from string) error {
	args := m.Called(from)
	return args.Error(0)
}

func (m *MockSMTPClient) Rcpt(to string) error {
	args := m.Called(to)
	return args.Error(0)
}

func (m *MockSMTPClient) Data() (io.WriteCloser, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.WriteCloser), args.Error(1)
}

func (m *MockSMTPClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockSMTPClient) Quit() error {
	args := m.Called()
	return args.Error(0)
}

// bufferWriter собирает отправленное письмо.
type bufferWriter struct {
	bytes.Buffer
	closed bool
}

func (w *bufferWriter) Close() error {
	w.closed = true
	return nil
}

func TestSenderService_Send(t *testing.T) {
	tests := []struct {
		name          string
		mail          Mail
		setupMocks    func(*MockTransport, *MockSMTPClient, *bufferWriter)
		expectedError string
	}{
		{
			name: "plain text",
			mail: Mail{To: []string{"founder@example.com"}, Subject: "Payment received", Body: "Thanks!"},
			setupMocks: func(tr *MockTransport, c *MockSMTPClient, w *bufferWriter) {
				tr.On("From").Return("billing@example.com")
				tr.On("Connect", mock.Anything).Return(c, nil).Once()
				c.On("Mail", "billing@example.com").Return(nil).Once()
				c.On("Rcpt", "founder@example.com").Return(nil).Once()
				c.On("Data").Return(w, nil).Once()
				c.On("Quit").Return(nil).Once()
				c.On("Close").Return(nil).Once()
			},
		},
		{
			name:          "no recipients",
			mail:          Mail{Subject: "x"},
			setupMocks:    func(*MockTransport, *MockSMTPClient, *bufferWriter) {},
			expectedError: "no recipients",
		},
		{
			name: "connection error",
			mail: Mail{To: []string{"a@example.com"}},
			setupMocks: func(tr *MockTransport, _ *MockSMTPClient, _ *bufferWriter) {
				tr.On("From").Return("billing@example.com")
				tr.On("Connect", mock.Anything).Return(nil, errors.New("connection error")).Once()
			},
			expectedError: "connection error",
		},
		{
			name: "recipient rejected",
			mail: Mail{To: []string{"bad@example.com"}},
			setupMocks: func(tr *MockTransport, c *MockSMTPClient, _ *bufferWriter) {
				tr.On("From").Return("billing@example.com")
				tr.On("Connect", mock.Anything).Return(c, nil).Once()
				c.On("Mail", "billing@example.com").Return(nil).Once()
				c.On("Rcpt", "bad@example.com").Return(errors.New("550 no such user")).Once()
				c.On("Close").Return(nil).Once()
			},
			expectedError: "550",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := new(MockTransport)
			client := new(MockSMTPClient)
			writer := &bufferWriter{}
			tt.setupMocks(transport, client, writer)

			err := NewSenderService(sl.Discard(), transport).Send(context.Background(), tt.mail)
			if tt.expectedError != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.True(t, writer.closed)
				assert.Contains(t, writer.String(), "Thanks!")
			}
			transport.AssertExpectations(t)
			client.AssertExpectations(t)
		})
	}
}

func TestBuildMessage_WithAttachment(t *testing.T) {
	pdf := bytes.Repeat([]byte("%PDF-1.3 data "), 20)
	raw, err := buildMessage("billing@example.com", Mail{
		To:      []string{"founder@example.com"},
		Subject: "Invoice MP-1",
		Body:    "Your invoice is attached.",
		Attachments: []Attachment{
			{Name: "invoice-MP-1.pdf", ContentType: "application/pdf", Data: pdf},
		},
	})
	require.NoError(t, err)

	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	require.NoError(t, err)
	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])
	text, err := mr.NextPart()
	require.NoError(t, err)
	body, err := io.ReadAll(text)
	require.NoError(t, err)
	assert.Equal(t, "Your invoice is attached.", string(body))

	att, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "invoice-MP-1.pdf", att.FileName())
	encoded, err := io.ReadAll(att)
	require.NoError(t, err)
	for _, line := range strings.Split(strings.TrimSpace(string(encoded)), "\r\n") {
		assert.LessOrEqual(t, len(line), 76)
	}
}
