package email

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/changheecho2/banju/internal/config"
	"github.com/changheecho2/banju/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, to []string, subject string, rawMessage []byte) error {
	return m.Called(ctx, to, subject, rawMessage).Error(0)
}

const rawMessage = "To: a@b.com\r\nFrom: noreply@banju.test\r\n" + TemplateHeader + ": request_accepted\r\nSubject: hi\r\n\r\n수락되었습니다\r\n"

func TestNewSMTPSender_FallsBackToLogging(t *testing.T) {
	s := NewSMTPSender(&config.Config{})
	_, ok := s.(*LoggingSender)
	assert.True(t, ok)
	assert.NoError(t, s.Send(context.Background(), []string{"a@b.com"}, "hi", []byte(rawMessage)))

	s = NewSMTPSender(&config.Config{SmtpHost: "smtp.banju.test", SmtpPort: 587})
	_, ok = s.(*SMTPSender)
	assert.True(t, ok)
}

func TestCompositeEmailSender(t *testing.T) {
	ctx := context.Background()
	to := []string{"a@b.com"}

	ok := new(MockSender)
	ok.On("Send", ctx, to, "hi", []byte(rawMessage)).Return(nil)
	failing := new(MockSender)
	failing.On("Send", ctx, to, "hi", []byte(rawMessage)).Return(errors.New("smtp down"))

	cs := NewCompositeEmailSender(ok, nil)
	require.NoError(t, cs.Send(ctx, to, "hi", []byte(rawMessage)))

	cs.AddSender(failing)
	err := cs.Send(ctx, to, "hi", []byte(rawMessage))
	assert.ErrorContains(t, err, "smtp down")
	ok.AssertNumberOfCalls(t, "Send", 2)

	assert.Error(t, NewCompositeEmailSender().Send(ctx, to, "hi", nil))
}

func TestFileEmailSender(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mail", "emails.log")
	s, err := NewFileEmailSender(path)
	require.NoError(t, err)

	require.NoError(t, s.Send(context.Background(), []string{"a@b.com"}, "hi", []byte(rawMessage)))
	require.NoError(t, s.Send(context.Background(), []string{"c@d.com"}, "again", []byte(rawMessage)))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "(To: [a@b.com], Subject: hi)")
	assert.Contains(t, string(content), "(To: [c@d.com], Subject: again)")

	_, err = NewFileEmailSender("  ")
	assert.Error(t, err)
}

func TestRedisSender(t *testing.T) {
	rdb := utils.SetupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, NewRedisSender(rdb).Send(ctx, []string{"a@b.com"}, "hi", []byte(rawMessage)))

	raw, err := rdb.Get(ctx, MockEmailKey("a@b.com", "request_accepted")).Bytes()
	require.NoError(t, err)
	var stored map[string]any
	require.NoError(t, json.Unmarshal(raw, &stored))
	assert.Equal(t, "request_accepted", stored["templateId"])
	assert.Equal(t, "noreply@banju.test", stored["from"])
	assert.Contains(t, stored["body"], "수락되었습니다")
}
