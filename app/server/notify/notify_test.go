package notify

import (
	"alumni-network/app/server/config"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestNew_PicksDispatcher(t *testing.T) {
	var cfg config.Config
	assert.IsType(t, &LogDispatcher{}, New(&cfg, zap.NewNop()))

	cfg.Mail.SMTPHost = "smtp.example.com"
	cfg.Mail.SMTPPort = 587
	d := New(&cfg, zap.NewNop())
	if assert.IsType(t, &SMTPDispatcher{}, d) {
		assert.Equal(t, "smtp.example.com:587", d.(*SMTPDispatcher).addr)
	}
}

func TestLogDispatcher(t *testing.T) {
	res := (&LogDispatcher{l: zap.NewNop()}).SendOTP(context.Background(), "alice@example.com", "123456")
	assert.True(t, res.Success)
}

func TestSMTPDispatcher_Canceled(t *testing.T) {
	// 不可路由的地址，连接会一直挂起直到 ctx 取消
	d := &SMTPDispatcher{addr: "10.255.255.1:25", host: "10.255.255.1", from: "noreply@example.com", l: zap.NewNop()}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := d.SendOTP(ctx, "alice@example.com", "123456")
	assert.False(t, res.Success)
}

func TestBuildOTPMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	msg := string(BuildOTPMessage("noreply@example.com", "alice@example.com", "042133", now))

	assert.True(t, strings.HasPrefix(msg, "From: noreply@example.com\r\n"))
	assert.Contains(t, msg, "To: alice@example.com\r\n")
	assert.Contains(t, msg, "Date: Sun, 01 Mar 2026 12:00:00 +0000\r\n")
	assert.Contains(t, msg, "\r\n\r\nYour password reset code is 042133.")
}

func TestBuildOTPMessage_StripsLineBreaksFromHeaders(t *testing.T) {
	msg := string(BuildOTPMessage("noreply@example.com", "alice@example.com\r\nBcc: everyone@example.com", "042133", time.Now()))

	assert.Contains(t, msg, "To: alice@example.comBcc: everyone@example.com\r\n")
	assert.NotContains(t, msg, "\r\nBcc:")
}
