// Package notify delivers one-time recovery codes to principals.
package notify

import (
	"alumni-network/app/server/config"
	"context"
	"fmt"
	"go.uber.org/zap"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

type Result struct {
	Success bool
	Message string
}

// Dispatcher sends the code once. Any non-success result is fatal to the recovery request.
type Dispatcher interface {
	SendOTP(ctx context.Context, email, code string) Result
}

func New(cfg *config.Config, l *zap.Logger) Dispatcher {
	if cfg.Mail.SMTPHost == "" {
		l.Warn("SMTP_HOST not set, recovery codes will only be logged")
		return &LogDispatcher{l: l}
	}

	return &SMTPDispatcher{
		addr: net.JoinHostPort(cfg.Mail.SMTPHost, strconv.Itoa(cfg.Mail.SMTPPort)),
		host: cfg.Mail.SMTPHost,
		user: cfg.Mail.SMTPUsername,
		pass: cfg.Mail.SMTPPassword,
		from: cfg.Mail.From,
		l:    l,
	}
}

// LogDispatcher is used in development, the code goes to the debug log.
type LogDispatcher struct {
	l *zap.Logger
}

func (d *LogDispatcher) SendOTP(_ context.Context, email, code string) Result {
	d.l.Debug("password reset code", zap.String("email", email), zap.String("code", code))
	return Result{Success: true}
}

type SMTPDispatcher struct {
	addr string
	host string
	user string
	pass string
	from string
	l    *zap.Logger
}

func (d *SMTPDispatcher) SendOTP(ctx context.Context, email, code string) Result {
	var auth smtp.Auth
	if d.user != "" {
		auth = smtp.PlainAuth("", d.user, d.pass, d.host)
	}

	msg := BuildOTPMessage(d.from, email, code, time.Now())

	// net/smtp 不支持 context，放到协程里以便请求取消时提前返回
	done := make(chan error, 1)
	go func() {
		done <- smtp.SendMail(d.addr, auth, d.from, []string{email}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			d.l.Error("failed to send reset code", zap.String("email", email), zap.Error(err))
			return Result{Success: false, Message: "failed to send email"}
		}
		return Result{Success: true}
	case <-ctx.Done():
		return Result{Success: false, Message: ctx.Err().Error()}
	}
}

// 头部字段里不能出现换行
var headerSanitizer = strings.NewReplacer("\r", "", "\n", "")

func BuildOTPMessage(from, to, code string, now time.Time) []byte {
	var b strings.Builder
	b.WriteString("From: " + headerSanitizer.Replace(from) + "\r\n")
	b.WriteString("To: " + headerSanitizer.Replace(to) + "\r\n")
	b.WriteString("Subject: Your password reset code\r\n")
	b.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(fmt.Sprintf("Your password reset code is %s.\r\n", code))
	b.WriteString("It expires in 15 minutes. If you did not request it, ignore this email.\r\n")
	return []byte(b.String())
}
