package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// Config SMTP配置
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	FromName string
	FromAddr string
}

// SMTPMailer 通过SMTP发送HTML邮件
type SMTPMailer struct {
	cfg  Config
	send func(ctx context.Context, msg *mail.Msg) error
}

// NewSMTPMailer 创建SMTP发送器
func NewSMTPMailer(cfg Config) *SMTPMailer {
	m := &SMTPMailer{cfg: cfg}
	m.send = m.dialAndSend
	return m
}

// Send 发送一封HTML邮件
func (m *SMTPMailer) Send(ctx context.Context, toEmail, toName, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := BuildMessage(m.cfg.FromName, m.cfg.FromAddr, toName, toEmail, subject, htmlBody, time.Now())
	if err != nil {
		return err
	}

	if err := m.send(ctx, msg); err != nil {
		return fmt.Errorf("发送邮件失败: %w", err)
	}
	return nil
}

// BuildMessage 组装HTML邮件
func BuildMessage(fromName, fromAddr, toName, toAddr, subject, htmlBody string, date time.Time) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(fromName, fromAddr); err != nil {
		return nil, fmt.Errorf("发件人地址无效: %w", err)
	}
	if err := msg.AddToFormat(toName, toAddr); err != nil {
		return nil, fmt.Errorf("收件人地址无效: %w", err)
	}
	msg.Subject(subject)
	msg.SetDateWithValue(date)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)
	return msg, nil
}

// dialAndSend 每次发送建立新连接，能升级时使用STARTTLS
func (m *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithPort(m.cfg.Port),
		mail.WithTimeout(30 * time.Second),
	}
	if m.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}
	return client.DialAndSendWithContext(ctx, msg)
}
