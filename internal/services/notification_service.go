package services

import (
	"bytes"
	"context"
	"html/template"

	"bhms/internal/metrics"
	"bhms/internal/models"
	"bhms/pkg/config"
	"bhms/pkg/mailer"
	"bhms/pkg/queue"

	"github.com/sirupsen/logrus"
)

// Notification 一封待发送的通知
type Notification struct {
	ToEmail  string
	ToName   string
	Subject  string
	HTMLBody string
}

// Notifier 通知发送方，返回错误表示投递失败
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// 通知驱动名称，与 NOTIFY_DRIVER 取值一致
const (
	DriverLog   = "log"
	DriverQueue = "queue"
	DriverSMTP  = "smtp"
)

// driverNamer 可选接口，用于指标标签
type driverNamer interface {
	Driver() string
}

func driverOf(n Notifier) string {
	if d, ok := n.(driverNamer); ok {
		return d.Driver()
	}
	return "custom"
}

// LogNotifier 只记录日志，开发环境使用
type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Driver() string { return DriverLog }

func (n *LogNotifier) Send(_ context.Context, msg Notification) error {
	n.log.WithFields(logrus.Fields{
		"to":      msg.ToEmail,
		"subject": msg.Subject,
	}).Info("notification (log driver)")
	return nil
}

// mailEnqueuer 邮件队列的写入端
type mailEnqueuer interface {
	Enqueue(ctx context.Context, msg *queue.MailMessage) error
}

// QueueNotifier 写入Redis发件箱，由 bhmsctl mailer 负责投递
type QueueNotifier struct {
	queue mailEnqueuer
}

func NewQueueNotifier(q mailEnqueuer) *QueueNotifier {
	return &QueueNotifier{queue: q}
}

func (n *QueueNotifier) Driver() string { return DriverQueue }

func (n *QueueNotifier) Send(ctx context.Context, msg Notification) error {
	return n.queue.Enqueue(ctx, &queue.MailMessage{
		ToEmail:  msg.ToEmail,
		ToName:   msg.ToName,
		Subject:  msg.Subject,
		HTMLBody: msg.HTMLBody,
	})
}

// SMTPNotifier 直接通过SMTP发送
type SMTPNotifier struct {
	mailer *mailer.SMTPMailer
}

func NewSMTPNotifier(m *mailer.SMTPMailer) *SMTPNotifier {
	return &SMTPNotifier{mailer: m}
}

func (n *SMTPNotifier) Driver() string { return DriverSMTP }

func (n *SMTPNotifier) Send(ctx context.Context, msg Notification) error {
	return n.mailer.Send(ctx, msg.ToEmail, msg.ToName, msg.Subject, msg.HTMLBody)
}

// NewNotifier 按配置选择通知驱动
func NewNotifier(cfg *config.Config, log *logrus.Logger, mailQueue func() *queue.MailQueue) Notifier {
	switch cfg.Notify.Driver {
	case DriverQueue:
		return NewQueueNotifier(mailQueue())
	case DriverSMTP:
		return NewSMTPNotifier(mailer.NewSMTPMailer(SMTPConfigFrom(cfg)))
	default:
		return NewLogNotifier(log)
	}
}

// SMTPConfigFrom 从全局配置生成SMTP配置
func SMTPConfigFrom(cfg *config.Config) mailer.Config {
	return mailer.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		FromName: cfg.Notify.FromName,
		FromAddr: cfg.Notify.FromAddr,
	}
}

// notifyBestEffort 通知失败只记录日志，不影响已提交的业务数据
func notifyBestEffort(ctx context.Context, n Notifier, log *logrus.Logger, msg Notification) bool {
	driver := driverOf(n)
	if err := n.Send(ctx, msg); err != nil {
		metrics.Notifications.WithLabelValues(driver, "failed").Inc()
		log.WithError(err).WithField("to", msg.ToEmail).Warn("发送通知失败")
		return false
	}
	metrics.Notifications.WithLabelValues(driver, "sent").Inc()
	return true
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`<p>{{.FullName}}，您好：</p>
<p>您的租客账号已创建，请使用邮箱 <b>{{.Email}}</b> 登录查看合同与付款记录。</p>
<p>Boarding House</p>`))

// WelcomeNotification 新租客欢迎邮件
func WelcomeNotification(t *models.Tenant) (Notification, error) {
	var body bytes.Buffer
	if err := welcomeTemplate.Execute(&body, t); err != nil {
		return Notification{}, err
	}
	return Notification{
		ToEmail:  t.Email,
		ToName:   t.FullName,
		Subject:  "欢迎入住 / Welcome",
		HTMLBody: body.String(),
	}, nil
}
