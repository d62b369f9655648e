package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrEmpty 在超时时间内队列中没有消息
var ErrEmpty = errors.New("队列为空")

// MailMessage 队列中的邮件消息
type MailMessage struct {
	ID       string `json:"id"`
	ToEmail  string `json:"to_email"`
	ToName   string `json:"to_name"`
	Subject  string `json:"subject"`
	HTMLBody string `json:"html_body"`
	Attempts int    `json:"attempts"`
	Created  int64  `json:"created"`
}

// Config Redis配置
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int
	Prefix   string
}

// MailQueue 基于Redis列表的邮件发件箱
type MailQueue struct {
	client *redis.Client
	prefix string
}

// NewMailQueue 创建邮件队列实例
func NewMailQueue(config *Config) *MailQueue {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", config.Host, config.Port),
		Password: config.Password,
		DB:       config.DB,
	})
	return NewMailQueueWithClient(client, config.Prefix)
}

// NewMailQueueWithClient 使用已有客户端创建队列
func NewMailQueueWithClient(client *redis.Client, prefix string) *MailQueue {
	if prefix == "" {
		prefix = "bhms:mail"
	}
	return &MailQueue{
		client: client,
		prefix: prefix,
	}
}

// Close 关闭Redis连接
func (q *MailQueue) Close() error {
	return q.client.Close()
}

// Ping 测试Redis连接
func (q *MailQueue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Enqueue 邮件入队（左侧入队，右侧出队）
func (q *MailQueue) Enqueue(ctx context.Context, msg *MailMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.Created == 0 {
		msg.Created = time.Now().Unix()
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化邮件消息失败: %w", err)
	}

	if err := q.client.LPush(ctx, q.pendingKey(), data).Err(); err != nil {
		return fmt.Errorf("邮件入队失败: %w", err)
	}
	return nil
}

// Dequeue 阻塞读取一封邮件，超时返回 ErrEmpty
func (q *MailQueue) Dequeue(ctx context.Context, timeout time.Duration) (*MailMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.pendingKey()).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, fmt.Errorf("读取邮件队列失败: %w", err)
	}

	// BRPop 返回 [key, value]
	var msg MailMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("解析邮件消息失败: %w", err)
	}
	return &msg, nil
}

// DeadLetter 多次投递失败的邮件进入死信列表
func (q *MailQueue) DeadLetter(ctx context.Context, msg *MailMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return q.client.LPush(ctx, q.deadKey(), data).Err()
}

// Stats 队列长度统计
func (q *MailQueue) Stats(ctx context.Context) (map[string]int64, error) {
	pending, err := q.client.LLen(ctx, q.pendingKey()).Result()
	if err != nil {
		return nil, err
	}
	dead, err := q.client.LLen(ctx, q.deadKey()).Result()
	if err != nil {
		return nil, err
	}
	return map[string]int64{"pending": pending, "dead": dead}, nil
}

func (q *MailQueue) pendingKey() string {
	return q.prefix + ":pending"
}

func (q *MailQueue) deadKey() string {
	return q.prefix + ":dead"
}
