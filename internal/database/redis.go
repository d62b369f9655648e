package database

import (
	"sync"

	"bhms/pkg/config"
	"bhms/pkg/queue"
)

var (
	mailQueueInstance *queue.MailQueue
	mailQueueOnce     sync.Once
)

// GetMailQueue 获取邮件队列的单例实例
func GetMailQueue() *queue.MailQueue {
	mailQueueOnce.Do(func() {
		cfg := config.GetConfig()
		mailQueueInstance = queue.NewMailQueue(&queue.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	})
	return mailQueueInstance
}

// CloseMailQueue 关闭Redis连接
func CloseMailQueue() error {
	if mailQueueInstance != nil {
		return mailQueueInstance.Close()
	}
	return nil
}
