package middleware

import (
	"sync"
	"time"

	"bhms/pkg/response"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// IPRateLimiter 按客户端IP限流
type IPRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*visitor
	rps      rate.Limit
	burst    int
	ttl      time.Duration
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewIPRateLimiter rps 为每秒补充的令牌数，burst 为桶容量
func NewIPRateLimiter(rps float64, burst int) *IPRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &IPRateLimiter{
		limiters: make(map[string]*visitor),
		rps:      rate.Limit(rps),
		burst:    burst,
		ttl:      10 * time.Minute,
	}
}

// Allow 判断该IP本次请求是否放行
func (l *IPRateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	v, ok := l.limiters[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[ip] = v
	}
	v.lastSeen = now

	// 顺带清理长时间未访问的IP
	if len(l.limiters) > 1024 {
		for key, item := range l.limiters {
			if now.Sub(item.lastSeen) > l.ttl {
				delete(l.limiters, key)
			}
		}
	}
	return v.limiter.Allow()
}

// Middleware 超出限制时返回 429 业务码
func (l *IPRateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			response.TooManyRequests(c, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}
		c.Next()
	}
}
