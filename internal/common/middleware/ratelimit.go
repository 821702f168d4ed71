package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// TokenBucket 令牌桶限流器
type TokenBucket struct {
	capacity   int64      // 桶容量
	tokens     int64      // 当前令牌数
	refillRate int64      // 每秒补充的令牌数
	lastRefill time.Time  // 上次补充时间
	mu         sync.Mutex // 锁
}

// NewTokenBucket 创建令牌桶
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow 检查是否允许请求
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(tb.lastRefill).Seconds()

	// 补充令牌
	tokensToAdd := int64(elapsed * float64(tb.refillRate))
	if tokensToAdd > 0 {
		tb.tokens = min64(tb.tokens+tokensToAdd, tb.capacity)
		tb.lastRefill = now
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}

	return false
}

// SlidingWindow 滑动窗口限流器
type SlidingWindow struct {
	requests    []time.Time   // 请求时间记录
	window      time.Duration // 时间窗口
	maxRequests int           // 最大请求数
	mu          sync.Mutex
}

// NewSlidingWindow 创建滑动窗口限流器
func NewSlidingWindow(window time.Duration, maxRequests int) *SlidingWindow {
	return &SlidingWindow{
		requests:    make([]time.Time, 0),
		window:      window,
		maxRequests: maxRequests,
	}
}

// Allow 检查是否允许请求
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	windowStart := now.Add(-sw.window)

	// 清理窗口外的请求
	validRequests := make([]time.Time, 0, len(sw.requests))
	for _, reqTime := range sw.requests {
		if reqTime.After(windowStart) {
			validRequests = append(validRequests, reqTime)
		}
	}
	sw.requests = validRequests

	if len(sw.requests) < sw.maxRequests {
		sw.requests = append(sw.requests, now)
		return true
	}

	return false
}

// RateLimit 按客户端 IP 维护令牌桶的 HTTP 限流中间件。
func RateLimit(capacity, refillRate int64) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		buckets = make(map[string]*TokenBucket)
	)
	return func(c *gin.Context) {
		key := c.ClientIP()

		mu.Lock()
		tb, ok := buckets[key]
		if !ok {
			tb = NewTokenBucket(capacity, refillRate)
			buckets[key] = tb
		}
		mu.Unlock()

		if !tb.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": "RATE_LIMITED", "message": "too many requests",
			})
			return
		}
		c.Next()
	}
}

// LoginThrottle 登录接口的滑动窗口限流（按客户端 IP），防止撞库。
func LoginThrottle(window time.Duration, maxRequests int) gin.HandlerFunc {
	var (
		mu      sync.Mutex
		windows = make(map[string]*SlidingWindow)
	)
	return func(c *gin.Context) {
		key := c.ClientIP()

		mu.Lock()
		sw, ok := windows[key]
		if !ok {
			sw = NewSlidingWindow(window, maxRequests)
			windows[key] = sw
		}
		mu.Unlock()

		if !sw.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code": "RATE_LIMITED", "message": "too many login attempts",
			})
			return
		}
		c.Next()
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
