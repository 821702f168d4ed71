package notify

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/AgriDirect/AgriDirect/internal/common/breaker"
	"github.com/AgriDirect/AgriDirect/internal/common/logger"
)

// SMSSender 短信通道抽象。生产环境接网关，开发环境落日志。
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// LogSender 把短信内容写进日志，用于本地开发与测试。
type LogSender struct {
	log logger.Logger
}

func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, phone, message string) error {
	if s.log != nil {
		s.log.WithFields(map[string]interface{}{
			"phone":   phone,
			"message": message,
		}).Info("sms sent")
	}
	return nil
}

// Service 通知服务。短信通道经熔断器保护，通道故障时快速失败，
// 不拖垮调用方的主流程。
type Service struct {
	sender SMSSender
	cb     *breaker.CircuitBreaker
	log    logger.Logger
}

func NewService(sender SMSSender, log logger.Logger) *Service {
	return &Service{
		sender: sender,
		cb:     breaker.New("sms", 5, 30*time.Second),
		log:    log,
	}
}

// SendOTP 向买家下发送达验证码。发送失败只记日志，主流程不回滚。
func (s *Service) SendOTP(ctx context.Context, phone, otp string) error {
	if s == nil || s.sender == nil {
		return fmt.Errorf("notify service not initialized")
	}
	msg := fmt.Sprintf("Your AgriDirect delivery OTP is %s. Share it with the driver only on delivery.", otp)
	return s.cb.Call(ctx, func() error {
		return s.sender.Send(ctx, phone, msg)
	})
}

// GenerateOTP 生成指定位数的数字验证码，首位允许为 0。
func GenerateOTP(digits int) (string, error) {
	if digits <= 0 {
		digits = 6
	}
	max := big.NewInt(10)
	buf := make([]byte, digits)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate otp: %w", err)
		}
		buf[i] = byte('0' + n.Int64())
	}
	return string(buf), nil
}
