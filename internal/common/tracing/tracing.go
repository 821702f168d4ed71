package tracing

import (
	"fmt"
	"io"

	"github.com/AgriDirect/AgriDirect/internal/common/config"
	"github.com/opentracing/opentracing-go"
	"github.com/uber/jaeger-client-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// InitTracer 按配置初始化 Jaeger 并注册为全局 tracer，
// gin 中间件据此为每个请求开 span。
// 采样率 >= 1 用常量全采样，否则按概率采样。
// 返回的 closer 在进程退出前关闭，冲刷未上报的 span。
func InitTracer(serviceName string, jcfg config.JaegerConfig) (opentracing.Tracer, io.Closer, error) {
	samplerType := jaeger.SamplerTypeProbabilistic
	param := jcfg.Sampler
	if param >= 1 {
		samplerType = jaeger.SamplerTypeConst
		param = 1
	}

	cfg := &jaegercfg.Configuration{
		ServiceName: serviceName,
		Sampler: &jaegercfg.SamplerConfig{
			Type:  samplerType,
			Param: param,
		},
		Reporter: &jaegercfg.ReporterConfig{
			LogSpans:           true,
			LocalAgentHostPort: jcfg.Endpoint,
		},
	}

	tracer, closer, err := cfg.NewTracer(jaegercfg.Logger(jaeger.StdLogger))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init jaeger tracer: %w", err)
	}

	opentracing.SetGlobalTracer(tracer)
	return tracer, closer, nil
}
