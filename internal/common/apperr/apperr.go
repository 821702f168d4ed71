package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// 业务错误分类（全部为“可恢复”错误：调用方收到后刷新本地状态即可）。
// handler 层统一用 errors.Is 判断并映射为 HTTP 状态码，不做字符串匹配。
var (
	// ErrInvalidStateTransition 当前状态不允许该操作（如已支付后取消、非己方回合应价）。
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrConflict 并发竞争失败（状态守卫更新未命中，需重新拉取最新状态）。
	ErrConflict = errors.New("conflict")
	// ErrAlreadyAssigned 订单已被其他司机抢先接单。
	ErrAlreadyAssigned = errors.New("already assigned to another driver")
	// ErrInsufficientQuantity 报价数量超过货品当前可预留库存。
	ErrInsufficientQuantity = errors.New("insufficient quantity")
	// ErrValidation 入参校验失败（缺字段、非正数价格等）。
	ErrValidation = errors.New("validation error")
	// ErrNotFound 资源不存在，或调用方无权访问该资源。
	ErrNotFound = errors.New("not found")
	// ErrOTPMismatch 提交的送达 OTP 与订单签发的不一致。
	ErrOTPMismatch = errors.New("otp mismatch")
	// ErrUnauthorized 未认证或凭证无效。
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden 角色不允许执行该操作。
	ErrForbidden = errors.New("forbidden")
)

// Validationf 构造带说明的校验错误。
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// NotFoundf 构造带说明的“不存在/无权访问”错误。
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// InvalidTransitionf 构造带说明的非法状态流转错误。
func InvalidTransitionf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidStateTransition)...)
}

// Code 返回错误对应的机器可读编码，供前端按类型更新界面。
func Code(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyAssigned):
		return "ALREADY_ASSIGNED"
	case errors.Is(err, ErrConflict):
		return "CONFLICT"
	case errors.Is(err, ErrInvalidStateTransition):
		return "INVALID_STATE_TRANSITION"
	case errors.Is(err, ErrInsufficientQuantity):
		return "INSUFFICIENT_QUANTITY"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrOTPMismatch):
		return "OTP_MISMATCH"
	case errors.Is(err, ErrUnauthorized):
		return "UNAUTHORIZED"
	case errors.Is(err, ErrForbidden):
		return "FORBIDDEN"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus 返回错误对应的 HTTP 状态码。
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrOTPMismatch):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidStateTransition),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrAlreadyAssigned),
		errors.Is(err, ErrInsufficientQuantity):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// JSON 将业务错误写为统一的 JSON 响应体。
func JSON(c *gin.Context, err error) {
	c.JSON(HTTPStatus(err), gin.H{
		"code":    Code(err),
		"message": err.Error(),
	})
}
