package offer

import (
	"time"

	"github.com/AgriDirect/AgriDirect/internal/common/apperr"
)

// 谈判是严格的轮流制：上一步行动方必须等待对方响应。
// 买家提交报价后由农户响应；任一方还价后轮到对方；
// accepted/rejected 为终态。

// CanRespond 判断 actor 此刻能否对报价采取行动。
func CanRespond(o *Offer, actor Actor) bool {
	if o == nil || !o.Open() {
		return false
	}
	return o.LastActionBy != actor
}

// ApplyCounter 记录一次还价并把回合交给对方。价格必须为正，轮数不设上限。
func ApplyCounter(o *Offer, actor Actor, price int64, now time.Time) error {
	if price <= 0 {
		return apperr.Validationf("counter price must be positive")
	}
	if !CanRespond(o, actor) {
		return apperr.InvalidTransitionf("counter by %s on offer in status %s (last action by %s)",
			actor, o.Status, o.LastActionBy)
	}
	o.Counters = append(o.Counters, CounterRecord{Price: price, By: actor, At: now})
	o.Status = StatusCountered
	o.LastActionBy = actor
	return nil
}

// ApplyAccept 接受当前在谈价格，报价进入终态。
func ApplyAccept(o *Offer, actor Actor) error {
	if !CanRespond(o, actor) {
		return apperr.InvalidTransitionf("accept by %s on offer in status %s (last action by %s)",
			actor, o.Status, o.LastActionBy)
	}
	o.Status = StatusAccepted
	o.LastActionBy = actor
	return nil
}

// ApplyReject 拒绝报价，进入终态。
func ApplyReject(o *Offer, actor Actor) error {
	if !CanRespond(o, actor) {
		return apperr.InvalidTransitionf("reject by %s on offer in status %s (last action by %s)",
			actor, o.Status, o.LastActionBy)
	}
	o.Status = StatusRejected
	o.LastActionBy = actor
	return nil
}
