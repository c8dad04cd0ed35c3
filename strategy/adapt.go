package strategy

// AdaptInput 自适应所需的会话指标。
type AdaptInput struct {
	S                    float64
	OrderNotional        float64
	FillsPerMinute       float64
	ConsecutiveLosses    int
	MaxConsecutiveLosses int
}

// AdaptResult 调整后的报价参数。
type AdaptResult struct {
	S             float64
	OrderNotional float64
}

// AdaptParameters 按成交率与连亏调整偏移和名义金额。
// 三条规则相互独立且可叠加：
//   - 成交率低于 10 笔/分钟 → 收窄 s 20%（靠近盘口换成交）
//   - 连亏 > 5 → 放宽 s 20%，名义缩 30%
//   - 连亏 > maxConsecutiveLosses → 再次放宽/缩减（与上一条叠加）
func AdaptParameters(in AdaptInput) AdaptResult {
	out := AdaptResult{S: in.S, OrderNotional: in.OrderNotional}
	if in.FillsPerMinute < 10 {
		out.S *= 0.8
	}
	if in.ConsecutiveLosses > 5 {
		out.S *= 1.2
		out.OrderNotional *= 0.7
	}
	if in.ConsecutiveLosses > in.MaxConsecutiveLosses {
		out.S *= 1.2
		out.OrderNotional *= 0.7
	}
	return out
}
