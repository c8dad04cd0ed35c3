package strategy

import "ping-maker-go/market"

// 盘口失衡阈值：中性区间 [0.4, 0.6] 内不做调整。
const (
	imbalanceHigh = 0.6
	imbalanceLow  = 0.4
)

// BookImbalance 买方挂量占比；两侧均为空时视为中性 0.5。
func BookImbalance(t market.OrderBookTick) float64 {
	total := t.BidQty + t.AskQty
	if total == 0 {
		return 0.5
	}
	return t.BidQty / total
}

// AdjustPricesForImbalance 依据失衡向挂量较重一侧平移报价。
// 平移量为买卖价带宽的 10%~15%，失衡越极端平移越大。
func AdjustPricesForImbalance(buyPrice, sellPrice, imbalance float64) (float64, float64) {
	band := sellPrice - buyPrice
	if band <= 0 {
		return buyPrice, sellPrice
	}

	var severity float64
	switch {
	case imbalance > imbalanceHigh:
		severity = (imbalance - imbalanceHigh) / (1 - imbalanceHigh)
	case imbalance < imbalanceLow:
		severity = -(imbalanceLow - imbalance) / imbalanceLow
	default:
		return buyPrice, sellPrice
	}

	factor := 0.10 + 0.05*abs(severity)
	shift := band * factor
	if severity > 0 {
		// 买方偏重：价格更可能上行，整体上移
		return buyPrice + shift, sellPrice + shift
	}
	return buyPrice - shift, sellPrice - shift
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
