package risk

// 仓位辅助计算，输入来自账户余额查询（Execution Port）。

// CalculatePositionLimit 多头仓位名义上限。
func CalculatePositionLimit(totalBalance, maxLongQtyPercent float64) float64 {
	if totalBalance <= 0 || maxLongQtyPercent <= 0 {
		return 0
	}
	return totalBalance * maxLongQtyPercent / 100
}

// CalculateMaxOrderSize 单笔最大下单数量：总余额的 10% 按当前价折算。
func CalculateMaxOrderSize(totalBalance, price float64) float64 {
	if totalBalance <= 0 || price <= 0 {
		return 0
	}
	return 0.1 * totalBalance / price
}

// CanOpenNewPosition 当前持仓名义加上新订单后是否仍在仓位上限内。
func CanOpenNewPosition(inventoryNotional, orderNotional, totalBalance, maxLongQtyPercent float64) bool {
	limit := CalculatePositionLimit(totalBalance, maxLongQtyPercent)
	if limit <= 0 {
		return false
	}
	return inventoryNotional+orderNotional <= limit
}
