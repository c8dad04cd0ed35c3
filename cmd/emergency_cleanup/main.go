// 紧急清理工具：撤掉全部挂单并市价抛掉残留底仓。
// 引擎失联或异常退出后手动兜底用。
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"ping-maker-go/gateway"
)

func main() {
	symbol := flag.String("symbol", "ETHUSDC", "交易对")
	baseAsset := flag.String("base", "", "底仓资产（默认从交易对推导）")
	baseURL := flag.String("baseURL", "https://api.binance.com", "REST 地址")
	minQty := flag.Float64("minQty", 0.0001, "低于该数量的残留忽略")
	flag.Parse()

	apiKey := os.Getenv("PM_GATEWAY_API_KEY")
	apiSecret := os.Getenv("PM_GATEWAY_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		log.Fatal("需要 PM_GATEWAY_API_KEY 和 PM_GATEWAY_API_SECRET")
	}

	sym := strings.ToUpper(*symbol)
	asset := strings.ToUpper(*baseAsset)
	if asset == "" {
		// ETHUSDC -> ETH；报价资产按常见后缀剥离
		for _, quote := range []string{"USDC", "USDT", "BUSD", "BTC"} {
			if strings.HasSuffix(sym, quote) {
				asset = strings.TrimSuffix(sym, quote)
				break
			}
		}
	}
	if asset == "" {
		log.Fatal("无法推导底仓资产，请用 -base 指定")
	}

	gw := gateway.NewBinanceREST(*baseURL, apiKey, apiSecret, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("🔸 撤销 %s 全部挂单...\n", sym)
	if err := gw.CancelAllOpenOrders(ctx, sym); err != nil {
		log.Printf("撤单失败（可能本来就没有挂单）: %v", err)
	} else {
		fmt.Println("✅ 挂单已清空")
	}

	fmt.Printf("\n🔸 查询 %s 残留底仓...\n", asset)
	acct, err := gw.GetAccountInfo(ctx)
	if err != nil {
		log.Fatalf("查询账户失败: %v", err)
	}
	qty := acct.Total(asset)
	fmt.Printf("当前持有: %.6f %s\n", qty, asset)

	if qty < *minQty {
		fmt.Println("✅ 没有需要处理的底仓")
		return
	}

	fmt.Printf("\n🔸 市价卖出 %.6f %s...\n", qty, asset)
	order, err := gw.PlaceOrder(ctx, gateway.OrderRequest{
		Symbol:   sym,
		Side:     gateway.SideSell,
		Type:     gateway.TypeMarket,
		Quantity: qty,
	})
	if err != nil {
		log.Fatalf("平仓失败: %v", err)
	}
	fmt.Printf("✅ 已提交，orderId=%s status=%s\n", order.ID, order.Status)
}
