// 账户余额探针：验证凭证与签名是否正确。
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"ping-maker-go/gateway"
)

func main() {
	baseURL := flag.String("baseURL", "https://api.binance.com", "REST 地址")
	flag.Parse()

	apiKey := os.Getenv("PM_GATEWAY_API_KEY")
	apiSecret := os.Getenv("PM_GATEWAY_API_SECRET")
	if apiKey == "" || apiSecret == "" {
		log.Fatal("需要 PM_GATEWAY_API_KEY 和 PM_GATEWAY_API_SECRET")
	}

	gw := gateway.NewBinanceREST(*baseURL, apiKey, apiSecret, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	acct, err := gw.GetAccountInfo(ctx)
	if err != nil {
		log.Fatalf("查询账户失败: %v", err)
	}

	fmt.Println("非零余额:")
	for _, b := range acct.Balances {
		if b.Free+b.Locked == 0 {
			continue
		}
		fmt.Printf("  %-8s free=%.8f locked=%.8f\n", b.Asset, b.Free, b.Locked)
	}
}
