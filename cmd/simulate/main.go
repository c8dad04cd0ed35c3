// 合成行情干跑：随机游走盘口 + 内存撮合，完整跑一遍分层引擎。
// 用来在不连交易所的情况下观察参数行为。
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ping-maker-go/gateway"
	"ping-maker-go/infrastructure/logger"
	"ping-maker-go/internal/engine"
	"ping-maker-go/market"
	"ping-maker-go/posttrade"
	"ping-maker-go/risk"
	"ping-maker-go/session"
	"ping-maker-go/strategy"
)

func main() {
	symbol := flag.String("symbol", "ETHUSDC", "交易对")
	startMid := flag.Float64("mid", 2000, "起始中间价")
	tickVol := flag.Float64("vol", 0.0004, "每 tick 对数收益率标准差")
	spreadBps := flag.Float64("spreadBps", 5, "盘口宽度（基点）")
	notional := flag.Float64("notional", 50, "每层名义金额")
	maxLayers := flag.Int("maxLayers", 3, "并发层上限")
	balance := flag.Float64("balance", 10000, "模拟账户报价资产余额")
	maxLongPct := flag.Float64("maxLongPct", 30, "在途多头名义上限（% of 余额）")
	duration := flag.Duration("duration", 2*time.Minute, "模拟时长")
	interval := flag.Duration("interval", 200*time.Millisecond, "tick 间隔")
	seed := flag.Int64("seed", 0, "随机种子（0 取当前时间）")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	lg, err := logger.New(logger.Config{Level: "info", Outputs: []string{"stdout"}, Format: "console"})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer lg.Close()

	feed := market.NewService(nil)
	paper := gateway.NewPaperGateway(gateway.AccountInfo{
		Balances: []gateway.Balance{{Asset: gateway.QuoteAsset(*symbol), Free: *balance}},
	})
	feed.Publisher().SubscribeBook(paper.OnBookTick)

	micro := strategy.NewEngine(strategy.Params{
		Ksig: 2.0, SMinPercent: 0.02, SMaxPercent: 0.15,
		TpMultiplier: 1.0, SlMultiplier: 2.0,
	})
	gate := risk.NewGatekeeper(risk.GateConfig{StopDayPercent: 2.0, MaxConsecutiveLosses: 7}, nil)
	stats := session.NewStats(*balance, time.Now())
	markout := posttrade.NewAnalyzer()

	eng, err := engine.New(engine.Config{
		Symbol:               *symbol,
		OrderNotional:        *notional,
		MaxLayers:            *maxLayers,
		TTL:                  30 * time.Second,
		Cooldown:             10 * time.Second,
		UpdateInterval:       100 * time.Millisecond,
		WatchdogTimeout:      time.Minute,
		MaxConsecutiveLosses: 7,
		MaxLongQtyPercent:    *maxLongPct,
	}, engine.Components{
		Gateway: paper,
		Feed:    feed,
		Micro:   micro,
		Gate:    gate,
		Stats:   stats,
		Logger:  lg,
		Markout: markout,
	})
	if err != nil {
		log.Fatalf("build engine: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := eng.Start(ctx); err != nil {
		log.Fatalf("start engine: %v", err)
	}

	fmt.Printf("模拟开始 seed=%d mid=%.2f vol=%.5f\n", *seed, *startMid, *tickVol)

	mid := *startMid
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			mid *= math.Exp(rng.NormFloat64() * *tickVol)
			half := mid * *spreadBps / 10000 / 2
			feed.OnBookTick(market.OrderBookTick{
				Symbol:   *symbol,
				BidPrice: mid - half,
				BidQty:   1 + rng.Float64()*4,
				AskPrice: mid + half,
				AskQty:   1 + rng.Float64()*4,
				Ts:       time.Now(),
			})
		}
	}

	if err := eng.Stop(); err != nil {
		log.Printf("engine stop: %v", err)
	}

	v := stats.Snapshot(time.Now())
	mk := markout.Stats()
	fmt.Printf("\n=== 模拟结果 ===\n")
	fmt.Printf("回合数: %d (胜 %d / 负 %d)  合计 PnL: %+.4f\n", v.TotalTrades, v.WinningTrades, v.LosingTrades, v.TotalPnL)
	fmt.Printf("最大连亏: %d  平均持仓: %s\n", v.ConsecutiveLosses, v.AvgTradeDuration.Round(time.Second))
	fmt.Printf("markout: 样本 %d  逆向选择率 %.2f  avg1s %+.5f  avg5s %+.5f\n",
		mk.AnalyzedFills, mk.AdverseRate, mk.AvgMarkout1s, mk.AvgMarkout5s)
	fmt.Printf("终盘价: %.2f  残留挂单: %d\n", mid, paper.OpenOrders(*symbol))
}
