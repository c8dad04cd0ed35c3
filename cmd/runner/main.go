package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"ping-maker-go/config"
	"ping-maker-go/gateway"
	"ping-maker-go/infrastructure/alert"
	"ping-maker-go/infrastructure/logger"
	"ping-maker-go/internal/engine"
	"ping-maker-go/journal"
	"ping-maker-go/market"
	"ping-maker-go/metrics"
	"ping-maker-go/posttrade"
	"ping-maker-go/risk"
	"ping-maker-go/session"
	"ping-maker-go/strategy"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	envFile := flag.String("env-file", "", "可选 .env 文件（凭证等敏感配置）")
	flag.Parse()

	if *envFile != "" {
		if err := godotenv.Load(*envFile); err != nil {
			fmt.Fprintf(os.Stderr, "load env file: %v\n", err)
			os.Exit(1)
		}
	}

	cfg, err := config.LoadWithEnvOverrides(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Outputs:    cfg.Logger.Outputs,
		OutputFile: cfg.Logger.OutputFile,
		Format:     cfg.Logger.Format,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	log.Info("ping maker starting",
		zap.String("env", cfg.Env),
		zap.String("symbol", cfg.Trading.Symbol),
		zap.Bool("dry_run", cfg.Trading.DryRun))

	if cfg.Metrics.Addr != "" {
		metrics.StartMetricsServer(cfg.Metrics.Addr)
		log.Info("metrics server listening", zap.String("addr", cfg.Metrics.Addr))
	}

	var jnl *journal.Journal
	if cfg.Journal.Path != "" {
		jnl, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			log.Fatal("open journal", zap.Error(err))
		}
		defer jnl.Close()
	}

	alerts := alert.NewManager(nil, time.Duration(cfg.Alerting.ThrottleSeconds)*time.Second)
	alerts.AddChannel(alert.NewLogChannel("log", log.Logger))
	if cfg.Alerting.WebhookURL != "" {
		alerts.AddChannel(alert.NewWebhookChannel("webhook", cfg.Alerting.WebhookURL,
			time.Duration(cfg.Alerting.WebhookTimeoutSec)*time.Second))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := market.NewService(nil)
	micro := strategy.NewEngine(strategy.Params{
		Ksig:         cfg.Trading.Ksig,
		SMinPercent:  cfg.Trading.SMinPercent,
		SMaxPercent:  cfg.Trading.SMaxPercent,
		TpMultiplier: cfg.Trading.TpMultiplier,
		SlMultiplier: cfg.Trading.SlMultiplier,
	})
	gate := risk.NewGatekeeper(risk.GateConfig{
		StopDayPercent:       cfg.Risk.StopDayPercent,
		MaxConsecutiveLosses: cfg.Risk.MaxConsecutiveLosses,
	}, nil)
	markout := posttrade.NewAnalyzer()

	// 干跑用内存撮合，实盘走签名 REST
	quote := gateway.QuoteAsset(cfg.Trading.Symbol)
	var gw gateway.ExecutionPort
	var equity float64
	if cfg.Trading.DryRun {
		// 干跑给一个固定的模拟余额，仓位上限与回撤基数都以它计
		equity = 10000
		paper := gateway.NewPaperGateway(gateway.AccountInfo{
			Balances: []gateway.Balance{{Asset: quote, Free: equity}},
		})
		feed.Publisher().SubscribeBook(paper.OnBookTick)
		gw = paper
		log.Warn("dry run mode: orders are simulated in memory")
	} else {
		if cfg.Gateway.APIKey == "" || cfg.Gateway.APISecret == "" {
			log.Fatal("live trading requires api credentials")
		}
		limiter := gateway.NewTokenBucketLimiter(cfg.Gateway.RestRate, cfg.Gateway.RestBurst)
		gw = gateway.NewBinanceREST(cfg.Gateway.BaseURL, cfg.Gateway.APIKey, cfg.Gateway.APISecret, limiter)

		// 回撤百分比以启动时的报价资产余额为基数
		acctCtx, acctCancel := context.WithTimeout(ctx, 10*time.Second)
		info, aerr := gw.GetAccountInfo(acctCtx)
		acctCancel()
		if aerr != nil {
			log.Warn("account info unavailable, drawdown uses default equity base", zap.Error(aerr))
		} else {
			equity = info.Total(quote)
			log.Info("account equity loaded",
				zap.String("asset", quote), zap.Float64("equity", equity))
		}
	}
	stats := session.NewStats(equity, time.Now())

	eng, err := engine.New(engine.Config{
		Symbol:               cfg.Trading.Symbol,
		OrderNotional:        cfg.Trading.OrderNotional,
		MaxLayers:            cfg.Trading.MaxLayers,
		TTL:                  time.Duration(cfg.Trading.TTLSeconds) * time.Second,
		Cooldown:             time.Duration(cfg.Trading.CooldownSeconds) * time.Second,
		UpdateInterval:       time.Duration(cfg.Engine.UpdateIntervalMs) * time.Millisecond,
		WatchdogTimeout:      time.Duration(cfg.Engine.WatchdogTimeoutSeconds) * time.Second,
		MaxConsecutiveLosses: cfg.Risk.MaxConsecutiveLosses,
		MaxLongQtyPercent:    cfg.Risk.MaxLongQtyPercent,
	}, engine.Components{
		Gateway: gw,
		Feed:    feed,
		Micro:   micro,
		Gate:    gate,
		Stats:   stats,
		Logger:  log,
		Journal: jnl,
		Alerts:  alerts,
		Markout: markout,
		Events:  eventLogger(log),
	})
	if err != nil {
		log.Fatal("build engine", zap.Error(err))
	}

	// 行情接入
	ws := gateway.NewWSFeed(cfg.Gateway.WSEndpoint, cfg.Trading.Symbol, log.Logger)
	go func() {
		if err := ws.Run(ctx, feed); err != nil && ctx.Err() == nil {
			log.Error("feed terminated", zap.Error(err))
		}
	}()

	// 配置热加载：只动调参字段
	if watcher, werr := config.NewWatcher(*configPath); werr != nil {
		log.Warn("config watcher disabled", zap.Error(werr))
	} else {
		go func() {
			_ = watcher.Run(ctx, func(u config.Update) {
				eng.SetTunables(strategy.Params{
					Ksig:         u.Trading.Ksig,
					SMinPercent:  u.Trading.SMinPercent,
					SMaxPercent:  u.Trading.SMaxPercent,
					TpMultiplier: u.Trading.TpMultiplier,
					SlMultiplier: u.Trading.SlMultiplier,
				}, risk.GateConfig{
					StopDayPercent:       u.Risk.StopDayPercent,
					MaxConsecutiveLosses: u.Risk.MaxConsecutiveLosses,
				}, engine.Tunables{
					OrderNotional:     u.Trading.OrderNotional,
					TTL:               time.Duration(u.Trading.TTLSeconds) * time.Second,
					Cooldown:          time.Duration(u.Trading.CooldownSeconds) * time.Second,
					MaxLayers:         u.Trading.MaxLayers,
					MaxLongQtyPercent: u.Risk.MaxLongQtyPercent,
				})
				log.Info("config reloaded")
			})
		}()
	}

	// 周期性落一份会话快照
	if jnl != nil {
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if err := jnl.Snapshot(stats.Snapshot(time.Now()), time.Now()); err != nil {
						log.Warn("session snapshot failed", zap.Error(err))
					}
				}
			}
		}()
	}

	if err := eng.Start(ctx); err != nil {
		log.Fatal("start engine", zap.Error(err))
	}
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)

	// systemd watchdog（未启用时 interval 为 0，直接跳过）
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		go func() {
			ticker := time.NewTicker(interval / 2)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
				}
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info("shutdown signal received", zap.String("signal", sig.String()))
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	cancel()
	if err := eng.Stop(); err != nil {
		log.Error("engine stop", zap.Error(err))
	}

	v := stats.Snapshot(time.Now())
	mk := markout.Stats()
	log.Info("session summary",
		zap.Float64("total_pnl", v.TotalPnL),
		zap.Int("trades", v.TotalTrades),
		zap.Int("wins", v.WinningTrades),
		zap.Int("losses", v.LosingTrades),
		zap.Float64("adverse_rate", mk.AdverseRate),
		zap.Float64("avg_markout_1s", mk.AvgMarkout1s))
}

// eventLogger 把引擎事件压成 debug 日志；高频事件不升级别。
func eventLogger(log *logger.Logger) engine.EventSink {
	return func(event string, fields map[string]interface{}) {
		zf := make([]zap.Field, 0, len(fields)+1)
		for k, v := range fields {
			zf = append(zf, zap.Any(k, v))
		}
		if event == "micro_stats" || strings.HasPrefix(event, "feed_") {
			log.Debug("engine event: "+event, zf...)
			return
		}
		log.Info("engine event: "+event, zf...)
	}
}
