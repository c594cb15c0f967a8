package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/betbot/titanbridge/internal/arbiter"
	"github.com/betbot/titanbridge/internal/delivery"
	"github.com/betbot/titanbridge/internal/metrics"
	"github.com/betbot/titanbridge/internal/webhook"
	"github.com/betbot/titanbridge/pkg/config"
	"github.com/betbot/titanbridge/pkg/logger"
	"github.com/betbot/titanbridge/pkg/shutdown"
)

func main() {
	// .env 可选，缺失时直接使用真实环境变量
	_ = godotenv.Load()

	configPath := flag.String("config", os.Getenv("TITAN_CONFIG"), "配置文件路径（yaml/json，可选）")
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		OutputFile: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     7,
		Compress:   true,
		JSON:       cfg.LogJSON,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	log := logrus.NewEntry(logger.Logger)
	if f := logger.GetCurrentLogFile(); f != "" {
		logger.Infof("日志文件: %s", f)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MetricsListen != "" {
		if _, err := metrics.StartAsync(ctx, cfg.MetricsListen); err != nil {
			logger.Errorf("metrics 服务启动失败: %v", err)
		}
	}

	var deliverer arbiter.Deliverer
	if cfg.DryRun {
		logger.Warnf("DRY_RUN 已开启：指令只记录日志，不会发送到 TradersPost")
		deliverer = delivery.NewDryRun(log)
	} else {
		deliverer = delivery.NewClient(cfg.TradersPost.WebhookURL,
			delivery.WithTimeout(cfg.DeliveryTimeout()),
			delivery.WithLogger(log),
		)
	}

	engine := arbiter.New(deliverer,
		arbiter.WithFreshnessWindow(cfg.FreshnessWindow()),
		arbiter.WithQuantity(cfg.TradersPost.DefaultQuantity),
		arbiter.WithInterval(cfg.TradersPost.Interval),
		arbiter.WithLogger(log),
	)

	srv := webhook.New(engine, webhook.Config{
		MaxConcurrentRequests: cfg.Server.MaxConcurrentRequests,
		MaxBodyBytes:          cfg.Server.MaxBodyBytes,
	}, log)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	mgr := shutdown.NewManager()
	mgr.OnShutdown("metrics", func(context.Context) error {
		cancel()
		return nil
	})
	mgr.OnShutdown("http", httpSrv.Shutdown)

	go func() {
		logger.Infof("titanbridge 监听 %s (freshness=%s qty=%d dry_run=%v)",
			cfg.Server.Listen, engine.FreshnessWindow(), cfg.TradersPost.DefaultQuantity, cfg.DryRun)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http 服务异常退出: %v", err)
			cancel()
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	select {
	case sig := <-stopCh:
		logger.Infof("收到信号 %s，开始退出", sig)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := mgr.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("退出时出现错误: %v", err)
	}
	logger.Info("titanbridge 已停止")
}
