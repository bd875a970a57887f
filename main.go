package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"conquerors/catalog"
	"conquerors/server"
)

// 入口：启动 HTTP + WebSocket 服务、房间目录与全局 Tick 循环
func main() {
	var (
		cfgPath string
		addr    string
		logFile string
	)
	flag.StringVar(&cfgPath, "config", "", "optional YAML config file")
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :8080 (overrides config)")
	flag.StringVar(&logFile, "log", "", "log file path (overrides config)")
	flag.Parse()

	cfg, err := server.LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}

	// 使用 zap 日志库写入日志文件（带滚动）
	if err := server.InitLogger(cfg.LogFile, cfg.LogLevel); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	store, err := catalog.Open(openCtx, cfg.Catalog.Driver, cfg.Catalog.DSN, cfg.Catalog.Database)
	cancel()
	if err != nil {
		server.Log.Fatalf("catalog: %v", err)
	}

	opts := []server.DispatcherOption{server.WithPhaseRecorder(store)}
	var journal *server.Journal
	if cfg.JournalDir != "" {
		journal = server.NewJournal(cfg.JournalDir)
		opts = append(opts, server.WithJournal(journal))
	}

	rooms := server.NewRoomManager()
	dispatcher := server.NewDispatcher(rooms, opts...)
	engine := server.NewTickEngine(rooms, cfg.TickInterval(), cfg.ScaleByElapsed)

	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		engine.Run(ctx)
	}()

	srv := &http.Server{Addr: cfg.Addr, Handler: server.NewRouter(rooms, dispatcher, store, cfg)}
	go func() {
		server.Log.Infof("listening on %s (catalog=%s tick=%s)", cfg.Addr, cfg.Catalog.Driver, cfg.TickInterval())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）：停 Tick → 关 HTTP → 断开所有房间 → 等目录同步 → 关日志与目录
	<-ctx.Done()
	server.Log.Info("Shutting down...")
	<-tickDone
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		server.Log.Warnf("shutdown: %v", err)
	}
	// Shutdown 不管已劫持的 websocket，这里逐个销毁房间
	rooms.CloseAll()
	dispatcher.Wait()
	if journal != nil {
		if err := journal.Close(); err != nil {
			server.Log.Warnf("journal close: %v", err)
		}
	}
	if err := store.Close(); err != nil {
		server.Log.Warnf("catalog close: %v", err)
	}
}
