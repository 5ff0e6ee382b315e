// banci 排班引擎服务
// 主程序入口

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/banci/banci/internal/config"
	"github.com/banci/banci/internal/database"
	"github.com/banci/banci/internal/handler"
	"github.com/banci/banci/internal/notify"
	"github.com/banci/banci/internal/repository"
	"github.com/banci/banci/internal/store"
	"github.com/banci/banci/pkg/logger"
	"github.com/banci/banci/pkg/model"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger.Init(logger.Config{
		Level:  cfg.App.LogLevel,
		Format: cfg.App.LogFormat,
	})

	logger.Info().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("git_commit", GitCommit).
		Str("env", cfg.App.Env).
		Msg("banci 排班引擎")

	// 数据库は任意。無効なら監査はメモリ、従業員は既定名簿。
	var db *database.DB
	if cfg.Database.Enabled {
		db, err = database.New(&cfg.Database)
		if err != nil {
			logger.Error().Err(err).Msg("数据库连接失败")
			os.Exit(1)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.Migrate(ctx); err != nil {
			cancel()
			logger.Error().Err(err).Msg("数据库初始化失败")
			os.Exit(1)
		}
		cancel()
	}

	employees := loadEmployees(db)
	logger.Info().Int("employees", len(employees)).Msg("従業員名簿を読み込みました")

	var auditRepo *repository.AuditRepository
	if db != nil {
		auditRepo = repository.NewAuditRepository(db)
	} else {
		auditRepo = repository.NewAuditRepository(nil)
	}

	st := store.New(func(actor, action string, meta map[string]interface{}) {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		auditRepo.Record(ctx, actor, action, meta)
	})

	notifier := notify.New(cfg.Notify.Endpoint, cfg.Notify.Timeout)

	h := handler.NewHandler(cfg, st, employees, notifier, db)
	h.RegisterRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      h.Mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().
			Int("port", cfg.App.Port).
			Str("url", fmt.Sprintf("http://localhost:%d", cfg.App.Port)).
			Msg("服务器启动")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("服务器启动失败")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("正在关闭服务器...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("服务器关闭失败")
		os.Exit(1)
	}

	logger.Info().Msg("服务器已关闭")
}

// loadEmployees 从数据库读取员工目录，失败或为空则回退到默认名簿
func loadEmployees(db *database.DB) model.Directory {
	if db == nil {
		return repository.DefaultDirectory()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	dir, err := repository.NewEmployeeRepository(db).LoadAll(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("従業員マスタの読み込みに失敗しました。既定名簿を使用します")
		return repository.DefaultDirectory()
	}
	if len(dir) == 0 {
		return repository.DefaultDirectory()
	}
	return dir
}
