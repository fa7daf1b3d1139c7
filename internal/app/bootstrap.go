package app

import (
	"context"
	"errors"

	"github.com/skinshop-next/internal/config"
	"github.com/skinshop-next/internal/logger"
	"github.com/skinshop-next/internal/provider"
	"github.com/skinshop-next/internal/queue"
	"github.com/skinshop-next/internal/router"
	"github.com/skinshop-next/internal/worker"
)

// BuildRunner 构建服务运行器
func BuildRunner(cfg *config.Config, mode string) (*Runner, *provider.Container, error) {
	if cfg == nil {
		return nil, nil, errors.New("config is nil")
	}

	container := provider.NewContainer(cfg)

	var services []Service

	// 初始化 HTTP 服务；会话恢复异步进行，期间请求得到 503
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		addr := cfg.Server.Host + ":" + cfg.Server.Port
		services = append(services, NewHTTPService(addr, engine))
		go container.Rehydrate(context.Background())
	}

	// 初始化 Worker 服务
	if mode == ModeAll || mode == ModeWorker {
		workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
		switch {
		case errors.Is(err, queue.ErrQueueDisabled) && mode == ModeAll:
			logger.Warnw("app_worker_skipped", "reason", "queue disabled, cart cleanup retries are not scheduled")
		case err != nil:
			container.Close()
			return nil, nil, err
		default:
			services = append(services, workerService)
		}
	}

	if len(services) == 0 {
		container.Close()
		return nil, nil, errors.New("no services initialized (check mode and config)")
	}

	return NewRunner(services...), container, nil
}

// Run 应用启动入口
func Run(opts Options) error {
	if _, err := ParseMode(opts.Mode); err != nil {
		return err
	}
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, container, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	runner.OnShutdown(container.Close)

	addr := opts.Config.Server.Host + ":" + opts.Config.Server.Port
	opts.Logger.Infow("app_start", "addr", addr, "mode", opts.Mode, "upstream", opts.Config.Upstream.BaseURL)
	return RunWithOptions(runner, opts)
}
