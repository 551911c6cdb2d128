package cmd

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"InterviewConv/core/worker"
	"InterviewConv/logger"

	"github.com/spf13/cobra"
)

var workerNoSpool bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "启动转换工作池",
	Long:  `从 Redis 队列取出转换任务执行，同时监听 spool 目录中录制完成的标记文件。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cfg, true)
		if err != nil {
			return err
		}
		defer a.close()

		return runWorkers(ctx, a, !workerNoSpool)
	},
}

// runWorkers runs the pool, and the spool watcher when enabled, until ctx ends.
func runWorkers(ctx context.Context, a *app, spool bool) error {
	queue := a.queue()
	pool := worker.NewPool(queue, a.lock(), a.converter, a.logs, cfg.Workers)

	var wg sync.WaitGroup
	errc := make(chan error, 1)
	if spool {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := worker.NewSpoolWatcher(cfg.SpoolDir, queue).Run(ctx); err != nil {
				logger.Error("spool watcher stopped", logger.ErrorField(err))
				errc <- err
			}
		}()
	}

	pool.Run(ctx)
	wg.Wait()

	select {
	case err := <-errc:
		return err
	default:
		return nil
	}
}

func init() {
	workerCmd.Flags().BoolVar(&workerNoSpool, "no-spool", false, "不监听 spool 目录")
	rootCmd.AddCommand(workerCmd)
}
