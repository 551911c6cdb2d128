package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"InterviewConv/logger"
	"InterviewConv/server"

	"github.com/spf13/cobra"
)

var serverWithWorkers bool

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动HTTP服务器",
	Long:  `提供录制状态查询、转换日志和转换任务入队的 HTTP API；--with-workers 时同一进程内运行工作池。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cfg, true)
		if err != nil {
			return err
		}
		defer a.close()

		var presigner server.Presigner
		if a.store != nil {
			presigner = a.store
		}
		h := server.NewRecordingHandler(a.recordings, a.logs, a.queue(), presigner)

		if serverWithWorkers {
			done := make(chan struct{})
			go func() {
				defer close(done)
				if err := runWorkers(ctx, a, true); err != nil {
					logger.Error("workers stopped", logger.ErrorField(err))
				}
			}()
			defer func() {
				stop()
				<-done
			}()
		}

		return server.Serve(ctx, cfg.HTTPAddr, server.NewRouter(h))
	},
}

func init() {
	serverCmd.Flags().BoolVar(&serverWithWorkers, "with-workers", false, "同时运行转换工作池")
	rootCmd.AddCommand(serverCmd)
}
