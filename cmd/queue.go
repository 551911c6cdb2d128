package cmd

import (
	"context"
	"fmt"

	"InterviewConv/cache"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "查看转换队列",
	Long:  `测试Redis连接并打印当前排队的转换任务数量。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		client, err := cache.ConnectRedis(cfg)
		if err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer client.Close()

		n, err := cache.NewConversionQueue(client).Len(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("排队中的转换任务: %d\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(queueCmd)
}
