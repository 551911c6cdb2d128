package cmd

import (
	"context"
	"fmt"

	"InterviewConv/storage"

	"github.com/spf13/cobra"
)

var storageDelete bool

var storageCmd = &cobra.Command{
	Use:   "storage [hash]",
	Short: "MinIO录制文件管理",
	Long:  `列出上传到 MinIO 的录制文件及统计信息；带 hash 和 --delete 时删除该录制的全部文件。`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := storage.NewMinioStore(cfg)
		if err != nil {
			return err
		}
		if store == nil {
			return fmt.Errorf("MINIO_ENDPOINT is not set")
		}
		var hash string
		if len(args) == 1 {
			hash = args[0]
		}
		ctx := context.Background()

		if storageDelete {
			n, err := store.DeleteRecording(ctx, hash)
			if err != nil {
				return err
			}
			fmt.Printf("已删除 %d 个对象\n", n)
			return nil
		}

		objects, stats, err := store.ListRecordings(ctx, hash)
		if err != nil {
			return err
		}
		fmt.Printf("存储桶: %s 前缀: %s\n", cfg.MinioBucket, storage.RecordingPrefix(hash))
		fmt.Printf("总文件数: %d 总大小: %s\n", stats.TotalObjects, storage.FormatSize(stats.TotalSize))
		for _, obj := range objects {
			fmt.Printf("  %s  %s  %s\n", obj.LastModified.Format("2006-01-02 15:04:05"), storage.FormatSize(obj.Size), obj.Key)
		}
		return nil
	},
}

func init() {
	storageCmd.Flags().BoolVar(&storageDelete, "delete", false, "删除指定录制的全部文件")
	rootCmd.AddCommand(storageCmd)
}
