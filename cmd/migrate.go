package cmd

import (
	"fmt"

	"InterviewConv/db"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "创建或更新录制相关的表",
	RunE: func(cmd *cobra.Command, args []string) error {
		gdb, err := db.ConnectGormDB(cfg)
		if err != nil {
			return err
		}
		defer db.CloseGormDB(gdb)

		if err := db.AutoMigrate(gdb); err != nil {
			return err
		}
		fmt.Println("迁移完成")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
