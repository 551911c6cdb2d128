package cmd

import (
	"fmt"
	"os"

	"InterviewConv/config"
	"InterviewConv/logger"

	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "interviewconv",
	Short: "Interview recording converter.",
	Long:  `把面试房间的录制流（每个参与者的 FLV 与 WAV）合成为一个左右并排的 MP4。`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
