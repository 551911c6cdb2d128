package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"InterviewConv/cache"
	"InterviewConv/core/converter"
	"InterviewConv/core/worker"
	"InterviewConv/logger"

	"github.com/spf13/cobra"
)

var (
	convertReconvert bool
	convertLeftGain  float64
	convertRightGain float64
	convertEnqueue   bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <recordingId>",
	Short: "转换一个面试录制",
	Long:  `同步执行一次转换并打印每个外部工具的执行结果；--enqueue 时只把任务放入队列。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid recording id %q", args[0])
		}
		if convertLeftGain < 0 || convertRightGain < 0 {
			return fmt.Errorf("gain must not be negative")
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(cfg, convertEnqueue)
		if err != nil {
			return err
		}
		defer a.close()

		if convertEnqueue {
			job := jobFromFlags(id)
			if err := a.queue().Enqueue(ctx, job); err != nil {
				return err
			}
			fmt.Printf("recording %d queued\n", id)
			return nil
		}

		var params *converter.ReconversionParams
		if convertReconvert {
			params = worker.ParamsOf(jobFromFlags(id))
		}
		out := a.converter.StartConversion(ctx, id, params)

		for i, r := range out.Log.Items() {
			fmt.Printf("%2d. %-22s exit=%-3d %s\n", i+1, r.Process, r.ExitCode, r.Elapsed)
			if !r.IsOK() && r.Error != "" {
				fmt.Printf("    %s\n", r.Error)
			}
		}
		if out.Kind != converter.OutcomeUnattributable {
			if err := a.logs.Replace(ctx, id, out.Log.Items()); err != nil {
				logger.Error("failed to save conversion log", logger.Int64("recordingId", id), logger.ErrorField(err))
			}
		}

		switch out.Kind {
		case converter.OutcomeProcessed:
			fmt.Printf("recording %d processed: %s\n", id, out.OutputPath)
			return nil
		case converter.OutcomeIndeterminate:
			return fmt.Errorf("recording %d: no valid pods, status left at CONVERTING", id)
		default:
			return fmt.Errorf("recording %d %s: %w", id, out.Kind, out.Err)
		}
	},
}

func jobFromFlags(id int64) cache.ConversionJob {
	return cache.ConversionJob{RecordingID: id, Reconvert: convertReconvert, LeftGain: convertLeftGain, RightGain: convertRightGain}
}

func init() {
	convertCmd.Flags().BoolVar(&convertReconvert, "reconvert", false, "重新转换，使用 --left-gain/--right-gain")
	convertCmd.Flags().Float64Var(&convertLeftGain, "left-gain", 1, "左侧音量")
	convertCmd.Flags().Float64Var(&convertRightGain, "right-gain", 1, "右侧音量")
	convertCmd.Flags().BoolVar(&convertEnqueue, "enqueue", false, "只入队，由 worker 执行")
	rootCmd.AddCommand(convertCmd)
}
