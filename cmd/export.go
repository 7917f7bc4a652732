package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"clearance-server-go/clearance"
	"clearance-server-go/report"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the clearance report to an .xlsx file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		_, log, store, cleanup, err := bootstrap()
		if err != nil {
			return err
		}
		defer cleanup()

		service := clearance.NewService(store, log)
		if err := service.Load(cmd.Context()); err != nil {
			return fmt.Errorf("failed to load clearance records: %w", err)
		}

		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		if err := report.ExportClearance(f, service.Departments(), service.Students()); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		log.Info("clearance report written", zap.String("path", exportOut))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "clearance.xlsx", "output file")
}
