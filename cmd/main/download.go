package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	hugotAdapter "github.com/RichardKnop/mlserver/adapter/hugot"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the ONNX models used for local inference into the models directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		for _, model := range hugotModels(cfg) {
			path, err := hugotAdapter.EnsureModel(cmd.Context(), cfg.Hugot.ModelsDir, model, log)
			if err != nil {
				return fmt.Errorf("downloading %s: %w", model.Name, err)
			}
			log.Info("model ready", zap.String("model", model.Name), zap.String("path", path))
		}

		return nil
	},
}
