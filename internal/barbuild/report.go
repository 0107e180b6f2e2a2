package barbuild

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
)

type failedEntry struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
	Reason    string `json:"reason"`
}

func writeRunReport(barDir string, successList []string, failedList []failedEntry) error {
	if err := os.MkdirAll(barDir, 0755); err != nil {
		return err
	}
	if len(successList) > 0 {
		p := filepath.Join(barDir, ".lastrun.success.json")
		data, err := json.MarshalIndent(successList, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0644); err != nil {
			return err
		}
		slog.Info("report wrote success", "path", p, "symbols", len(successList))
	}
	if len(failedList) > 0 {
		p := filepath.Join(barDir, ".lastrun.failed.json")
		data, err := json.MarshalIndent(failedList, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(p, data, 0644); err != nil {
			return err
		}
		slog.Info("report wrote failed", "path", p, "count", len(failedList))
	}
	return nil
}
