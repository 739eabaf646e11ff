package tracker

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"CryptoSentinel/internal/model"
)

// LoadSignals reads the signal store. Returns an empty list if the file doesn't exist.
func LoadSignals(filePath string) ([]*model.MonitoredSignal, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read signal store: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	var signals []*model.MonitoredSignal
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, fmt.Errorf("parse signal store: %w", err)
	}
	return signals, nil
}

// SaveSignals writes the signal store atomically through a temp file in
// the same directory followed by a rename.
func SaveSignals(filePath string, signals []*model.MonitoredSignal) error {
	if signals == nil {
		signals = []*model.MonitoredSignal{}
	}
	data, err := json.MarshalIndent(signals, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(filePath)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filePath)
}
