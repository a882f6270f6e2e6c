package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/banshee-data/gait.report/internal/config"
	"github.com/banshee-data/gait.report/internal/gait"
	"github.com/banshee-data/gait.report/internal/gait/validate"
	"github.com/banshee-data/gait.report/internal/rangestore"
)

// stepFile is the on-disk form of a batch of steps: data[step][point][feature]
// with one task name per step.
type stepFile struct {
	Mode  gait.Mode       `json:"mode,omitempty"`
	Tasks []string        `json:"tasks"`
	Data  *gait.StepArray `json:"data"`
}

func readStepFile(path string) (*gait.StepArray, gait.StepTaskMapping, error) {
	b, err := fsys.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read step data: %w", err)
	}
	var f stepFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, nil, fmt.Errorf("parse step data %s: %w", path, err)
	}
	if f.Data == nil {
		return nil, nil, fmt.Errorf("step data %s: missing \"data\"", path)
	}
	if len(f.Tasks) != f.Data.Steps {
		return nil, nil, fmt.Errorf("step data %s: %d tasks for %d steps", path, len(f.Tasks), f.Data.Steps)
	}
	return f.Data, gait.MappingFromTasks(f.Tasks), nil
}

func writeStepFile(path string, f stepFile) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return fsys.WriteFile(path, b, 0644)
}

// loadRanges reads the range table for mode, preferring override over the
// configured path.
func loadRanges(cfg *config.EngineConfig, mode gait.Mode, override string) (*gait.RangeTable, error) {
	paths := cfg.RangesPaths()
	if override != "" {
		paths[mode] = override
	}
	return rangestore.NewFileCache(fsys, paths).Get(mode)
}

// runValidation validates task, or every task in mapping when task is empty.
// A named task that the table lacks is an error here, although the
// validator itself would skip it.
func runValidation(ctx context.Context, data *gait.StepArray, table *gait.RangeTable, mode gait.Mode, task string, mapping gait.StepTaskMapping) (validate.Result, error) {
	v, err := validate.NewValidator(mode)
	if err != nil {
		return validate.Result{}, err
	}
	if task == "" {
		if ctx == nil {
			ctx = context.Background()
		}
		return v.ValidateAll(ctx, data, table, mapping)
	}
	if _, err := table.Task(task); err != nil {
		return validate.Result{}, err
	}
	return v.Validate(data, table, task, mapping)
}
