// Package rangestore reads and writes range tables in their YAML form and
// caches loaded tables per mode.
//
// File shape:
//
//	tasks:
//	  level_walking:
//	    phases:
//	      "0":
//	        hip_flexion_angle_ipsi_rad: {min: 0.2, max: 0.6}
//
// Phase keys are integer strings. Unit suffixes on variable names are
// stripped on load, so hip_flexion_angle_ipsi_rad becomes
// hip_flexion_angle_ipsi.
package rangestore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/banshee-data/gait.report/internal/fsutil"
	"github.com/banshee-data/gait.report/internal/gait"
)

// MaxFileSize bounds range table files.
const MaxFileSize = 4 * 1024 * 1024

// unitSuffixes are checked longest first.
var unitSuffixes = []string{"_Nm_kg", "_Nm/kg", "_rad", "_deg", "_Nm"}

type rangeFile struct {
	Tasks map[string]taskEntry `yaml:"tasks"`
}

type taskEntry struct {
	Phases map[string]map[string]gait.Range `yaml:"phases"`
}

// StripUnits removes a trailing unit suffix from a variable name.
func StripUnits(name string) string {
	for _, suffix := range unitSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return name
}

// Load reads a range table from path. A missing or unreadable file is
// reported as *gait.ConfigurationError.
func Load(fsys fsutil.FileSystem, path string) (*gait.RangeTable, error) {
	info, err := fsys.Stat(path)
	if err != nil {
		return nil, &gait.ConfigurationError{Path: path, Err: err}
	}
	if info.Size() > MaxFileSize {
		return nil, &gait.ConfigurationError{Path: path, Err: fmt.Errorf("file too large: %d bytes (max %d)", info.Size(), MaxFileSize)}
	}
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, &gait.ConfigurationError{Path: path, Err: err}
	}
	table, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse range table %s: %w", path, err)
	}
	return table, nil
}

// Decode parses a range table from r.
func Decode(r io.Reader) (*gait.RangeTable, error) {
	var f rangeFile
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	tasks := make(map[string]gait.TaskRanges, len(f.Tasks))
	for task, entry := range f.Tasks {
		tr := make(gait.TaskRanges, len(entry.Phases))
		for key, vars := range entry.Phases {
			phase, err := strconv.Atoi(strings.TrimSpace(key))
			if err != nil {
				return nil, fmt.Errorf("task %s: phase key %q is not an integer", task, key)
			}
			pr := make(gait.PhaseRanges, len(vars))
			for name, r := range vars {
				stripped := StripUnits(name)
				if _, dup := pr[stripped]; dup {
					return nil, fmt.Errorf("task %s phase %d: variable %s defined twice", task, phase, stripped)
				}
				pr[stripped] = r
			}
			tr[phase] = pr
		}
		tasks[task] = tr
	}
	return gait.NewRangeTable(tasks)
}

// Encode writes table to w in the file shape above.
func Encode(w io.Writer, table *gait.RangeTable) error {
	f := rangeFile{Tasks: make(map[string]taskEntry)}
	for task, phases := range table.Map() {
		entry := taskEntry{Phases: make(map[string]map[string]gait.Range, len(phases))}
		for phase, vars := range phases {
			entry.Phases[strconv.Itoa(phase)] = vars
		}
		f.Tasks[task] = entry
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return err
	}
	return enc.Close()
}

// Save writes table to path.
func Save(fsys fsutil.FileSystem, path string, table *gait.RangeTable) error {
	var buf bytes.Buffer
	if err := Encode(&buf, table); err != nil {
		return fmt.Errorf("encode range table: %w", err)
	}
	if err := fsys.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write range table %s: %w", path, err)
	}
	return nil
}

// IsMissing reports whether err came from an absent range table file.
func IsMissing(err error) bool {
	return errors.Is(err, gait.ErrConfiguration) && errors.Is(err, fs.ErrNotExist)
}
