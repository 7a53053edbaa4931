package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"techrace/internal/model"
)

const (
	runIndexFile = "run_index.json"

	configFile     = "config.json"
	summaryFile    = "summary.json"
	metricsFile    = "metrics.csv"
	firmsFile      = "firms.json"
	topologyFile   = "topology.json"
	trajectoryFile = "firm_trajectories.csv"
	metricsColumns = 12
)

type RunConfig struct {
	RunID string `json:"run_id"`
	model.RunParameters
}

type RunSummary struct {
	RunID       string           `json:"run_id"`
	FinalStep   int              `json:"final_step"`
	StopReason  model.StopReason `json:"stop_reason"`
	FinalActive int              `json:"final_active"`
	MedianTAR   float64          `json:"median_tar"`
	MaxTAR      float64          `json:"max_tar"`
	Edges       int              `json:"edges"`
}

type TopologyEdge struct {
	From int `json:"from"`
	To   int `json:"to"`
}

type RunArtifacts struct {
	Config   RunConfig           `json:"config"`
	Summary  RunSummary          `json:"summary"`
	Metrics  []model.StepMetrics `json:"metrics"`
	Firms    []model.Firm        `json:"firms"`
	Topology []TopologyEdge      `json:"topology,omitempty"`
}

type RunIndexEntry struct {
	RunID        string           `json:"run_id"`
	Distribution string           `json:"distribution"`
	NumFirms     int              `json:"num_firms"`
	Seed         int64            `json:"seed"`
	FinalStep    int              `json:"final_step"`
	StopReason   model.StopReason `json:"stop_reason"`
	FinalActive  int              `json:"final_active"`
	CreatedAtUTC string           `json:"created_at_utc"`
}

func WriteRunArtifacts(baseDir string, artifacts RunArtifacts) (string, error) {
	if artifacts.Config.RunID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, artifacts.Config.RunID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, configFile), artifacts.Config); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, summaryFile), artifacts.Summary); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, firmsFile), artifacts.Firms); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, topologyFile), artifacts.Topology); err != nil {
		return "", err
	}
	if err := WriteStepMetricsCSV(filepath.Join(runDir, metricsFile), artifacts.Metrics); err != nil {
		return "", err
	}
	if hasFirmSnapshots(artifacts.Metrics) {
		if err := WriteFirmTrajectoriesCSV(filepath.Join(runDir, trajectoryFile), artifacts.Metrics); err != nil {
			return "", err
		}
	}

	return runDir, nil
}

func AppendRunIndex(baseDir string, entry RunIndexEntry) error {
	if entry.RunID == "" {
		return fmt.Errorf("run id is required")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return err
	}

	index, err := ListRunIndex(baseDir)
	if err != nil {
		return err
	}

	for i := range index {
		if index[i].RunID == entry.RunID {
			index[i] = entry
			return writeJSON(filepath.Join(baseDir, runIndexFile), index)
		}
	}

	index = append(index, entry)
	return writeJSON(filepath.Join(baseDir, runIndexFile), index)
}

// ListRunIndex returns entries newest first.
func ListRunIndex(baseDir string) ([]RunIndexEntry, error) {
	path := filepath.Join(baseDir, runIndexFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunIndexEntry{}, nil
		}
		return nil, err
	}

	var entries []RunIndexEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	type indexedEntry struct {
		entry RunIndexEntry
		idx   int
	}
	indexed := make([]indexedEntry, len(entries))
	for i := range entries {
		indexed[i] = indexedEntry{entry: entries[i], idx: i}
	}
	sort.Slice(indexed, func(i, j int) bool {
		if indexed[i].entry.CreatedAtUTC == indexed[j].entry.CreatedAtUTC {
			// Prefer later appended entries for equal timestamps.
			return indexed[i].idx > indexed[j].idx
		}
		return indexed[i].entry.CreatedAtUTC > indexed[j].entry.CreatedAtUTC
	})

	sorted := make([]RunIndexEntry, 0, len(indexed))
	for _, item := range indexed {
		sorted = append(sorted, item.entry)
	}
	return sorted, nil
}

func ExportRunArtifacts(baseDir, runID, outDir string) (string, error) {
	if runID == "" {
		return "", fmt.Errorf("run id is required")
	}

	src := filepath.Join(baseDir, runID)
	if _, err := os.Stat(src); err != nil {
		return "", err
	}

	dst := filepath.Join(outDir, runID)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return "", err
	}

	for _, file := range []string{configFile, summaryFile, metricsFile, firmsFile, topologyFile} {
		if err := copyFile(filepath.Join(src, file), filepath.Join(dst, file)); err != nil {
			return "", err
		}
	}
	trajectoryPath := filepath.Join(src, trajectoryFile)
	if _, err := os.Stat(trajectoryPath); err == nil {
		if err := copyFile(trajectoryPath, filepath.Join(dst, trajectoryFile)); err != nil {
			return "", err
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	return dst, nil
}

func ReadRunConfig(baseDir, runID string) (RunConfig, bool, error) {
	var cfg RunConfig
	ok, err := readJSON(filepath.Join(baseDir, runID, configFile), &cfg)
	return cfg, ok, err
}

func ReadRunSummary(baseDir, runID string) (RunSummary, bool, error) {
	var summary RunSummary
	ok, err := readJSON(filepath.Join(baseDir, runID, summaryFile), &summary)
	return summary, ok, err
}

func ReadFinalFirms(baseDir, runID string) ([]model.Firm, bool, error) {
	var firms []model.Firm
	ok, err := readJSON(filepath.Join(baseDir, runID, firmsFile), &firms)
	return firms, ok, err
}

func WriteStepMetricsCSV(path string, metrics []model.StepMetrics) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{
		"step", "active", "innovating", "median_tar", "max_tar", "skewness",
		"interval_0", "interval_1", "interval_2", "interval_3",
		"leaders", "followers",
	}); err != nil {
		return err
	}
	for _, m := range metrics {
		if err := writer.Write([]string{
			strconv.Itoa(m.Step),
			strconv.Itoa(m.Active),
			strconv.Itoa(m.Innovating),
			formatFloat(m.MedianTAR),
			formatFloat(m.MaxTAR),
			formatFloat(m.Skewness),
			strconv.Itoa(m.IntervalCounts[0]),
			strconv.Itoa(m.IntervalCounts[1]),
			strconv.Itoa(m.IntervalCounts[2]),
			strconv.Itoa(m.IntervalCounts[3]),
			strconv.Itoa(m.Leaders),
			strconv.Itoa(m.Followers),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadStepMetrics parses metrics.csv of a run. Per-firm snapshots are not
// part of the CSV and come back empty.
func ReadStepMetrics(baseDir, runID string) ([]model.StepMetrics, bool, error) {
	path := filepath.Join(baseDir, runID, metricsFile)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []model.StepMetrics{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < metricsColumns {
		return nil, false, fmt.Errorf("metrics header must have %d columns", metricsColumns)
	}

	metrics := make([]model.StepMetrics, 0, 128)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		m, err := parseMetricsRow(record)
		if err != nil {
			return nil, false, err
		}
		metrics = append(metrics, m)
	}
	return metrics, true, nil
}

func parseMetricsRow(record []string) (model.StepMetrics, error) {
	if len(record) < metricsColumns {
		return model.StepMetrics{}, fmt.Errorf("metrics row must have %d columns", metricsColumns)
	}
	ints := make([]int, 0, 9)
	for _, idx := range []int{0, 1, 2, 6, 7, 8, 9, 10, 11} {
		v, err := strconv.Atoi(strings.TrimSpace(record[idx]))
		if err != nil {
			return model.StepMetrics{}, fmt.Errorf("metrics column %d: %w", idx, err)
		}
		ints = append(ints, v)
	}
	floatsOut := make([]float64, 0, 3)
	for _, idx := range []int{3, 4, 5} {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
		if err != nil {
			return model.StepMetrics{}, fmt.Errorf("metrics column %d: %w", idx, err)
		}
		floatsOut = append(floatsOut, v)
	}
	return model.StepMetrics{
		Step:           ints[0],
		Active:         ints[1],
		Innovating:     ints[2],
		MedianTAR:      floatsOut[0],
		MaxTAR:         floatsOut[1],
		Skewness:       floatsOut[2],
		IntervalCounts: [model.IntervalCount]int{ints[3], ints[4], ints[5], ints[6]},
		Leaders:        ints[7],
		Followers:      ints[8],
	}, nil
}

// WriteFirmTrajectoriesCSV writes one row per firm per step from the
// snapshots recorded in metrics.
func WriteFirmTrajectoriesCSV(path string, metrics []model.StepMetrics) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write([]string{"step", "firm_id", "tar", "interval", "state", "active"}); err != nil {
		return err
	}
	for _, m := range metrics {
		for _, f := range m.Firms {
			if err := writer.Write([]string{
				strconv.Itoa(m.Step),
				strconv.Itoa(f.ID),
				formatFloat(f.TAR),
				strconv.Itoa(f.Interval),
				f.State,
				strconv.FormatBool(f.Active),
			}); err != nil {
				return err
			}
		}
	}
	writer.Flush()
	return writer.Error()
}

func hasFirmSnapshots(metrics []model.StepMetrics) bool {
	for _, m := range metrics {
		if len(m.Firms) > 0 {
			return true
		}
	}
	return false
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
