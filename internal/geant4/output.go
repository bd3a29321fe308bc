package geant4

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// OutputPatterns are the globs scanned in a job's working directory after a
// real engine run.
var OutputPatterns = []string{"*.csv", "*.root", "*.txt", "*.dat"}

// FindOutputFiles globs workDir for engine output and groups full paths by
// extension (".csv", ".root", ...). Extensions with no matches are omitted.
func FindOutputFiles(workDir string, patterns ...string) map[string][]string {
	if len(patterns) == 0 {
		patterns = OutputPatterns
	}
	files := make(map[string][]string)
	for _, pattern := range patterns {
		matched, err := filepath.Glob(filepath.Join(workDir, pattern))
		if err != nil || len(matched) == 0 {
			continue
		}
		ext := strings.TrimPrefix(pattern, "*")
		files[ext] = matched
	}
	return files
}

// ParseCSV reads a headered CSV output file into one map per row. Cells that
// parse as numbers become float64, everything else stays a string.
func ParseCSV(path string) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rows []map[string]any
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(header))
		for i, key := range header {
			if i >= len(record) {
				break
			}
			if v, convErr := strconv.ParseFloat(record[i], 64); convErr == nil {
				row[key] = v
			} else {
				row[key] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// HistogramPoint is one bin of a text histogram.
type HistogramPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ASCIIHistogram is the parsed form of a two column text histogram written
// by the engine's analysis output.
type ASCIIHistogram struct {
	Header map[string]string `json:"header"`
	Points []HistogramPoint  `json:"data"`
}

// ParseASCIIHistogram reads a text histogram. Comment lines of the form
// "# key = value" populate the header; other lines contribute a point when
// both leading columns parse as numbers.
func ParseASCIIHistogram(path string) (*ASCIIHistogram, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	hist := &ASCIIHistogram{Header: make(map[string]string)}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			if key, value, ok := strings.Cut(line, "="); ok {
				hist.Header[strings.Trim(key, "# ")] = strings.TrimSpace(value)
			}
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		x, errX := strconv.ParseFloat(parts[0], 64)
		y, errY := strconv.ParseFloat(parts[1], 64)
		if errX != nil || errY != nil {
			continue
		}
		hist.Points = append(hist.Points, HistogramPoint{X: x, Y: y})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return hist, nil
}
