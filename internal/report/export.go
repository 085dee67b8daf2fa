package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"burstbench/internal/stats"
)

// WriteCSV writes the latency series, one row per successful request in
// settlement order. The first column is the 1-based request number.
func WriteCSV(w io.Writer, res stats.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"request", "response_time_ms"}); err != nil {
		return err
	}
	for i, ms := range res.ResponseTimesMs {
		record := []string{strconv.Itoa(i + 1), strconv.FormatInt(ms, 10)}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteJSON writes the whole result, indented.
func WriteJSON(w io.Writer, res stats.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// WriteYAML writes the whole result.
func WriteYAML(w io.Writer, res stats.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return err
	}
	return enc.Close()
}

// ExportAll writes prefix.csv, prefix.json, prefix.yaml and, when there is
// latency data, prefix_chart.png. It returns the files written.
func ExportAll(res stats.Result, prefix string) ([]string, error) {
	writers := []struct {
		suffix string
		write  func(io.Writer, stats.Result) error
	}{
		{".csv", WriteCSV},
		{".json", WriteJSON},
		{".yaml", WriteYAML},
	}

	var written []string
	for _, wr := range writers {
		name := prefix + wr.suffix
		if err := writeFile(name, func(w io.Writer) error { return wr.write(w, res) }); err != nil {
			return written, err
		}
		written = append(written, name)
	}

	if len(res.ResponseTimesMs) == 0 {
		return written, nil
	}

	chart := NewResponseTimeChart(res.ResponseTimesMs)
	name := prefix + "_chart.png"
	if err := writeFile(name, chart.RenderPNG); err != nil {
		return written, err
	}
	return append(written, name), nil
}

func writeFile(name string, fn func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	return f.Close()
}
