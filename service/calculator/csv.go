package calculator

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/viant/afs"
	"github.com/viant/afs/file"
)

// WriteCSV uploads one disc,v0,v1,v2 row per result to URL, without header.
func WriteCSV(ctx context.Context, fs afs.Service, URL string, results []Result) error {
	buffer := new(bytes.Buffer)
	writer := csv.NewWriter(buffer)
	for _, result := range results {
		record := []string{formatFloat(result.Discount)}
		for _, v := range result.Values {
			record = append(record, formatFloat(v))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	if err := fs.Upload(ctx, URL, file.DefaultFileOsMode, buffer); err != nil {
		return fmt.Errorf("failed to write %v: %w", URL, err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
