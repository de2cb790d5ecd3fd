package usage

import (
	"encoding/csv"
	"io"
	"strconv"
)

// WriteCSV renders the report's daily rows as CSV, oldest day first.
func WriteCSV(w io.Writer, rpt *Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"date", "input_tokens", "output_tokens", "cache_read", "cache_write",
		"total_tokens", "cost_usd", "messages",
	}); err != nil {
		return err
	}
	for _, d := range rpt.Days {
		row := []string{
			d.Date,
			strconv.FormatInt(d.InputTokens, 10),
			strconv.FormatInt(d.OutputTokens, 10),
			strconv.FormatInt(d.CacheRead, 10),
			strconv.FormatInt(d.CacheWrite, 10),
			strconv.FormatInt(d.TotalTokens, 10),
			strconv.FormatFloat(d.Cost, 'f', 6, 64),
			strconv.FormatInt(d.Messages, 10),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
