package audit

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"
)

var csvHeader = []string{"id", "at", "actor", "action", "entity", "entity_id", "meta"}

// WriteCSV writes rows with a header line. Meta is JSON encoded.
func WriteCSV(w io.Writer, rows []TimelineRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		meta := ""
		if len(r.Meta) > 0 {
			b, err := json.Marshal(r.Meta)
			if err != nil {
				return err
			}
			meta = string(b)
		}
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.At.UTC().Format(time.RFC3339),
			r.Actor, r.Action, r.Entity, r.EntityID, meta,
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
