package audithttp

import (
	"bytes"
	"encoding/csv"
	"time"

	"github.com/gatehouse-io/gatehouse/internal/audit"
)

func writeSecurityCSV(rows []audit.SecurityEvent) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	header := []string{"at", "type", "severity", "principal_id", "resource", "action", "resource_id", "reason", "ip", "user_agent"}
	if err := writer.Write(header); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.At.UTC().Format(time.RFC3339),
			row.Type,
			string(row.Severity),
			row.PrincipalID,
			row.Resource,
			row.Action,
			row.ResourceID,
			row.Reason,
			row.IP,
			row.UserAgent,
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
