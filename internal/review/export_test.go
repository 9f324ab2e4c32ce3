package review

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWriteCSV(t *testing.T) {
	txns := []Transaction{
		{
			ID:            "TXN-1",
			Date:          time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
			RegisterID:    "REG-01",
			EmployeeName:  "Dana",
			Type:          "refund",
			Amount:        amt("75.00"),
			Status:        StatusPending,
			IsFlagged:     true,
			FlaggedReason: ReasonHighValueRefund,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, txns))

	reader := csv.NewReader(&buf)
	rows, err := reader.ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, exportHeader, rows[0])
	require.Equal(t, []string{"TXN-1", "2026-03-14 09:30:00", "REG-01", "Dana", "refund", "75.00", "pending", "true", "High value refund"}, rows[1])
}
