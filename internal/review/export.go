package review

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

const (
	csvFlushEvery = 200
	csvBufferSize = 32 * 1024
)

var exportHeader = []string{"Transaction ID", "Date", "Register ID", "Employee", "Type", "Amount", "Status", "Flagged", "Reason"}

type csvStreamer struct {
	buf          *bufio.Writer
	csv          *csv.Writer
	flushEvery   int
	pendingLines int
}

func newCSVStreamer(w io.Writer) *csvStreamer {
	buf := bufio.NewWriterSize(w, csvBufferSize)
	writer := csv.NewWriter(buf)
	writer.UseCRLF = true
	return &csvStreamer{buf: buf, csv: writer, flushEvery: csvFlushEvery}
}

func (s *csvStreamer) writeRow(row []string) error {
	if s == nil || s.csv == nil {
		return fmt.Errorf("csv streamer not initialised")
	}
	if err := s.csv.Write(row); err != nil {
		return err
	}
	s.pendingLines++
	if s.flushEvery > 0 && s.pendingLines >= s.flushEvery {
		return s.flush()
	}
	return nil
}

func (s *csvStreamer) flush() error {
	s.csv.Flush()
	if err := s.csv.Error(); err != nil {
		return err
	}
	if err := s.buf.Flush(); err != nil {
		return err
	}
	s.pendingLines = 0
	return nil
}

// WriteCSV streams transactions in the dashboard export layout.
func WriteCSV(w io.Writer, txns []Transaction) error {
	streamer := newCSVStreamer(w)
	if err := streamer.writeRow(exportHeader); err != nil {
		return err
	}
	for _, t := range txns {
		row := []string{
			t.ID,
			t.Date.Format("2006-01-02 15:04:05"),
			t.RegisterID,
			t.EmployeeName,
			t.Type,
			t.Amount.StringFixed(2),
			string(t.Status),
			strconv.FormatBool(t.IsFlagged),
			t.FlaggedReason,
		}
		if err := streamer.writeRow(row); err != nil {
			return err
		}
	}
	return streamer.flush()
}
