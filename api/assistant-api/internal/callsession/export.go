// Copyright (c) 2024-2025 Cartline
// Author: Cartline Engineering <eng@cartline.ai>
//
// Licensed under GPL-2.0 with Cartline Additional Terms.
// See LICENSE.md or contact sales@cartline.ai for commercial usage.

package internal_callsession

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// exportColumns is the review-sheet layout. Transcript goes last so the
// narrow columns stay readable.
var exportColumns = []interface{}{
	"Session ID", "Store", "Caller", "Called", "Provider", "Status",
	"Query Type", "Call Reason", "Escalated", "Duration (s)", "Started At", "Transcript",
}

// Workbook renders sessions into an XLSX workbook in the order given.
// The caller owns the file and must Close it.
func Workbook(sessions []CallSession) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", &exportColumns); err != nil {
		return nil, fmt.Errorf("failed to write header row: %w", err)
	}

	for i, cs := range sessions {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("failed to address row %d: %w", i+2, err)
		}
		row := []interface{}{
			cs.SessionID,
			cs.StoreName,
			cs.Caller,
			cs.Called,
			cs.Provider,
			cs.Status,
			cs.QueryType,
			cs.CallReason,
			cs.Escalated,
			cs.DurationSeconds,
			cs.StartedAt.Format("2006-01-02 15:04:05"),
			cs.Transcript,
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	// Readable defaults; the transcript column stays scrollable.
	_ = f.SetColWidth(sheet, "A", "A", 38)
	_ = f.SetColWidth(sheet, "B", "H", 18)
	_ = f.SetColWidth(sheet, "K", "K", 20)
	_ = f.SetColWidth(sheet, "L", "L", 60)

	return f, nil
}
