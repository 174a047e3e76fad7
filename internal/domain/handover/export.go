package handover

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

const exportSheet = "인수인계"

var exportHeaders = []string{"인수인계일", "부서", "인계 근무조", "인수 근무조", "작성자", "AI 요약", "추가 메모", "작성 시각"}

// WriteXLSX writes one row per handover, in the given order.
func WriteXLSX(w io.Writer, handovers []*Handover, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DCE6F1"}},
	})
	if err != nil {
		return err
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}

	for i, h := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(exportSheet, cell, h); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(exportSheet, "A1", "H1", headerStyle); err != nil {
		return err
	}

	for r, h := range handovers {
		notes := ""
		if h.AdditionalNotes != nil {
			notes = *h.AdditionalNotes
		}
		row := []any{
			h.HandoverDate.Format(time.DateOnly),
			h.DepartmentName,
			string(h.FromShiftType),
			string(h.ToShiftType),
			h.CreatedByName,
			h.AISummary,
			notes,
			h.CreatedAt.In(loc).Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", r+2, err)
		}
	}

	if len(handovers) > 0 {
		last := fmt.Sprintf("G%d", len(handovers)+1)
		if err := f.SetCellStyle(exportSheet, "F2", last, wrapStyle); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(exportSheet, "A", "E", 14)
	_ = f.SetColWidth(exportSheet, "F", "F", 80)
	_ = f.SetColWidth(exportSheet, "G", "G", 40)
	_ = f.SetColWidth(exportSheet, "H", "H", 18)
	_ = f.SetPanes(exportSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	_, err = f.WriteTo(w)
	return err
}
