package core

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/agenthands/leadblitz/internal/core/model"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	exportSheet = "Leads"
)

// ExportHeaders is the column order of a lead export.
var ExportHeaders = []string{
	"id", "name", "address", "phone", "website", "email", "score",
	"website_quality", "digital_presence", "automation_score",
	"stage", "notes", "email_source",
}

// ExportRow renders one lead. Component scores carry a leading quote so
// spreadsheets keep "12/30" as text; a zero component is left blank.
func ExportRow(l *model.Lead) []string {
	var quality, presence, automation string
	if r := l.ScoreReasoning; r != nil {
		quality = fraction(r.WebsiteQuality.Score, 30)
		presence = fraction(r.DigitalPresence.Score, 30)
		automation = fraction(r.AutomationOpportunity.Score, 40)
	}
	return []string{
		l.ID, l.Name, l.Address, l.Phone, l.Website, l.Email, strconv.Itoa(l.Score),
		quality, presence, automation,
		string(l.Stage), l.Notes, l.EmailSource,
	}
}

func fraction(score, of int) string {
	if score == 0 {
		return ""
	}
	return fmt.Sprintf("'%d/%d", score, of)
}

// Export writes every lead of the user to w as CSV or XLSX and returns the
// content type and attachment filename.
func (s *LeadBlitz) Export(ctx context.Context, userID, format string, w io.Writer) (string, string, error) {
	if format == "" {
		format = FormatCSV
	}
	if format != FormatCSV && format != FormatXLSX {
		return "", "", invalidf("Unsupported export format: %s", format)
	}
	leads, err := s.store.ListLeads(ctx, model.LeadFilter{UserID: userID})
	if err != nil {
		return "", "", err
	}
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "leads.xlsx", WriteXLSX(w, leads)
	}
	return "text/csv", "leads.csv", WriteCSV(w, leads)
}

func WriteCSV(w io.Writer, leads []*model.Lead) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeaders); err != nil {
		return err
	}
	for _, l := range leads {
		if err := cw.Write(ExportRow(l)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes a single-sheet workbook. The score column is numeric.
func WriteXLSX(w io.Writer, leads []*model.Lead) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(f.GetActiveSheetIndex()), exportSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}
	for i, h := range ExportHeaders {
		axis, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(exportSheet, axis, h); err != nil {
			return err
		}
	}
	for row, l := range leads {
		for col, v := range ExportRow(l) {
			axis, err := excelize.CoordinatesToCellName(col+1, row+2)
			if err != nil {
				return err
			}
			var value interface{} = v
			if ExportHeaders[col] == "score" {
				value = l.Score
			}
			if err := f.SetCellValue(exportSheet, axis, value); err != nil {
				return err
			}
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
