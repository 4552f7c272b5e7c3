package report

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/garyjia/club-approvals/internal/application/port"
	"github.com/garyjia/club-approvals/internal/domain/entity"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// Columns written to every sheet, in order
var columns = []string{
	"ID",
	"Kind",
	"Title",
	"Department",
	"Your Status",
	"Comment",
	"Overall Status",
	"Created",
	"Updated",
}

// ExcelExporter renders a reviewer's categorized queue as an XLSX workbook
type ExcelExporter struct {
	sheetPrefix string
	logger      *zap.Logger
}

// NewExcelExporter creates a new Excel exporter. sheetPrefix is prepended to each status sheet name.
func NewExcelExporter(sheetPrefix string, logger *zap.Logger) *ExcelExporter {
	return &ExcelExporter{
		sheetPrefix: strings.TrimSpace(sheetPrefix),
		logger:      logger,
	}
}

// Export writes one sheet per bucket. Empty buckets still get a header row.
func (x *ExcelExporter) Export(ctx context.Context, role entity.RoleKey, sheets []port.ReviewSheet, w io.Writer) error {
	if len(sheets) == 0 {
		return fmt.Errorf("no sheets to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	defaultSheet := f.GetSheetName(0)
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := x.sheetName(sheet.Status)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("failed to rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}

		if err := x.writeSheet(f, name, role, sheet.Entities, headerStyle); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	x.logger.Info("Review queue exported",
		zap.String("role", role.String()),
		zap.Int("sheets", len(sheets)))

	return nil
}

func (x *ExcelExporter) writeSheet(f *excelize.File, name string, role entity.RoleKey, entities []*entity.ApprovableEntity, headerStyle int) error {
	header := make([]interface{}, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(columns), 1)
	if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
		x.logger.Warn("Failed to style header", zap.String("sheet", name), zap.Error(err))
	}

	for i, e := range entities {
		rec := e.State.RecordFor(role)
		row := []interface{}{
			e.ID,
			string(e.Kind),
			title(e),
			department(e),
			rec.Status.String(),
			rec.Comment,
			e.State.OverallStatus.String(),
			e.CreatedAt.Format("2006-01-02 15:04"),
			e.UpdatedAt.Format("2006-01-02 15:04"),
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(columns))
	if err := f.SetColWidth(name, "A", lastCol, 20); err != nil {
		x.logger.Warn("Failed to set column width", zap.String("sheet", name), zap.Error(err))
	}
	return nil
}

// sheetName builds a sheet title within Excel's 31 character limit
func (x *ExcelExporter) sheetName(status entity.DecisionStatus) string {
	label := "Sheet"
	if s := status.String(); s != "" {
		label = strings.ToUpper(s[:1]) + s[1:]
	}
	name := label
	if x.sheetPrefix != "" {
		name = x.sheetPrefix + " " + label
	}
	if len(name) > 31 {
		name = name[:31]
	}
	return name
}

func title(e *entity.ApprovableEntity) string {
	switch {
	case e.Profile != nil:
		return fmt.Sprintf("%s (%s)", e.Profile.ClubName, e.Profile.FullName)
	case e.Letter != nil:
		return e.Letter.Subject
	}
	return ""
}

func department(e *entity.ApprovableEntity) string {
	if e.Profile != nil {
		return e.Profile.Department
	}
	if e.Letter != nil {
		depts := make([]string, 0, len(e.Letter.MembersByDepartment))
		for d, members := range e.Letter.MembersByDepartment {
			if len(members) > 0 {
				depts = append(depts, strings.ToUpper(d))
			}
		}
		sort.Strings(depts)
		return strings.Join(depts, ", ")
	}
	return ""
}
