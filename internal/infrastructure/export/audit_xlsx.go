package export

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

const (
	summarySheet = "Workflow"
	trailSheet   = "Audit Trail"
	timeLayout   = "2006-01-02 15:04:05"
)

// ContentTypeXLSX is the media type of the generated workbook
const ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var trailHeaders = []string{
	"Sequence", "Timestamp (UTC)", "Actor ID", "Actor Name", "Actor Role", "Action",
	"From Status", "From Step", "To Status", "To Step", "Version", "Remark",
}

// AuditWorkbook renders a workflow's audit trail as an XLSX workbook
type AuditWorkbook struct {
	logger *zap.Logger
}

// NewAuditWorkbook creates a new XLSX audit exporter
func NewAuditWorkbook(logger *zap.Logger) *AuditWorkbook {
	return &AuditWorkbook{logger: logger}
}

// ContentType implements port.AuditExporter
func (x *AuditWorkbook) ContentType() string {
	return ContentTypeXLSX
}

// Export writes a summary sheet and one row per audit entry to w
func (x *AuditWorkbook) Export(ctx context.Context, inst *entity.WorkflowInstance, entries []*entity.AuditEntry, w io.Writer) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			x.logger.Warn("Failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := x.writeSummary(f, inst); err != nil {
		return err
	}

	if _, err := f.NewSheet(trailSheet); err != nil {
		return fmt.Errorf("create trail sheet: %w", err)
	}
	if err := x.writeTrail(ctx, f, entries); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func (x *AuditWorkbook) writeSummary(f *excelize.File, inst *entity.WorkflowInstance) error {
	rows := [][]interface{}{
		{"Workflow ID", inst.WorkflowID},
		{"Travel Request ID", inst.TravelRequestID},
		{"Requester ID", inst.RequesterID},
		{"Workflow Type", string(inst.WorkflowType)},
		{"Status", string(inst.Status)},
		{"Current Step", string(inst.CurrentStep)},
		{"Priority", string(inst.Priority)},
		{"Overpriced", inst.IsOverpriced},
		{"Overpriced Reason", inst.OverpricedReason},
		{"Cycle", inst.Cycle},
		{"Version", inst.Version},
		{"Created At", inst.CreatedAt.UTC().Format(timeLayout)},
	}
	if inst.ApprovedAmount != nil {
		rows = append(rows, []interface{}{"Approved Amount", *inst.ApprovedAmount})
	}
	if inst.ClosedAt != nil {
		rows = append(rows, []interface{}{"Closed At", inst.ClosedAt.UTC().Format(timeLayout)})
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(summarySheet, cell, &row); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	return f.SetColWidth(summarySheet, "A", "A", 22)
}

func (x *AuditWorkbook) writeTrail(ctx context.Context, f *excelize.File, entries []*entity.AuditEntry) error {
	header := make([]interface{}, len(trailHeaders))
	for i, h := range trailHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(trailSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(trailHeaders), 1)
	if err := f.SetCellStyle(trailSheet, "A1", last, style); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		row := []interface{}{
			e.Sequence,
			e.Timestamp.UTC().Format(timeLayout),
			e.ActorID,
			e.ActorName,
			string(e.ActorRole),
			string(e.Action),
			string(e.FromStatus),
			string(e.FromStep),
			string(e.Status),
			string(e.Step),
			e.Version,
			e.Remark,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(trailSheet, cell, &row); err != nil {
			return fmt.Errorf("write entry %d: %w", e.Sequence, err)
		}
	}

	return f.SetColWidth(trailSheet, "L", "L", 48)
}
