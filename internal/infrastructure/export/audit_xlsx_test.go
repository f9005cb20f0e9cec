package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

func TestAuditWorkbook_Export(t *testing.T) {
	ts := time.Date(2026, 10, 5, 9, 30, 0, 0, time.UTC)
	inst := &entity.WorkflowInstance{
		WorkflowID:   "wf-1",
		WorkflowType: entity.WorkflowPreTravel,
		Status:       entity.StatusRejected,
		CurrentStep:  entity.StepClosed,
		Version:      3,
		Cycle:        1,
		ClosedAt:     &ts,
	}
	entries := []*entity.AuditEntry{
		{WorkflowID: "wf-1", Sequence: 1, ActorID: "mgr-1", ActorRole: entity.RoleManager, Action: entity.ActionApprove,
			FromStatus: entity.StatusPending, FromStep: entity.StepManagerApproval,
			Status: entity.StatusPending, Step: entity.StepHRCompliance, Version: 2, Remark: "ok", Timestamp: ts},
		{WorkflowID: "wf-1", Sequence: 2, ActorID: "hr-1", ActorRole: entity.RoleHR, Action: entity.ActionReject,
			FromStatus: entity.StatusPending, FromStep: entity.StepHRCompliance,
			Status: entity.StatusRejected, Step: entity.StepClosed, Version: 3, Remark: "policy violation", Timestamp: ts},
	}

	x := NewAuditWorkbook(zap.NewNop())
	assert.Equal(t, ContentTypeXLSX, x.ContentType())

	var buf bytes.Buffer
	require.NoError(t, x.Export(context.Background(), inst, entries, &buf))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, trailSheet}, f.GetSheetList())

	id, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "wf-1", id)

	rows, err := f.GetRows(trailSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, trailHeaders, rows[0])
	assert.Equal(t, "2", rows[2][0])
	assert.Equal(t, "REJECT", rows[2][5])
	assert.Equal(t, "policy violation", rows[2][11])
	assert.Equal(t, "2026-10-05 09:30:00", rows[1][1])
}

func TestAuditWorkbook_ExportHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := NewAuditWorkbook(zap.NewNop()).Export(ctx, &entity.WorkflowInstance{WorkflowID: "wf-1"},
		[]*entity.AuditEntry{{Sequence: 1}}, &buf)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, buf.Len())
}
