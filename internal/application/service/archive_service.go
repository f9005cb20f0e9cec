package service

import (
	"bytes"
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/application/port"
	"github.com/garyjia/travel-approval/internal/domain/event"
)

// AuditArchiver writes the audit workbook of every workflow that closes.
// Files are grouped by the month the workflow closed in.
type AuditArchiver struct {
	audit  AuditService
	store  port.ArchiveStore
	logger *zap.Logger
}

// NewAuditArchiver creates a new AuditArchiver
func NewAuditArchiver(audit AuditService, store port.ArchiveStore, logger *zap.Logger) *AuditArchiver {
	return &AuditArchiver{
		audit:  audit,
		store:  store,
		logger: logger,
	}
}

// Subscribe registers the archiver for the closing events
func (a *AuditArchiver) Subscribe(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeWorkflowCompleted, "audit_archiver", a.Handle)
	d.SubscribeNamed(event.TypeWorkflowRejected, "audit_archiver", a.Handle)
}

// ArchiveLocation returns the folder and file name a closing event archives to
func ArchiveLocation(evt *event.Event) (folder, name string) {
	return evt.Timestamp.UTC().Format("2006-01"), evt.WorkflowID + "-audit.xlsx"
}

// Handle exports the trail of the workflow named by evt into the archive
func (a *AuditArchiver) Handle(ctx context.Context, evt *event.Event) error {
	var buf bytes.Buffer
	if _, err := a.audit.Export(ctx, evt.WorkflowID, &buf); err != nil {
		a.logger.Error("Failed to render audit trail for archive",
			zap.String("workflow_id", evt.WorkflowID),
			zap.Error(err))
		return fmt.Errorf("archive %s: %w", evt.WorkflowID, err)
	}

	folder, name := ArchiveLocation(evt)
	path, err := a.store.Save(ctx, folder, name, buf.Bytes())
	if err != nil {
		a.logger.Error("Failed to archive audit trail",
			zap.String("workflow_id", evt.WorkflowID),
			zap.Error(err))
		return fmt.Errorf("archive %s: %w", evt.WorkflowID, err)
	}

	a.logger.Info("Audit trail archived",
		zap.String("workflow_id", evt.WorkflowID),
		zap.String("event_type", evt.Type.String()),
		zap.String("path", path))
	return nil
}
