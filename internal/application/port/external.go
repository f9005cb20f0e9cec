package port

import (
	"context"
	"io"

	"github.com/garyjia/travel-approval/internal/domain/entity"
)

// AuditExporter renders a workflow's audit trail into a document
type AuditExporter interface {
	ContentType() string
	Export(ctx context.Context, inst *entity.WorkflowInstance, entries []*entity.AuditEntry, w io.Writer) error
}

// ArchiveStore keeps finished documents, one folder level deep
type ArchiveStore interface {
	Save(ctx context.Context, folder, name string, content []byte) (string, error)
	Exists(ctx context.Context, folder, name string) bool
}
