package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/travel-approval/internal/application/dispatcher"
	"github.com/garyjia/travel-approval/internal/domain/entity"
	"github.com/garyjia/travel-approval/internal/domain/event"
	domainwf "github.com/garyjia/travel-approval/internal/domain/workflow"
)

type savedFile struct {
	folder, name string
	content      []byte
}

type mockArchiveStore struct {
	saved   []savedFile
	saveErr error
}

func (m *mockArchiveStore) Save(ctx context.Context, folder, name string, content []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved = append(m.saved, savedFile{folder: folder, name: name, content: content})
	return folder + "/" + name, nil
}

func (m *mockArchiveStore) Exists(ctx context.Context, folder, name string) bool {
	for _, f := range m.saved {
		if f.folder == folder && f.name == name {
			return true
		}
	}
	return false
}

func closedInstanceRepo() *mockInstanceRepo {
	return &mockInstanceRepo{
		getByIDFunc: func(ctx context.Context, id string) (*entity.WorkflowInstance, error) {
			if id != "wf-1" {
				return nil, nil
			}
			return &entity.WorkflowInstance{WorkflowID: id, Status: entity.StatusCompleted}, nil
		},
	}
}

func writingExporter() *mockExporter {
	return &mockExporter{
		exportFunc: func(ctx context.Context, inst *entity.WorkflowInstance, entries []*entity.AuditEntry, w io.Writer) error {
			_, err := io.WriteString(w, "trail of "+inst.WorkflowID)
			return err
		},
	}
}

func TestAuditArchiver_Handle(t *testing.T) {
	audit := NewAuditService(newMockAuditRepo(), closedInstanceRepo(), writingExporter(), zap.NewNop())
	store := &mockArchiveStore{}
	archiver := NewAuditArchiver(audit, store, zap.NewNop())

	evt := event.NewEvent(event.TypeWorkflowCompleted, "wf-1", nil)
	evt.Timestamp = time.Date(2026, 10, 31, 23, 30, 0, 0, time.UTC)

	require.NoError(t, archiver.Handle(context.Background(), evt))
	require.Len(t, store.saved, 1)
	assert.Equal(t, "2026-10", store.saved[0].folder)
	assert.Equal(t, "wf-1-audit.xlsx", store.saved[0].name)
	assert.Equal(t, "trail of wf-1", string(store.saved[0].content))
}

func TestAuditArchiver_Errors(t *testing.T) {
	t.Run("unknown workflow", func(t *testing.T) {
		audit := NewAuditService(newMockAuditRepo(), closedInstanceRepo(), writingExporter(), zap.NewNop())
		store := &mockArchiveStore{}
		archiver := NewAuditArchiver(audit, store, zap.NewNop())

		err := archiver.Handle(context.Background(), event.NewEvent(event.TypeWorkflowRejected, "wf-404", nil))
		assert.ErrorIs(t, err, domainwf.ErrNotFound)
		assert.Empty(t, store.saved)
	})

	t.Run("store failure", func(t *testing.T) {
		audit := NewAuditService(newMockAuditRepo(), closedInstanceRepo(), writingExporter(), zap.NewNop())
		diskFull := errors.New("disk full")
		archiver := NewAuditArchiver(audit, &mockArchiveStore{saveErr: diskFull}, zap.NewNop())

		err := archiver.Handle(context.Background(), event.NewEvent(event.TypeWorkflowCompleted, "wf-1", nil))
		assert.ErrorIs(t, err, diskFull)
	})
}

func TestAuditArchiver_SubscribesToClosingEvents(t *testing.T) {
	audit := NewAuditService(newMockAuditRepo(), closedInstanceRepo(), writingExporter(), zap.NewNop())
	store := &mockArchiveStore{}
	d := dispatcher.NewDispatcher(dispatcher.WithLogger(zap.NewNop()))
	defer d.Close()

	NewAuditArchiver(audit, store, zap.NewNop()).Subscribe(d)

	ctx := context.Background()
	require.NoError(t, d.Dispatch(ctx, event.NewEvent(event.TypeWorkflowAdvanced, "wf-1", nil)))
	assert.Empty(t, store.saved, "advancing does not archive")

	require.NoError(t, d.Dispatch(ctx, event.NewEvent(event.TypeWorkflowCompleted, "wf-1", nil)))
	require.Len(t, store.saved, 1)

	folder, name := ArchiveLocation(event.NewEvent(event.TypeWorkflowCompleted, "wf-1", nil))
	assert.True(t, store.Exists(ctx, folder, name))
}
