package main

import (
	"context"
	"testing"

	"github.com/maloquacious/tokenstore/internal/logger"
	"github.com/maloquacious/tokenstore/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// reportStore serves a fixed Report and counts patcher runs.
type reportStore struct {
	store.Store
	report  store.Report
	patched int
}

func (s *reportStore) Inspect(ctx context.Context) (store.Report, error) {
	return s.report, nil
}

func (s *reportStore) CheckState(ctx context.Context) (store.SchemaState, error) {
	return s.report.State(), nil
}

func (s *reportStore) AddNewFieldsIfNotExist(ctx context.Context) error {
	s.patched++
	return nil
}

func TestDBUpgrade(t *testing.T) {
	tests := []struct {
		name    string
		report  store.Report
		wantErr bool
	}{
		{name: "no tables", report: store.Report{}, wantErr: true},
		{name: "sync_status only", report: store.Report{SyncStatusTable: true}, wantErr: true},
		{name: "tokens without sync_status", report: store.Report{TokensTable: true, MissingColumns: []string{"skip_check"}}},
		{name: "both tables", report: store.Report{TokensTable: true, SyncStatusTable: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &reportStore{report: tt.report}
			err := runDBUpgrade(context.Background(), nil, s, logger.Discard)
			if tt.wantErr {
				require.Error(t, err)
				assert.Zero(t, s.patched)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 1, s.patched)
		})
	}
}
