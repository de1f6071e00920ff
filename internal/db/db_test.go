package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestPrepare(t *testing.T) {
	query := regexp.QuoteMeta(tableExistsQuery)

	tests := []struct {
		name       string
		setup      func(m sqlmock.Sqlmock)
		wantErr    bool
		wantSchema bool
	}{
		{
			name: "migrated",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectPing()
				for _, table := range RequiredTables {
					m.ExpectQuery(query).WithArgs(table).
						WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
				}
			},
		},
		{
			name: "ping fails",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectPing().WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
		{
			name: "profiles table missing",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectPing()
				m.ExpectQuery(query).WithArgs("collab_projects").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
				m.ExpectQuery(query).WithArgs("collab_profiles").
					WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr:    true,
			wantSchema: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
			if err != nil {
				t.Fatalf("failed to create sqlmock: %v", err)
			}
			defer conn.Close()
			tt.setup(mock)

			err = Prepare(context.Background(), conn, DefaultPoolConfig())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Prepare() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantSchema && !errors.Is(err, ErrSchemaMissing) {
				t.Errorf("Prepare() error = %v, want %v", err, ErrSchemaMissing)
			}

			if err := mock.ExpectationsWereMet(); err != nil {
				t.Errorf("unmet expectations: %v", err)
			}
		})
	}
}

func TestPrepare_AppliesPoolLimits(t *testing.T) {
	conn, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectPing().WillReturnError(errors.New("down"))
	cfg := PoolConfig{MaxOpenConns: 3, MaxIdleConns: 1}
	_ = Prepare(context.Background(), conn, cfg)

	if got := conn.Stats().MaxOpenConnections; got != 3 {
		t.Errorf("MaxOpenConnections = %d, want 3", got)
	}
}
