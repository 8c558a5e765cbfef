package health

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"profile-api/internal/repository/sqlite"
)

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Name() string { return s.name }
func (s stubChecker) Check(_ context.Context) error { return s.err }

func TestReadyAllHealthy(t *testing.T) {
	svc := NewService(stubChecker{name: "a"}, stubChecker{name: "b"})
	assert.NoError(t, svc.Ready(context.Background()))
}

func TestReadyReportsFailingChecker(t *testing.T) {
	down := errors.New("connection refused")
	svc := NewService(stubChecker{name: "a"}, stubChecker{name: "db", err: down})

	err := svc.Ready(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, down)
	assert.Contains(t, err.Error(), "db")
}

func TestSQLChecker(t *testing.T) {
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "health.db"))
	require.NoError(t, err)

	checker := NewSQLChecker("sqlite", db)
	assert.Equal(t, "sqlite", checker.Name())
	assert.NoError(t, checker.Check(context.Background()))

	require.NoError(t, db.Close())
	assert.Error(t, checker.Check(context.Background()))
}
