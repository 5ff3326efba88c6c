package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appErrors "github.com/k1035130/course-scheduler-api/pkg/errors"
)

func TestCacheRepositoryNilClientIsAlwaysMiss(t *testing.T) {
	repo := NewCacheRepository(nil, zap.NewNop())

	var dest string
	err := repo.Get(context.Background(), "schedule:abc", &dest)
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrCacheMiss)
}

func TestCacheRepositoryNilClientWritesAreNoOps(t *testing.T) {
	repo := NewCacheRepository(nil, zap.NewNop())

	assert.NoError(t, repo.Set(context.Background(), "schedule:abc", "value", time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "schedule:*"))
	assert.NoError(t, repo.Close())
}
