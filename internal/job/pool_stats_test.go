package job

import (
	"context"
	"testing"

	"levelup_backend/internal/model"
	"levelup_backend/internal/repository"
	"levelup_backend/internal/testutil"
	"levelup_backend/pkg/monitoring"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPoolStats(t *testing.T) {
	db := testutil.NewDB(t)
	content := repository.NewContentRepository(db)
	ctx := context.Background()

	require.NoError(t, content.Terms.CreateInBatches(ctx, []model.Term{
		{Title: "a", Level: 1},
		{Title: "b", Level: 1},
		{Title: "c", Level: 3},
	}))

	require.NoError(t, RecordPoolStats(ctx, content))

	assert.Equal(t, 2.0, promtest.ToFloat64(monitoring.ContentPool.WithLabelValues("term", "1")))
	assert.Equal(t, 1.0, promtest.ToFloat64(monitoring.ContentPool.WithLabelValues("term", "3")))
	assert.Equal(t, 0.0, promtest.ToFloat64(monitoring.ContentPool.WithLabelValues("rule", "2")))
}
