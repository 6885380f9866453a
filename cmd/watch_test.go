package cmd

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"modimporter.dev/pkg/modimporter/internal/domain"
)

func TestWatchCmd(t *testing.T) {
	mockWorkflow := useMockWorkflow(t)

	mockWorkflow.EXPECT().Watch(mock.Anything, mock.MatchedBy(func(args domain.WatchArgs) bool {
		return args.Debounce == 2*time.Second && args.ModsDir == defaultModsDir
	})).RunAndReturn(func(ctx context.Context, _ domain.WatchArgs) error {
		assert.NoError(t, ctx.Err())
		return nil
	})

	cmd := newRootCmd()
	cmd.AddCommand(newWatchCmd())

	_, err := execute(t, cmd, "watch", "-g", "Hades", "--debounce", "2s")
	require.NoError(t, err)
}
