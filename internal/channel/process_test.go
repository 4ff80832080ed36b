package channel

import (
	"context"
	"encoding/json"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for ProcessChannel:
// - Envelopes written to the process come back through subscribed handlers
//   (cat echoes stdin to stdout)
// - Close ends the process and marks the channel disconnected
// - Emit after exit fails with ErrNotConnected
// - An empty command is rejected

func requireCat(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX cat")
	}
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}
}

func TestProcessChannel_EchoRoundTrip(t *testing.T) {
	t.Parallel()
	requireCat(t)

	pc, err := StartProcess(context.Background(), []string{"cat"})
	require.NoError(t, err)
	defer pc.Close()

	got := make(chan ParseRequest, 1)
	pc.On(EventParse, func(payload json.RawMessage) {
		var req ParseRequest
		if err := json.Unmarshal(payload, &req); err == nil {
			got <- req
		}
	})

	require.True(t, pc.Connected())
	require.NoError(t, pc.Emit(context.Background(), EventParse, ParseRequest{DBMLText: "Table users {}", Version: 3}))

	select {
	case req := <-got:
		assert.Equal(t, "Table users {}", req.DBMLText)
		assert.Equal(t, int64(3), req.Version)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for echoed envelope")
	}
}

func TestProcessChannel_CloseDisconnects(t *testing.T) {
	t.Parallel()
	requireCat(t)

	pc, err := StartProcess(context.Background(), []string{"cat"})
	require.NoError(t, err)

	require.NoError(t, pc.Close())

	select {
	case <-pc.Done():
	default:
		t.Fatal("process still running after Close")
	}
	assert.False(t, pc.Connected())
	assert.ErrorIs(t, pc.Emit(context.Background(), EventParse, ParseRequest{}), ErrNotConnected)
}

func TestStartProcess_EmptyCommand(t *testing.T) {
	t.Parallel()

	_, err := StartProcess(context.Background(), nil)
	assert.Error(t, err)
}
