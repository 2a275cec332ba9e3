// Copyright The statprof Authors
// SPDX-License-Identifier: Apache-2.0

package periodiccaller

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestStart tests the basic functionality: callback is called periodically
// until the context is canceled.
func TestStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int64
	done := make(chan struct{})

	stop := Start(ctx, time.Millisecond, func() {
		if calls.Add(1) == 3 {
			close(done)
		}
	})
	defer stop()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for periodic calls")
	}

	cancel()
	// After cancellation the call count settles.
	time.Sleep(10 * time.Millisecond)
	settled := calls.Load()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, settled, calls.Load())
}
