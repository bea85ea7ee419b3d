package integration

import (
	"context"
	"io"
	"testing"
	"time"

	"phredavg/internal/app"
	"phredavg/internal/testutil"
)

func TestCtrlC_CollectWaiting_Exit130(t *testing.T) {
	fn := testutil.WriteFile(t, "cancel.fq", testutil.Format(testutil.RandomReads(3, 50, 20)))

	ctx, cancel := context.WithCancel(context.Background())
	// No workers ever connect, so the coordinator is parked in Collect.
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	code := app.RunIO(ctx, []string{"serve", "-q", "--secret", "k", "--port", "0", "--chunks", "4",
		"--poll-interval", "10ms", "--grace", "1ms", fn}, nil, io.Discard, io.Discard)
	if code != 130 {
		t.Fatalf("expected exit 130 on cancel, got %d", code)
	}
}

func TestCancelledBeforeStart_Exit130(t *testing.T) {
	fn := testutil.WriteFile(t, "early.fq", testutil.Format(testutil.RandomReads(4, 50, 20)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	code := app.RunIO(ctx, []string{"local", "-q", "-n", "2", fn}, nil, io.Discard, io.Discard)
	if code != 130 {
		t.Fatalf("expected exit 130 on cancel, got %d", code)
	}
}
