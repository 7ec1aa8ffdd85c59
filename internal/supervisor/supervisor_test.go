package supervisor

import (
	"sync"
	"testing"
	"time"
)

// TestStopBatcherBlocksUntilFinalFlushDelivered guards spec §5/§8's
// guarantee that no instance-logging event follows instance-exited: the
// stop function startLoggingBatcher returns must not return until its
// goroutine's last flushLogging call has actually run.
func TestStopBatcherBlocksUntilFinalFlushDelivered(t *testing.T) {
	var mu sync.Mutex
	var delivered []TaggedLine

	s := &Supervisor{
		callbacks: Callbacks{
			OnLogging: func(lines []TaggedLine) {
				time.Sleep(20 * time.Millisecond) // simulate a slow subscriber
				mu.Lock()
				delivered = append(delivered, lines...)
				mu.Unlock()
			},
		},
	}

	stop := s.startLoggingBatcher()
	s.enqueueLogging(TaggedLine{Text: "hello"})
	stop()

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 1 || delivered[0].Text != "hello" {
		t.Fatalf("delivered = %+v, want the enqueued line flushed before stop() returned", delivered)
	}
}

func TestStopBatcherWithNoOnLoggingCallbackIsNoop(t *testing.T) {
	s := &Supervisor{}
	stop := s.startLoggingBatcher()
	stop() // must return immediately, not block forever waiting on a goroutine that was never started
}
