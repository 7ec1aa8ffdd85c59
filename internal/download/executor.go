package download

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/httpclient"
	"github.com/mrnavastar/launchcore/internal/integrity"
	"github.com/mrnavastar/launchcore/internal/logging"
	"github.com/mrnavastar/launchcore/internal/telemetry"
)

var log = logging.For("download")

const (
	maxAttempts       = 4
	progressInterval  = 100 * time.Millisecond // caps emission at <=10Hz (spec §4.2)
)

// Executor runs FetchTasks with bounded concurrency, retry, and streaming
// verification (spec §4.2).
type Executor struct {
	http        *httpclient.Pool
	concurrency int
	onProgress  func(Progress)
}

func NewExecutor(http *httpclient.Pool, concurrency int, onProgress func(Progress)) *Executor {
	if concurrency <= 0 {
		concurrency = 16
	}
	return &Executor{http: http, concurrency: concurrency, onProgress: onProgress}
}

// Run executes every task, skipping any whose destination already matches
// its expected hash (spec §4.2 step 1, and the idempotence property of
// spec §8). It returns the first unrecoverable error; tasks already
// in-flight are allowed to finish before Run returns.
func (e *Executor) Run(ctx context.Context, tasks []FetchTask) error {
	total := len(tasks)
	var completed int64
	var bytesDone int64
	var bytesTotal int64
	for _, t := range tasks {
		bytesTotal += t.ExpectedSize
	}

	stopProgress := e.startProgressTicker(total, &completed, &bytesDone, bytesTotal)
	defer stopProgress()

	sem := make(chan struct{}, e.concurrency)
	var wg sync.WaitGroup
	errs := make(chan error, len(tasks))

	for _, task := range tasks {
		task := task
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := e.runOne(ctx, task, &bytesDone); err != nil {
				telemetry.DownloadTasksTotal.WithLabelValues("failed").Inc()
				errs <- err
				return
			}
			telemetry.DownloadTasksTotal.WithLabelValues("ok").Inc()
			atomic.AddInt64(&completed, 1)
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) startProgressTicker(total int, completed, bytesDone *int64, bytesTotal int64) func() {
	if e.onProgress == nil {
		return func() {}
	}
	ticker := time.NewTicker(progressInterval)
	done := make(chan struct{})
	go func() {
		var lastCompleted int64 = -1
		for {
			select {
			case <-ticker.C:
				c := atomic.LoadInt64(completed)
				if c != lastCompleted {
					e.onProgress(Progress{
						TotalTasks:      total,
						Completed:       int(c),
						BytesTotalKnown: bytesTotal,
						BytesDone:       atomic.LoadInt64(bytesDone),
					})
					lastCompleted = c
				}
			case <-done:
				e.onProgress(Progress{
					TotalTasks:      total,
					Completed:       int(atomic.LoadInt64(completed)),
					BytesTotalKnown: bytesTotal,
					BytesDone:       atomic.LoadInt64(bytesDone),
				})
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
	}
}

func (e *Executor) runOne(ctx context.Context, task FetchTask, bytesDone *int64) error {
	if existing, err := os.Open(task.Destination); err == nil {
		digest, size, hashErr := integrity.HashFile(existing, integrity.SHA1)
		existing.Close()
		if hashErr == nil && task.ExpectedSHA1 != "" && digest == task.ExpectedSHA1 {
			atomic.AddInt64(bytesDone, size)
			return nil
		}
	}

	policy := backoff.WithMaxRetries(backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(time.Second),
		backoff.WithMultiplier(2.0),
		backoff.WithRandomizationFactor(0),
	), maxAttempts-1)
	return backoff.Retry(func() error {
		err := e.attempt(ctx, task, bytesDone)
		if err == nil {
			return nil
		}
		if statusErr, ok := err.(*httpclient.StatusError); ok && !statusErr.Transient() {
			return backoff.Permanent(err)
		}
		if ie, ok := err.(*coreerr.Error); ok && ie.Kind == coreerr.KindIntegrity {
			return backoff.Permanent(err)
		}
		log.Warn("retrying %s: %v", task.URL, err)
		return err
	}, backoff.WithContext(policy, ctx))
}

func (e *Executor) attempt(ctx context.Context, task FetchTask, bytesDone *int64) error {
	if err := os.MkdirAll(filepath.Dir(task.Destination), 0o755); err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "creating destination directory", err)
	}

	tmp := task.Destination + ".tmp-" + uuid.NewString()
	f, err := os.Create(tmp)
	if err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "creating temp file", err)
	}

	verifier, err := integrity.NewVerifier(integrity.SHA1)
	if err != nil {
		f.Close()
		os.Remove(tmp)
		return coreerr.Wrap(coreerr.KindSchema, "constructing verifier", err)
	}
	mw := &countingWriter{inner: f, verifier: verifier, bytesDone: bytesDone}

	_, err = e.http.StreamTo(ctx, task.URL, mw, nil)
	closeErr := f.Close()
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if closeErr != nil {
		os.Remove(tmp)
		return coreerr.Wrap(coreerr.KindFilesystem, "closing temp file", closeErr)
	}

	if task.ExpectedSHA1 != "" && !verifier.Matches(task.ExpectedSHA1) {
		// Leave the temp file for inspection per spec §4.2 step 3; do not
		// overwrite the destination.
		return coreerr.New(coreerr.KindIntegrity, fmt.Sprintf("hash mismatch for %s: got %s want %s", task.URL, verifier.HexDigest(), task.ExpectedSHA1))
	}

	if err := os.Rename(tmp, task.Destination); err != nil {
		return coreerr.Wrap(coreerr.KindFilesystem, "renaming temp file to destination", err)
	}
	return nil
}

// countingWriter fans writes out to the destination file and the running
// hash simultaneously, and tracks bytes written for progress reporting.
type countingWriter struct {
	inner     *os.File
	verifier  *integrity.Verifier
	bytesDone *int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	n, err := w.inner.Write(p)
	if n > 0 {
		w.verifier.Write(p[:n])
		atomic.AddInt64(w.bytesDone, int64(n))
		telemetry.DownloadBytesTotal.Add(float64(n))
	}
	return n, err
}
