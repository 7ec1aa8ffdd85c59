package supervisor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/mrnavastar/launchcore/internal/assembler"
	"github.com/mrnavastar/launchcore/internal/coreerr"
	"github.com/mrnavastar/launchcore/internal/logging"
)

var log = logging.For("supervisor")

const (
	loggingEventRate = 50 * time.Millisecond // <= 50Hz coalescing, spec §4.5
	shutdownGrace    = 5 * time.Second
)

// Callbacks is the message-passing surface the supervisor exposes to its
// owner (spec §9: "the supervisor exposes only message passing — no
// shared mutable buffers with the UI"). They run on the supervisor's
// internal goroutines: OnLogging from the logging batcher, batches in
// order; OnState from the stdout/stderr tailing goroutines; OnExited once,
// after the batcher's final flush. Callbacks that share state with each
// other need their own locking.
type Callbacks struct {
	OnLogging func(lines []TaggedLine)
	OnState   func(InstanceState)
	OnExited  func(code *int)
}

// Supervisor owns one running (or exited) child process.
type Supervisor struct {
	instanceName string
	cmd          *exec.Cmd
	logDir       string
	store        *LogStore
	callbacks    Callbacks

	mu    sync.Mutex
	state State
	live  []TaggedLine

	pendingMu sync.Mutex
	pending   []TaggedLine
}

// New prepares (but does not start) a supervisor for one launch.
func New(instanceName string, command *assembler.Command, logDir string, store *LogStore, callbacks Callbacks) *Supervisor {
	cmd := exec.Command(command.Binary, command.Args...)
	cmd.Dir = command.WorkingDir
	return &Supervisor{
		instanceName: instanceName,
		cmd:          cmd,
		logDir:       logDir,
		store:        store,
		callbacks:    callbacks,
		state:        Idle,
	}
}

func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Start spawns the child and begins tailing its stdio (spec §4.5). It
// returns once the process has been spawned; exit is reported
// asynchronously via Callbacks.OnExited.
func (s *Supervisor) Start(ctx context.Context) error {
	s.setState(Spawning)

	stdout, err := s.cmd.StdoutPipe()
	if err != nil {
		s.setState(Crashed)
		return coreerr.Wrap(coreerr.KindChild, "attaching stdout pipe", err)
	}
	stderr, err := s.cmd.StderrPipe()
	if err != nil {
		s.setState(Crashed)
		return coreerr.Wrap(coreerr.KindChild, "attaching stderr pipe", err)
	}

	if err := os.MkdirAll(s.logDir, 0o755); err != nil {
		s.setState(Crashed)
		return coreerr.Wrap(coreerr.KindFilesystem, "creating log directory", err)
	}
	appender, err := newLogAppender(filepath.Join(s.logDir, "latest.log"))
	if err != nil {
		s.setState(Crashed)
		return coreerr.Wrap(coreerr.KindFilesystem, "opening latest.log", err)
	}

	if err := s.cmd.Start(); err != nil {
		appender.Close()
		s.setState(Crashed)
		return coreerr.Wrap(coreerr.KindChild, "spawning child process", err)
	}
	s.setState(Running)

	stopBatcher := s.startLoggingBatcher()

	var wg sync.WaitGroup
	wg.Add(2)
	go s.tail(stdout, appender, &wg)
	go s.tail(stderr, appender, &wg)

	go func() {
		wg.Wait()
		stopBatcher()
		appender.Close()
		s.finish(ctx)
	}()

	return nil
}

func (s *Supervisor) tail(r io.Reader, appender *logAppender, wg *sync.WaitGroup) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := strings.TrimRight(scanner.Text(), "\r")
		tagged := TaggedLine{Timestamp: time.Now(), Kind: classify(text), Text: text}

		s.mu.Lock()
		s.live = append(s.live, tagged)
		s.mu.Unlock()

		appender.Append(tagged)
		s.enqueueLogging(tagged)

		if isSentinel(text) && s.callbacks.OnState != nil {
			s.callbacks.OnState(Initialized)
		}
	}
}

func (s *Supervisor) enqueueLogging(line TaggedLine) {
	s.pendingMu.Lock()
	s.pending = append(s.pending, line)
	s.pendingMu.Unlock()
}

// startLoggingBatcher flushes pending lines every 50ms (20Hz),
// implementing spec §4.5's "coalesced at <= 50 Hz per instance" without
// dropping any line — only the emission rate is bounded, retention is not.
// The returned stop function blocks until the batcher's final flush has
// actually run, so no instance-logging callback can fire concurrently with
// or after finish's instance-exited callback (spec §5, §8).
func (s *Supervisor) startLoggingBatcher() func() {
	if s.callbacks.OnLogging == nil {
		return func() {}
	}
	ticker := time.NewTicker(loggingEventRate)
	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		for {
			select {
			case <-ticker.C:
				s.flushLogging()
			case <-done:
				s.flushLogging()
				return
			}
		}
	}()
	return func() {
		ticker.Stop()
		close(done)
		<-stopped
	}
}

func (s *Supervisor) flushLogging() {
	s.pendingMu.Lock()
	if len(s.pending) == 0 {
		s.pendingMu.Unlock()
		return
	}
	batch := s.pending
	s.pending = nil
	s.pendingMu.Unlock()
	s.callbacks.OnLogging(batch)
}

func (s *Supervisor) finish(ctx context.Context) {
	err := s.cmd.Wait()

	var exitCode *int
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			exitCode = &code
		} else {
			log.Warn("%s: child wait error: %v", s.instanceName, err)
		}
	} else {
		code := 0
		exitCode = &code
	}

	s.mu.Lock()
	if ctx.Err() != nil {
		s.state = Killed
	} else if exitCode != nil && *exitCode != 0 {
		s.state = Crashed
	} else {
		s.state = Exited
	}
	sealed := s.live
	s.mu.Unlock()

	s.seal(sealed)

	if s.callbacks.OnExited != nil {
		s.callbacks.OnExited(exitCode)
	}
}

func (s *Supervisor) seal(lines []TaggedLine) {
	timestamp := time.Now().UTC().Format(time.RFC3339)
	rotated := filepath.Join(s.logDir, timestamp+".log")
	latest := filepath.Join(s.logDir, "latest.log")
	if err := os.Rename(latest, rotated); err != nil {
		log.Warn("%s: failed to rotate latest.log: %v", s.instanceName, err)
	}
	if s.store != nil {
		s.store.Seal(s.instanceName, filepath.Base(rotated), lines)
	}
}

// Shutdown implements spec §4.5's cancellation policy: SIGTERM, wait up to
// 5 seconds, then SIGKILL.
func (s *Supervisor) Shutdown() error {
	if s.cmd.Process == nil {
		return nil
	}
	if err := s.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		log.Warn("%s: SIGTERM failed, sending SIGKILL: %v", s.instanceName, err)
		return s.cmd.Process.Kill()
	}

	done := make(chan struct{})
	go func() {
		s.cmd.Process.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(shutdownGrace):
		return s.cmd.Process.Kill()
	}
}

// LiveBuffer returns a snapshot of the in-memory buffer for the "running"
// log view (spec §4.7's read_log_lines for log_id = "running").
func (s *Supervisor) LiveBuffer() []TaggedLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TaggedLine{}, s.live...)
}

// logAppender buffers writes to latest.log so the hot tailing path never
// blocks on a disk write per line (spec §4.5's persistence requirement).
type logAppender struct {
	f       *os.File
	w       *bufio.Writer
	mu      sync.Mutex
	flushed int32
}

func newLogAppender(path string) (*logAppender, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	a := &logAppender{f: f, w: bufio.NewWriter(f)}
	go a.periodicFlush()
	return a, nil
}

func (a *logAppender) Append(line TaggedLine) {
	a.mu.Lock()
	fmt.Fprintf(a.w, "[%s] [%s] %s\n", line.Timestamp.Format(time.RFC3339), line.Kind, line.Text)
	a.mu.Unlock()
}

func (a *logAppender) periodicFlush() {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if atomic.LoadInt32(&a.flushed) == 1 {
			return
		}
		a.mu.Lock()
		a.w.Flush()
		a.mu.Unlock()
	}
}

func (a *logAppender) Close() error {
	atomic.StoreInt32(&a.flushed, 1)
	a.mu.Lock()
	defer a.mu.Unlock()
	a.w.Flush()
	return a.f.Close()
}
