package messagepipeline

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// FileTailConfig configures a telex log file source.
type FileTailConfig struct {
	Path string `mapstructure:"path"`
	// PollInterval is the fallback re-read period. Writes to the file wake the
	// tail straight away when the directory can be watched.
	PollInterval time.Duration `mapstructure:"poll_interval"`
	// Replay reads the whole file once at startup, then stops. Without it the
	// consumer starts at the beginning and keeps following the file.
	Replay bool `mapstructure:"replay"`
}

// FileTailConsumer reads telexes from a log file in which a blank line ends
// each telex. A file that shrinks is treated as reset and read from the start.
type FileTailConsumer struct {
	cfg        FileTailConfig
	logger     zerolog.Logger
	outputChan chan Message
	doneChan   chan struct{}
	cancel     context.CancelFunc
	stopOnce   sync.Once
	offset     int64
	seq        int
}

// NewFileTailConsumer returns a consumer for cfg.Path. The file does not need
// to exist yet when tailing.
func NewFileTailConsumer(cfg FileTailConfig, logger zerolog.Logger) (*FileTailConsumer, error) {
	if cfg.Path == "" {
		return nil, errors.New("file path is required")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &FileTailConsumer{
		cfg:        cfg,
		logger:     logger.With().Str("component", "FileTailConsumer").Str("path", cfg.Path).Logger(),
		outputChan: make(chan Message, 64),
		doneChan:   make(chan struct{}),
	}, nil
}

func (c *FileTailConsumer) Messages() <-chan Message { return c.outputChan }

func (c *FileTailConsumer) Done() <-chan struct{} { return c.doneChan }

func (c *FileTailConsumer) Start(ctx context.Context) error {
	if c.cfg.Replay {
		if _, err := os.Stat(c.cfg.Path); err != nil {
			return fmt.Errorf("replay file: %w", err)
		}
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go func() {
		defer close(c.doneChan)
		defer close(c.outputChan)

		if c.cfg.Replay {
			if err := c.poll(runCtx, true); err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error().Err(err).Msg("Replay failed.")
			}
			c.logger.Info().Int("telexes", c.seq).Msg("Replay finished.")
			return
		}

		watcher := c.watch()
		var events <-chan fsnotify.Event
		var watchErrs <-chan error
		if watcher != nil {
			defer func() { _ = watcher.Close() }()
			events, watchErrs = watcher.Events, watcher.Errors
		}

		c.logger.Info().Dur("poll_interval", c.cfg.PollInterval).Bool("watching", watcher != nil).Msg("Tailing telex log.")
		ticker := time.NewTicker(c.cfg.PollInterval)
		defer ticker.Stop()
		for {
			if err := c.poll(runCtx, false); err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				c.logger.Warn().Err(err).Msg("Failed to read telex log.")
			}
			if !c.waitForChange(runCtx, ticker.C, events, watchErrs) {
				return
			}
		}
	}()
	return nil
}

// watch watches the directory holding the log, so the file may be created or
// replaced after Start. It returns nil when watching is unavailable and the
// tail falls back to polling.
func (c *FileTailConsumer) watch() *fsnotify.Watcher {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		c.logger.Warn().Err(err).Msg("File watching unavailable, polling only.")
		return nil
	}
	if err := watcher.Add(filepath.Dir(c.cfg.Path)); err != nil {
		c.logger.Warn().Err(err).Msg("Cannot watch telex log directory, polling only.")
		_ = watcher.Close()
		return nil
	}
	return watcher
}

// waitForChange blocks until the log is written, created or truncated, or the
// poll interval passes. It reports false once ctx is done.
func (c *FileTailConsumer) waitForChange(ctx context.Context, tick <-chan time.Time, events <-chan fsnotify.Event, errs <-chan error) bool {
	target := filepath.Clean(c.cfg.Path)
	for {
		select {
		case <-ctx.Done():
			return false
		case <-tick:
			return true
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if filepath.Clean(ev.Name) == target && ev.Has(fsnotify.Write|fsnotify.Create) {
				return true
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			c.logger.Warn().Err(err).Msg("File watcher error.")
		}
	}
}

func (c *FileTailConsumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		if c.cancel == nil {
			close(c.outputChan)
			close(c.doneChan)
			return
		}
		c.cancel()
		select {
		case <-c.doneChan:
		case <-ctx.Done():
			err = ctx.Err()
		}
	})
	return err
}

// poll emits every complete telex written since the last call. With final set
// a trailing telex without a closing blank line is emitted too.
func (c *FileTailConsumer) poll(ctx context.Context, final bool) error {
	f, err := os.Open(c.cfg.Path)
	if err != nil {
		if os.IsNotExist(err) && !final {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.Size() < c.offset {
		c.logger.Info().Int64("size", info.Size()).Int64("offset", c.offset).Msg("Telex log was reset, reading from the start.")
		c.offset = 0
	}
	if info.Size() == c.offset {
		return nil
	}
	if _, err := f.Seek(c.offset, io.SeekStart); err != nil {
		return err
	}

	reader := bufio.NewReader(f)
	var telex bytes.Buffer
	consumed := c.offset
	pos := c.offset
	for {
		line, readErr := reader.ReadBytes('\n')
		if len(line) > 0 && (line[len(line)-1] == '\n' || final) {
			pos += int64(len(line))
			if len(bytes.TrimSpace(line)) == 0 {
				if telex.Len() > 0 {
					if err := c.emit(ctx, telex.Bytes()); err != nil {
						return err
					}
					telex.Reset()
				}
				consumed = pos
			} else {
				telex.Write(bytes.TrimRight(line, "\r\n"))
				telex.WriteByte('\n')
			}
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				return readErr
			}
			break
		}
	}
	if final && telex.Len() > 0 {
		if err := c.emit(ctx, telex.Bytes()); err != nil {
			return err
		}
		consumed = pos
	}
	c.offset = consumed
	return nil
}

func (c *FileTailConsumer) emit(ctx context.Context, telex []byte) error {
	c.seq++
	payload := make([]byte, len(telex))
	copy(payload, telex)
	msg := NewMessage(c.cfg.Path+"#"+strconv.Itoa(c.seq), payload, SourceFile)
	msg.Attributes = map[string]string{"path": c.cfg.Path}
	select {
	case c.outputChan <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
