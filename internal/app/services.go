package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/five82/arenaview/internal/card"
	"github.com/five82/arenaview/internal/logging"
	"github.com/five82/arenaview/internal/logtail"
	"github.com/five82/arenaview/internal/orchestrator"
	"github.com/five82/arenaview/internal/state"
)

// tailService follows the client log and feeds the orchestrator.
type tailService struct {
	path string
	orch *orchestrator.Orchestrator
}

func (s *tailService) String() string { return "tailer" }

func (s *tailService) Serve(ctx context.Context) error {
	t := logtail.New(s.path)
	if err := t.Start(ctx); err != nil {
		if errors.Is(err, logtail.ErrNotFound) {
			logging.Error().Err(err).Msg("client log missing, pipeline idle")
			return suture.ErrDoNotRestart
		}
		return err
	}
	defer t.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-t.Errors():
				if !ok {
					return
				}
				logging.Warn().Err(err).Str("path", s.path).Msg("tail error")
			}
		}
	}()

	return s.orch.Run(ctx, t.Chunks())
}

// replayService feeds a finished log once.
type replayService struct {
	path         string
	orch         *orchestrator.Orchestrator
	delay        time.Duration
	exitWhenDone bool
}

func (s *replayService) String() string { return "replay" }

func (s *replayService) Serve(ctx context.Context) error {
	f, err := os.Open(s.path)
	if err != nil {
		logging.Error().Err(err).Str("path", s.path).Msg("open replay log")
		return suture.ErrDoNotRestart
	}
	defer f.Close()

	start := time.Now()
	if err := Replay(ctx, f, s.orch, s.delay); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Error().Err(err).Str("path", s.path).Msg("replay failed")
		return suture.ErrDoNotRestart
	}

	snap := s.orch.Store().Snapshot()
	logging.Info().
		Str("path", s.path).
		Dur("elapsed", time.Since(start)).
		Uint64("update_id", snap.UpdateID).
		Int("cards", len(snap.Cards)).
		Msg("replay finished")

	if s.exitWhenDone {
		return suture.ErrTerminateSupervisorTree
	}
	return suture.ErrDoNotRestart
}

// Replay feeds r to orch line by line, pausing delay after each line, then
// waits for the resolutions it started.
func Replay(ctx context.Context, r io.Reader, orch *orchestrator.Orchestrator, delay time.Duration) error {
	chunks := make(chan []byte)
	runErr := make(chan error, 1)
	go func() { runErr <- orch.Run(ctx, chunks) }()

	var readErr error
	reader := bufio.NewReaderSize(r, 64<<10)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			select {
			case chunks <- line:
			case <-ctx.Done():
				close(chunks)
				<-runErr
				return ctx.Err()
			}
			if delay > 0 && !sleep(ctx, delay) {
				close(chunks)
				<-runErr
				return ctx.Err()
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = fmt.Errorf("read replay: %w", err)
			}
			break
		}
	}

	close(chunks)
	if err := <-runErr; err != nil {
		return err
	}
	orch.Wait()
	return readErr
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// snapshotLogger prints each snapshot in headless mode.
type snapshotLogger struct {
	store *state.Store
}

func (s *snapshotLogger) String() string { return "snapshot-logger" }

func (s *snapshotLogger) Serve(ctx context.Context) error {
	snaps, cancel := s.store.Subscribe()
	defer cancel()

	logger := logging.WithComponent("snapshot")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case snap, ok := <-snaps:
			if !ok {
				return nil
			}
			logger.Info().
				Uint64("update_id", snap.UpdateID).
				Strs("hand", cardNames(snap, snap.Zones.Hand)).
				Strs("battlefield", cardNames(snap, snap.Zones.Battlefield)).
				Msg("snapshot")
		}
	}
}

// cardNames labels keys with resolved names, falling back to the key.
func cardNames(snap state.Snapshot, keys []card.Key) []string {
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		if md, ok := snap.Card(k); ok && md.Name != "" {
			names = append(names, md.Name)
			continue
		}
		names = append(names, k.String())
	}
	return names
}
