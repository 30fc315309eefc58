// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var _ suture.Service = (*ArchiveWriterService)(nil)

// mockArchiveWriter is a test double for the ArchiveWriter interface.
type mockArchiveWriter struct {
	startErr   error
	closeErr   error
	startCount atomic.Int32
	closeCount atomic.Int32
}

func (m *mockArchiveWriter) Start(ctx context.Context) error {
	m.startCount.Add(1)
	return m.startErr
}

func (m *mockArchiveWriter) Close() error {
	m.closeCount.Add(1)
	return m.closeErr
}

func TestArchiveWriterServiceServe(t *testing.T) {
	t.Run("starts writer and closes on cancel", func(t *testing.T) {
		writer := &mockArchiveWriter{}
		svc := NewArchiveWriterService(writer)

		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() {
			errCh <- svc.Serve(ctx)
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, context.Canceled) {
				t.Errorf("expected context.Canceled, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Serve did not return")
		}

		if writer.startCount.Load() != 1 {
			t.Errorf("start calls = %d, want 1", writer.startCount.Load())
		}
		if writer.closeCount.Load() != 1 {
			t.Errorf("close calls = %d, want 1", writer.closeCount.Load())
		}
	})

	t.Run("returns start error without closing", func(t *testing.T) {
		startErr := errors.New("writer already closed")
		writer := &mockArchiveWriter{startErr: startErr}

		if err := NewArchiveWriterService(writer).Serve(context.Background()); !errors.Is(err, startErr) {
			t.Errorf("expected start error, got %v", err)
		}
		if writer.closeCount.Load() != 0 {
			t.Error("Close should not be called after failed Start")
		}
	})

	t.Run("surfaces close error", func(t *testing.T) {
		closeErr := errors.New("final flush failed")
		writer := &mockArchiveWriter{closeErr: closeErr}
		svc := NewArchiveWriterService(writer)

		ctx, cancel := context.WithCancel(context.Background())

		errCh := make(chan error, 1)
		go func() {
			errCh <- svc.Serve(ctx)
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		select {
		case err := <-errCh:
			if !errors.Is(err, closeErr) {
				t.Errorf("expected close error, got %v", err)
			}
		case <-time.After(time.Second):
			t.Fatal("Serve did not return")
		}
	})
}

func TestArchiveWriterServiceString(t *testing.T) {
	if got := NewArchiveWriterService(&mockArchiveWriter{}).String(); got != "archive-writer" {
		t.Errorf("name = %q, want archive-writer", got)
	}
}
