// Pelorus - Maritime Vessel Tracking and Hazard Alerting
// Copyright 2026 M. Halvorsen (mhalvorsen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mhalvorsen/pelorus

package services

import (
	"context"
	"fmt"
)

// ArchiveWriter matches the archive writer's lifecycle without importing
// the archive package.
//
// Satisfied by *archive.Writer.
type ArchiveWriter interface {
	Start(ctx context.Context) error
	Close() error
}

// ArchiveWriterService wraps the DuckDB archive writer as a supervised
// service. The writer batches position, alert and congestion rows and
// flushes them on a timer; Close drains the remaining buffer.
//
// Example usage:
//
//	writer, _ := archive.NewWriter(store, writerCfg)
//	tree.AddDataService(services.NewArchiveWriterService(writer))
type ArchiveWriterService struct {
	writer ArchiveWriter
	name   string
}

// NewArchiveWriterService creates a new archive writer service wrapper.
func NewArchiveWriterService(writer ArchiveWriter) *ArchiveWriterService {
	return &ArchiveWriterService{
		writer: writer,
		name:   "archive-writer",
	}
}

// Serve implements suture.Service.
//
// Close flushes buffered rows before returning, so a supervised shutdown
// never loses a full batch window.
func (s *ArchiveWriterService) Serve(ctx context.Context) error {
	if err := s.writer.Start(ctx); err != nil {
		return fmt.Errorf("archive writer start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("archive writer close failed: %w", err)
	}

	return ctx.Err()
}

// String identifies the service in suture's event log.
func (s *ArchiveWriterService) String() string {
	return s.name
}
