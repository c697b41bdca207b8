// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package loader

import (
	"bufio"
	"io"
	"os"

	"github.com/tomtom215/aisentry/internal/aismodel"
)

// Source is an opened, header-validated input ready to be pulled from in
// either streaming chunks or as one buffered slice. Both modes share the
// same underlying scanner and therefore produce byte-identical points
// for the same input.
type Source struct {
	loader  *Loader
	scanner *bufio.Scanner
	closer  io.Closer
	cols    columns
}

// OpenSource opens path, decompresses if needed, and validates the
// header, returning a Source ready for NextChunk/All.
func OpenSource(path string) (*Source, error) {
	l, scanner, closer, cols, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Source{loader: l, scanner: scanner, closer: closer, cols: cols}, nil
}

// Close releases the underlying file (and decompressor, if any).
func (s *Source) Close() error {
	return s.closer.Close()
}

// MalformedRows returns the count of rows skipped for failing to parse a
// required field.
func (s *Source) MalformedRows() int64 {
	return s.loader.Stats()
}

// NextChunk pulls up to size points, in source order. The second return
// is false once the source is exhausted, even if fewer than size points
// were returned on the final, partial chunk.
func (s *Source) NextChunk(size int) ([]aismodel.AisPoint, bool) {
	if size <= 0 {
		size = DefaultChunkSize
	}
	chunk := make([]aismodel.AisPoint, 0, size)
	for len(chunk) < size {
		point, ok := s.loader.Next(s.scanner, s.cols)
		if !ok {
			return chunk, false
		}
		chunk = append(chunk, point)
	}
	return chunk, true
}

// All drains the entire source into one slice (buffered mode).
func (s *Source) All() []aismodel.AisPoint {
	var all []aismodel.AisPoint
	for {
		chunk, more := s.NextChunk(DefaultChunkSize)
		all = append(all, chunk...)
		if !more {
			break
		}
	}
	return all
}

// ShouldStream reports whether the Replay Driver should prefer streaming
// mode for path: file size exceeds thresholdBytes, or the caller
// explicitly requested streaming.
func ShouldStream(path string, thresholdBytes int64, explicitlyRequested bool) bool {
	if explicitlyRequested {
		return true
	}
	if thresholdBytes <= 0 {
		thresholdBytes = DefaultStreamingThresholdBytes
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Size() > thresholdBytes
}
