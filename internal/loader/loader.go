// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package loader implements decoding of AIS position reports from
// CSV/tab/space-delimited files, transparently decompressing
// `.zst` input, and producing a lazy, finite sequence of AisPoint values
// either in streaming chunks or as one buffered slice.
package loader

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/tomtom215/aisentry/internal/aiserrors"
	"github.com/tomtom215/aisentry/internal/aismodel"
)

// DefaultChunkSize is the default streaming chunk size.
const DefaultChunkSize = 10000

// DefaultStreamingThresholdBytes is the default file-size cutoff above
// which the Replay Driver should prefer streaming mode (50 MB).
const DefaultStreamingThresholdBytes = 50 * 1024 * 1024

// maxScanTokenSize bounds a single line so a corrupt or adversarial input
// cannot grow bufio.Scanner's buffer unboundedly.
const maxScanTokenSize = 1024 * 1024

var identifierAliases = aliasSet("mmsi")
var timestampAliases = aliasSet("timestamp", "base_date_time", "basedatetime", "time")
var latAliases = aliasSet("lat", "latitude")
var lonAliases = aliasSet("lon", "longitude")
var sogAliases = aliasSet("sog")
var cogAliases = aliasSet("cog")
var headingAliases = aliasSet("heading")

func aliasSet(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[strings.ToLower(n)] = true
	}
	return m
}

// columns records which header position maps to each recognized field.
// -1 means the column is absent.
type columns struct {
	identifier, timestamp, lat, lon, sog, cog, heading int
}

func resolveColumns(header []string) columns {
	c := columns{-1, -1, -1, -1, -1, -1, -1}
	for i, raw := range header {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch {
		case identifierAliases[name]:
			c.identifier = i
		case timestampAliases[name]:
			c.timestamp = i
		case latAliases[name]:
			c.lat = i
		case lonAliases[name]:
			c.lon = i
		case sogAliases[name]:
			c.sog = i
		case cogAliases[name]:
			c.cog = i
		case headingAliases[name]:
			c.heading = i
		}
	}
	return c
}

func (c columns) missingRequired() []string {
	var missing []string
	if c.identifier < 0 {
		missing = append(missing, "mmsi")
	}
	if c.timestamp < 0 {
		missing = append(missing, "timestamp")
	}
	if c.lat < 0 {
		missing = append(missing, "lat")
	}
	if c.lon < 0 {
		missing = append(missing, "lon")
	}
	return missing
}

// Delimiter is the split strategy chosen from the file's inner extension.
type Delimiter int

const (
	DelimiterComma Delimiter = iota
	DelimiterWhitespace
)

// DetectDelimiter inspects path (after stripping a trailing .zst) and
// returns the delimiter implied by its extension: comma for .csv,
// tab-or-run-of-spaces for .dat.
func DetectDelimiter(path string) Delimiter {
	inner := strings.TrimSuffix(path, ".zst")
	if strings.HasSuffix(strings.ToLower(inner), ".dat") {
		return DelimiterWhitespace
	}
	return DelimiterComma
}

func splitLine(line string, d Delimiter) []string {
	switch d {
	case DelimiterWhitespace:
		return strings.FieldsFunc(line, func(r rune) bool { return r == '\t' || r == ' ' })
	default:
		return strings.Split(line, ",")
	}
}

// Stats tracks rows the loader could not turn into a point.
type Stats struct {
	MalformedRows atomic.Int64
}

// Loader decodes one AIS input file.
type Loader struct {
	path      string
	delimiter Delimiter
	stats     Stats
}

// Open validates that path exists and is readable, transparently wrapping
// a .zst reader when the outer extension calls for it, and returns a
// Loader ready to stream or buffer its points. Header parsing and
// required-column validation also happen here, before any point is
// yielded, so a SourceError never occurs mid-stream.
func Open(path string) (*Loader, *bufio.Scanner, io.Closer, columns, error) {
	f, err := os.Open(path) // #nosec G304 -- path is an operator-supplied replay source, not untrusted user input
	if err != nil {
		return nil, nil, nil, columns{}, &aiserrors.SourceError{Path: path, Err: err}
	}

	var r io.Reader = f
	var closer io.Closer = f
	if strings.HasSuffix(strings.ToLower(path), ".zst") {
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, nil, nil, columns{}, &aiserrors.SourceError{Path: path, Err: err}
		}
		r = zr
		closer = readCloserFunc(func() error {
			zr.Close()
			return f.Close()
		})
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxScanTokenSize)

	delim := DetectDelimiter(path)

	var header []string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		header = splitLine(line, delim)
		break
	}
	if err := scanner.Err(); err != nil {
		_ = closer.Close()
		return nil, nil, nil, columns{}, &aiserrors.SourceError{Path: path, Err: err}
	}
	if header == nil {
		_ = closer.Close()
		return nil, nil, nil, columns{}, &aiserrors.SourceError{Path: path, Err: io.ErrUnexpectedEOF}
	}

	cols := resolveColumns(header)
	if missing := cols.missingRequired(); len(missing) > 0 {
		_ = closer.Close()
		return nil, nil, nil, columns{}, &aiserrors.SourceError{
			Path: path,
			Err:  missingColumnsError(missing),
		}
	}

	l := &Loader{path: path, delimiter: delim}
	return l, scanner, closer, cols, nil
}

type readCloserFunc func() error

func (f readCloserFunc) Close() error { return f() }

func missingColumnsError(missing []string) error {
	return &missingColumnsErr{missing: missing}
}

type missingColumnsErr struct{ missing []string }

func (e *missingColumnsErr) Error() string {
	return "missing required column(s): " + strings.Join(e.missing, ", ")
}

// Stats returns a snapshot of this loader's malformed-row count.
func (l *Loader) Stats() int64 {
	return l.stats.MalformedRows.Load()
}

// Next decodes the next non-empty line from scanner into an AisPoint
// using cols, skipping (and counting) rows with unparseable required
// fields, until a valid point is produced or the scanner is exhausted.
func (l *Loader) Next(scanner *bufio.Scanner, cols columns) (aismodel.AisPoint, bool) {
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := splitLine(line, l.delimiter)
		point, ok := parseRow(fields, cols)
		if !ok {
			l.stats.MalformedRows.Add(1)
			continue
		}
		return point, true
	}
	return aismodel.AisPoint{}, false
}

func field(fields []string, idx int) (string, bool) {
	if idx < 0 || idx >= len(fields) {
		return "", false
	}
	return strings.TrimSpace(fields[idx]), true
}

func parseRow(fields []string, cols columns) (aismodel.AisPoint, bool) {
	mmsi, ok := field(fields, cols.identifier)
	if !ok || mmsi == "" {
		return aismodel.AisPoint{}, false
	}

	tsRaw, ok := field(fields, cols.timestamp)
	if !ok || tsRaw == "" {
		return aismodel.AisPoint{}, false
	}
	ts, ok := parseTimestamp(tsRaw)
	if !ok {
		return aismodel.AisPoint{}, false
	}

	latRaw, ok := field(fields, cols.lat)
	if !ok {
		return aismodel.AisPoint{}, false
	}
	lat, err := strconv.ParseFloat(latRaw, 64)
	if err != nil {
		return aismodel.AisPoint{}, false
	}

	lonRaw, ok := field(fields, cols.lon)
	if !ok {
		return aismodel.AisPoint{}, false
	}
	lon, err := strconv.ParseFloat(lonRaw, 64)
	if err != nil {
		return aismodel.AisPoint{}, false
	}

	point := aismodel.AisPoint{MMSI: mmsi, Timestamp: ts, Lat: lat, Lon: lon}
	point.SOG = parseOptionalFloat(fields, cols.sog)
	point.COG = parseOptionalFloat(fields, cols.cog)
	point.Heading = parseOptionalFloat(fields, cols.heading)
	return point, true
}

func parseOptionalFloat(fields []string, idx int) *float64 {
	raw, ok := field(fields, idx)
	if !ok || raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTimestamp(raw string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
