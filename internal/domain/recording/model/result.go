// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import (
	"encoding/json"
	"fmt"
)

// ResultKind discriminates the Result variants.
type ResultKind string

const (
	ResultSegments ResultKind = "segments"
	ResultFile     ResultKind = "file"
	ResultUnknown  ResultKind = "unknown"
)

// SegmentsResult describes an HLS segmented recording.
type SegmentsResult struct {
	PlaylistName     string `json:"playlistName"`
	LivePlaylistName string `json:"livePlaylistName,omitempty"`
	PlaylistLocation string `json:"playlistLocation,omitempty"`
	Duration         int64  `json:"duration"`
	Size             int64  `json:"size"`
	SegmentCount     int64  `json:"segmentCount"`
	StartedAt        int64  `json:"startedAt,omitempty"`
	EndedAt          int64  `json:"endedAt,omitempty"`
}

// FileResult describes a single-file recording.
type FileResult struct {
	Filename  string `json:"filename"`
	Location  string `json:"location,omitempty"`
	Duration  int64  `json:"duration"`
	Size      int64  `json:"size"`
	StartedAt int64  `json:"startedAt,omitempty"`
	EndedAt   int64  `json:"endedAt,omitempty"`
}

// Result is the provider-reported outcome of a finished recording. Exactly
// one of Segments or File is set for the matching Kind; Unknown keeps the raw
// provider payload. Durations and sizes are passed through unmodified.
type Result struct {
	Kind     ResultKind      `json:"kind"`
	Segments *SegmentsResult `json:"segments,omitempty"`
	File     *FileResult     `json:"file,omitempty"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// NewSegmentsResult wraps s as a segments Result.
func NewSegmentsResult(s SegmentsResult) *Result {
	return &Result{Kind: ResultSegments, Segments: &s}
}

// NewFileResult wraps f as a file Result.
func NewFileResult(f FileResult) *Result {
	return &Result{Kind: ResultFile, File: &f}
}

// NewUnknownResult keeps an unrecognised provider payload verbatim.
func NewUnknownResult(raw json.RawMessage) *Result {
	return &Result{Kind: ResultUnknown, Raw: append(json.RawMessage(nil), raw...)}
}

// Validate checks that the variant fields match Kind.
func (r *Result) Validate() error {
	if r == nil {
		return nil
	}
	switch r.Kind {
	case ResultSegments:
		if r.Segments == nil || r.File != nil {
			return fmt.Errorf("result kind %q requires segments data only", r.Kind)
		}
	case ResultFile:
		if r.File == nil || r.Segments != nil {
			return fmt.Errorf("result kind %q requires file data only", r.Kind)
		}
	case ResultUnknown:
		if r.Segments != nil || r.File != nil {
			return fmt.Errorf("result kind %q must not carry typed data", r.Kind)
		}
	default:
		return fmt.Errorf("unknown result kind %q", r.Kind)
	}
	return nil
}

// PlaylistRef returns the best reference to the playable artifact: the
// uploaded playlist location when known, else its name, else the file.
func (r *Result) PlaylistRef() string {
	if r == nil {
		return ""
	}
	switch r.Kind {
	case ResultSegments:
		if r.Segments.PlaylistLocation != "" {
			return r.Segments.PlaylistLocation
		}
		return r.Segments.PlaylistName
	case ResultFile:
		if r.File.Location != "" {
			return r.File.Location
		}
		return r.File.Filename
	}
	return ""
}

// Clone returns a deep copy of r.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := &Result{Kind: r.Kind}
	if r.Segments != nil {
		s := *r.Segments
		c.Segments = &s
	}
	if r.File != nil {
		f := *r.File
		c.File = &f
	}
	if r.Raw != nil {
		c.Raw = append(json.RawMessage(nil), r.Raw...)
	}
	return c
}
