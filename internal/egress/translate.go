// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package egress

import (
	"github.com/livekit/protocol/livekit"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/tuto/meetd/internal/domain/recording/model"
	"github.com/tuto/meetd/internal/domain/recording/ports"
)

// providerStatus renders a LiveKit egress status in the provider vocabulary
// the status table understands; unknown states keep their enum name.
func providerStatus(s livekit.EgressStatus) string {
	switch s {
	case livekit.EgressStatus_EGRESS_COMPLETE:
		return model.ProviderComplete
	case livekit.EgressStatus_EGRESS_ENDING:
		return model.ProviderEnding
	case livekit.EgressStatus_EGRESS_FAILED:
		return model.ProviderFailed
	case livekit.EgressStatus_EGRESS_ABORTED:
		return model.ProviderAborted
	case livekit.EgressStatus_EGRESS_ACTIVE:
		return model.ProviderActive
	default:
		return s.String()
	}
}

func toProviderInfo(info *livekit.EgressInfo) *ports.ProviderInfo {
	if info == nil {
		return nil
	}
	return &ports.ProviderInfo{
		JobID:  info.GetEgressId(),
		Status: providerStatus(info.GetStatus()),
		Error:  info.GetError(),
		Result: toResult(info),
	}
}

// toResult picks the first segment or file result. Jobs that finished with
// other output types keep the raw payload.
func toResult(info *livekit.EgressInfo) *model.Result {
	if segs := info.GetSegmentResults(); len(segs) > 0 {
		s := segs[0]
		return model.NewSegmentsResult(model.SegmentsResult{
			PlaylistName:     s.GetPlaylistName(),
			LivePlaylistName: s.GetLivePlaylistName(),
			PlaylistLocation: s.GetPlaylistLocation(),
			Duration:         s.GetDuration(),
			Size:             s.GetSize(),
			SegmentCount:     s.GetSegmentCount(),
			StartedAt:        s.GetStartedAt(),
			EndedAt:          s.GetEndedAt(),
		})
	}
	if files := info.GetFileResults(); len(files) > 0 {
		f := files[0]
		return model.NewFileResult(model.FileResult{
			Filename:  f.GetFilename(),
			Location:  f.GetLocation(),
			Duration:  f.GetDuration(),
			Size:      f.GetSize(),
			StartedAt: f.GetStartedAt(),
			EndedAt:   f.GetEndedAt(),
		})
	}
	if len(info.GetStreamResults()) > 0 || len(info.GetImageResults()) > 0 {
		raw, err := protojson.Marshal(info)
		if err == nil {
			return model.NewUnknownResult(raw)
		}
	}
	return nil
}
