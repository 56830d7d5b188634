// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package model

import "strings"

// Provider status names as reported by the egress adapter.
const (
	ProviderComplete = "complete"
	ProviderEnding   = "ending"
	ProviderFailed   = "failed"
	ProviderAborted  = "aborted"
	ProviderActive   = "active"
)

var providerStatusTable = map[string]Status{
	ProviderComplete: StatusCompleted,
	ProviderEnding:   StatusEnding,
	ProviderFailed:   StatusFailed,
	ProviderAborted:  StatusAborted,
	ProviderActive:   StatusActive,
}

// MapProviderStatus maps a provider status to the local enum. Anything not in
// the table maps to StatusStopped.
func MapProviderStatus(provider string) Status {
	if s, ok := providerStatusTable[strings.ToLower(strings.TrimSpace(provider))]; ok {
		return s
	}
	return StatusStopped
}
