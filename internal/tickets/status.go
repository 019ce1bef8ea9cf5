package tickets

import (
	"strings"
	"ticketscout/lib/textutil"
)

// StatusVocabulary maps a platform's own status words onto Status.
type StatusVocabulary map[string]Status

// CommonStatuses is the vocabulary shared by the US resale platforms.
var CommonStatuses = StatusVocabulary{
	"onsale":        StatusAvailable,
	"on_sale":       StatusAvailable,
	"available":     StatusAvailable,
	"soldout":       StatusSoldOut,
	"sold_out":      StatusSoldOut,
	"presale":       StatusPresale,
	"offsale":       StatusNotAvailable,
	"off_sale":      StatusNotAvailable,
	"not_available": StatusNotAvailable,
	"cancelled":     StatusCancelled,
	"canceled":      StatusCancelled,
	"postponed":     StatusPostponed,
	"rescheduled":   StatusPostponed,
	"unknown":       StatusUnknown,
}

// Map resolves raw into a Status, anything unrecognized is StatusUnknown.
func (v StatusVocabulary) Map(raw string) Status {
	key := strings.ReplaceAll(textutil.NormalizeName(raw), "-", "_")
	if key == "" {
		return StatusUnknown
	}
	if s, ok := v[key]; ok {
		return s
	}
	return StatusUnknown
}

// Merge returns a new vocabulary with other's entries layered over v.
func (v StatusVocabulary) Merge(other StatusVocabulary) StatusVocabulary {
	out := make(StatusVocabulary, len(v)+len(other))
	for k, s := range v {
		out[k] = s
	}
	for k, s := range other {
		out[k] = s
	}
	return out
}
