// Package report assembles per-channel signal rows into the batch consumed
// by the display layer. Field names and sentiment display labels are part
// of the downstream contract and must not change.
package report

import (
	"github.com/signalreel/signalreel/engine/signal"
)

// Row is the canonical output record, one per configured channel per pass.
type Row struct {
	Name           string          `json:"Name"`
	VideoTitle     string          `json:"Video Title"`
	Published      string          `json:"Published"`
	URL            string          `json:"URL"`
	Summary        string          `json:"Summary"`
	Sentiment      string          `json:"Sentiment"`
	KeyPoints      []string        `json:"KeyPoints"`
	Entities       signal.Entities `json:"Entities"`
	TranscriptNote string          `json:"TranscriptNote"`
	VideoID        string          `json:"VideoID,omitempty"`
	Error          string          `json:"Error,omitempty"`
}

// Batch is one completed pass over every configured channel.
type Batch struct {
	LastUpdated string `json:"last_updated"`
	Rows        []Row  `json:"rows"`
}
