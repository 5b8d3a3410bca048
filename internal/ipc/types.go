package ipc

import (
	"rollcall/internal/daemon"
	"rollcall/internal/ledger"
)

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse carries the daemon status snapshot.
type StatusResponse struct {
	Status daemon.Status `json:"status"`
}

// MarkRequest asks for manual attendance of the face currently in view.
type MarkRequest struct{}

// MarkResponse reports the manual mark outcome.
type MarkResponse = daemon.MarkResult

// RecordsRequest filters ledger records.
type RecordsRequest struct {
	Identity string `json:"identity"`
	Date     string `json:"date"`
	Limit    int    `json:"limit"`
}

// RecordsResponse contains ledger records, oldest first.
type RecordsResponse struct {
	Records []ledger.Record `json:"records"`
}

// StatsRequest fetches today's attendance summary.
type StatsRequest struct{}

// StatsResponse contains the attendance summary.
type StatsResponse struct {
	Stats ledger.Stats `json:"stats"`
}

// GalleryRequest fetches the loaded gallery description.
type GalleryRequest struct{}

// GalleryResponse describes the loaded gallery.
type GalleryResponse struct {
	Gallery daemon.GalleryInfo `json:"gallery"`
}
