package dto

import "time"

// ErrorResponse cuerpo de error HTTP.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ListResponse envoltorio de listados.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

// NewList construye el envoltorio; un listado vacío se serializa como [].
func NewList[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Total: len(items)}
}

// AmendmentMeta tipo y motivo de una enmienda (PUT sobre un registro versionado).
type AmendmentMeta struct {
	AmendmentType string `json:"amendment_type"`
	Reason        string `json:"reason"`
}

// ArchiveRequest body para archivar un registro o todos los del usuario.
type ArchiveRequest struct {
	Reason string `json:"reason"`
}

// ObservationRequest body para POST .../observations.
type ObservationRequest struct {
	Type         string     `json:"type"`
	Title        string     `json:"title"`
	Notes        string     `json:"notes"`
	Date         *time.Time `json:"date,omitempty"`
	HealthRating *int       `json:"health_rating,omitempty"`
}

// NotesRequest body con notas libres (contaminar, abortar).
type NotesRequest struct {
	Notes string `json:"notes"`
}
