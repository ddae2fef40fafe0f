package entity

import "time"

// Tipos de enmienda registrados en Version.AmendmentType y en la bitácora.
const (
	AmendmentOriginal         = "original"
	AmendmentCorrection       = "correction"
	AmendmentUpdate           = "update"
	AmendmentReclassification = "reclassification"
	AmendmentArchive          = "archive"
)

// Tipos de entidad versionada (también son los nombres de colección en el almacén).
const (
	EntityCulture       = "culture"
	EntityGrow          = "grow"
	EntityPreparedSpawn = "prepared_spawn"
)

// Version metadatos append-only compartidos por toda entidad versionada.
// Number es el número de versión (inicia en 1). RecordGroupID es estable entre versiones (por defecto el ID de la primera);
// solo una versión por grupo no archivado tiene IsCurrent=true.
type Version struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	RecordGroupID   string     `json:"record_group_id"`
	Number          int        `json:"version"`
	IsCurrent       bool       `json:"is_current"`
	ValidFrom       time.Time  `json:"valid_from"`
	ValidTo         *time.Time `json:"valid_to,omitempty"`
	SupersededByID  string     `json:"superseded_by_id,omitempty"`
	IsArchived      bool       `json:"is_archived"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
	ArchivedBy      string     `json:"archived_by,omitempty"`
	ArchiveReason   string     `json:"archive_reason,omitempty"`
	AmendmentType   string     `json:"amendment_type"`
	AmendmentReason string     `json:"amendment_reason,omitempty"`
	AmendsRecordID  string     `json:"amends_record_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Meta devuelve los metadatos de versión (promovido a las entidades que embeben Version).
func (v *Version) Meta() *Version { return v }

// GroupID devuelve el grupo del registro; un registro sin grupo es su propio grupo.
func (v Version) GroupID() string {
	if v.RecordGroupID != "" {
		return v.RecordGroupID
	}
	return v.ID
}

// IsLive indica si la versión es la vigente y no está archivada.
func (v Version) IsLive() bool { return v.IsCurrent && !v.IsArchived }

// NewVersion metadatos de la primera versión de un registro.
func NewVersion(id, userID string, now time.Time) Version {
	return Version{
		ID:            id,
		UserID:        userID,
		RecordGroupID: id,
		Number:        1,
		IsCurrent:     true,
		ValidFrom:     now,
		AmendmentType: AmendmentOriginal,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// VersionSummary fila del historial de un grupo (ordenado por Version ascendente).
type VersionSummary struct {
	ID              string     `json:"id"`
	Version         int        `json:"version"`
	IsCurrent       bool       `json:"is_current"`
	IsArchived      bool       `json:"is_archived"`
	ValidFrom       time.Time  `json:"valid_from"`
	ValidTo         *time.Time `json:"valid_to,omitempty"`
	AmendmentType   string     `json:"amendment_type"`
	AmendmentReason string     `json:"amendment_reason,omitempty"`
	SupersededByID  string     `json:"superseded_by_id,omitempty"`
}

// Summary resume la versión para el historial.
func (v Version) Summary() VersionSummary {
	return VersionSummary{
		ID:              v.ID,
		Version:         v.Number,
		IsCurrent:       v.IsCurrent,
		IsArchived:      v.IsArchived,
		ValidFrom:       v.ValidFrom,
		ValidTo:         v.ValidTo,
		AmendmentType:   v.AmendmentType,
		AmendmentReason: v.AmendmentReason,
		SupersededByID:  v.SupersededByID,
	}
}

// DataAmendmentLogEntry fila append-only de la bitácora de enmiendas y archivados.
type DataAmendmentLogEntry struct {
	ID               string    `json:"id"`
	UserID           string    `json:"user_id"`
	EntityType       string    `json:"entity_type"`
	RecordGroupID    string    `json:"record_group_id"`
	OriginalRecordID string    `json:"original_record_id"`
	NewRecordID      string    `json:"new_record_id,omitempty"`
	AmendmentType    string    `json:"amendment_type"`
	Reason           string    `json:"reason"`
	ActorID          string    `json:"actor_id"`
	CreatedAt        time.Time `json:"created_at"`
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (v Version) clone() Version {
	v.ValidTo = cloneTime(v.ValidTo)
	v.ArchivedAt = cloneTime(v.ArchivedAt)
	return v
}
