package helpers

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// StatType describes a statistic
type StatType struct {
	Metric string `json:"metric"`
	Value  int64  `json:"value"`
}

// DefaultMetaType is used by single items
type DefaultMetaType struct {
	CreatedType
	EditedType
	ExtendedMetaType
}

// SummaryMetaType is used by summary of single items
type SummaryMetaType struct {
	CreatedType
	ExtendedMetaType
}

// CoreMetaType is used implicitly by all meta types, and explicitly by all
// collections
type CoreMetaType struct {
	Stats       []StatType  `json:"stats,omitempty"`
	Links       []LinkType  `json:"links,omitempty"`
	Permissions interface{} `json:"permissions,omitempty"`
}

// ExtendedMetaType is used implicitly by all meta types, and explicitly by all
// collections
type ExtendedMetaType struct {
	Flags FlagsType `json:"flags,omitempty"`
	CoreMetaType
}

// CreatedType describes an author/creator
type CreatedType struct {
	Created     time.Time   `json:"created"`
	CreatedByID int64       `json:"-"`
	CreatedBy   interface{} `json:"createdBy,omitempty"`
}

// EditedType describes edited meta data
type EditedType struct {
	EditedNullable   pq.NullTime   `json:"-"`
	Edited           string        `json:"edited,omitempty"`
	EditedByNullable sql.NullInt64 `json:"-"`
	EditedByID       int64         `json:"editedById,omitempty"`
}

// FlagsType describes the common flags
type FlagsType struct {
	Featured bool `json:"featured"`
	Deleted  bool `json:"deleted"`
	Visible  bool `json:"visible"`
}

// SetVisible determines whether the item should be visible
func (f *FlagsType) SetVisible() {
	f.Visible = !f.Deleted
}

// SetEdited fills the edited meta for a change made by the given user
func (e *EditedType) SetEdited(userID int64, t time.Time) {
	e.EditedNullable = pq.NullTime{Time: t, Valid: true}
	e.EditedByNullable = sql.NullInt64{Int64: userID, Valid: true}
}

// Resolve copies the nullable columns into their JSON fields after a scan
func (e *EditedType) Resolve() {
	if e.EditedNullable.Valid {
		e.Edited = e.EditedNullable.Time.Format(time.RFC3339Nano)
	}
	if e.EditedByNullable.Valid {
		e.EditedByID = e.EditedByNullable.Int64
	}
}
