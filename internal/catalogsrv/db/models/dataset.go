package models

import (
	"time"

	"github.com/google/uuid"
)

/*
                         Table "public.datasets"
      Column       |           Type           | Nullable |    Default
-------------------+--------------------------+----------+---------------
 dataset_id        | uuid                     | not null |
 name              | character varying(256)   | not null |
 base_name         | character varying(256)   | not null |
 version           | integer                  | not null |
 parent_id         | uuid                     |          |
 description       | text                     | not null | ''::text
 tags              | text[]                   | not null | '{}'::text[]
 created_by        | character varying(128)   | not null |
 created_at        | timestamp with time zone | not null | now()
 updated_by        | character varying(128)   |          |
 updated_at        | timestamp with time zone |          |
 is_deleted        | boolean                  | not null | false
 deleted_by        | character varying(128)   |          |
 deleted_at        | timestamp with time zone |          |
 is_production     | boolean                  | not null | false
 production_set_by | character varying(128)   |          |
 production_set_at | timestamp with time zone |          |
 files             | jsonb                    | not null | '[]'::jsonb
Indexes:
    "datasets_pkey" PRIMARY KEY, btree (dataset_id)
    "datasets_base_name_idx" btree (base_name)
    "datasets_active_name_idx" btree (name) WHERE NOT is_deleted
Check constraints:
    "datasets_version_check" CHECK (version > 0)
*/

// Dataset is one version of a dataset family. Records sharing a BaseName form
// the family; ParentID links a version to the one it was derived from.
type Dataset struct {
	ID              uuid.UUID  `db:"dataset_id" json:"id"`
	Name            string     `db:"name" json:"name"`
	BaseName        string     `db:"base_name" json:"base_name"`
	Version         int        `db:"version" json:"version"`
	ParentID        *uuid.UUID `db:"parent_id" json:"parent_id"`
	Description     string     `db:"description" json:"description"`
	Tags            []string   `db:"tags" json:"tags"`
	CreatedBy       string     `db:"created_by" json:"created_by"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedBy       string     `db:"updated_by" json:"updated_by,omitempty"`
	UpdatedAt       *time.Time `db:"updated_at" json:"updated_at,omitempty"`
	IsDeleted       bool       `db:"is_deleted" json:"is_deleted,omitempty"`
	DeletedBy       string     `db:"deleted_by" json:"deleted_by,omitempty"`
	DeletedAt       *time.Time `db:"deleted_at" json:"deleted_at,omitempty"`
	IsProduction    bool       `db:"is_production" json:"is_production"`
	ProductionSetBy string     `db:"production_set_by" json:"production_set_by,omitempty"`
	ProductionSetAt *time.Time `db:"production_set_at" json:"production_set_at,omitempty"`
	Files           []FileInfo `db:"files" json:"files"`
}

// FileInfo is an entry of Dataset.Files. It is stored inside the dataset's
// files jsonb column.
type FileInfo struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	BlobPath    string    `json:"blob_path"`
	UploadedBy  string    `json:"uploaded_by"`
	UploadedAt  time.Time `json:"uploaded_at"`
	SizeBytes   int64     `json:"size_bytes"`
	SizeKB      float64   `json:"size_kb"`
	ContentType string    `json:"content_type"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
}

// Clone returns a deep copy of d.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	c := *d
	if d.ParentID != nil {
		p := *d.ParentID
		c.ParentID = &p
	}
	c.Tags = cloneStrings(d.Tags)
	c.UpdatedAt = cloneTime(d.UpdatedAt)
	c.DeletedAt = cloneTime(d.DeletedAt)
	c.ProductionSetAt = cloneTime(d.ProductionSetAt)
	if d.Files != nil {
		c.Files = make([]FileInfo, len(d.Files))
		for i, f := range d.Files {
			f.Tags = cloneStrings(f.Tags)
			c.Files[i] = f
		}
	}
	return &c
}

// IsActive reports whether the record carries no tombstone.
func (d *Dataset) IsActive() bool {
	return !d.IsDeleted
}

// DatasetQuery selects dataset records. Zero-valued fields do not filter.
type DatasetQuery struct {
	IDs          []uuid.UUID
	Name         string
	BaseName     string
	Deleted      *bool
	Production   *bool
	CreatedBy    []string // matched case-insensitively
	CreatedAfter *time.Time
	NewestFirst  bool
	Limit        int
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func BoolPtr(b bool) *bool {
	return &b
}
