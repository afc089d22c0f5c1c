package models

import (
	"time"

	"github.com/google/uuid"
)

/*
                    Table "public.activities"
    Column     |           Type           | Nullable | Default
---------------+--------------------------+----------+---------
 activity_id   | uuid                     | not null |
 username      | character varying(128)   | not null |
 activity_type | character varying(64)    | not null |
 message       | text                     | not null |
 dataset_id    | uuid                     |          |
 file_id       | uuid                     |          |
 created_at    | timestamp with time zone | not null | now()
Indexes:
    "activities_pkey" PRIMARY KEY, btree (activity_id)
    "activities_username_created_at_idx" btree (username, created_at DESC)
*/

// Activity is an append-only audit log entry.
type Activity struct {
	ID           uuid.UUID  `db:"activity_id" json:"id"`
	Username     string     `db:"username" json:"username"`
	ActivityType string     `db:"activity_type" json:"activity_type"`
	Message      string     `db:"message" json:"message"`
	DatasetID    *uuid.UUID `db:"dataset_id" json:"dataset_id,omitempty"`
	FileID       *uuid.UUID `db:"file_id" json:"file_id,omitempty"`
	Timestamp    time.Time  `db:"created_at" json:"timestamp"`
}

type ActivityQuery struct {
	Username string
	Limit    int
}
