// Package models defines the domain types shared across mdbridge.
package models

import "time"

// Document is the handle of one host-side note.
type Document struct {
	GUID      string    `json:"guid" yaml:"guid"`
	Title     string    `json:"title" yaml:"title"`
	KBGUID    string    `json:"kb_guid,omitempty" yaml:"kb_guid,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// DocumentMetadata is a lightweight representation returned by list operations.
type DocumentMetadata struct {
	GUID      string    `json:"guid"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
