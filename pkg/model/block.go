package model

import "time"

// BlockRecord is an audit entry describing one admin block action.
type BlockRecord struct {
	ID         int64     `json:"id" yaml:"id"`
	Address    string    `json:"address" yaml:"address"`
	TargetName string    `json:"target_name" yaml:"target_name"`
	BlockedBy  string    `json:"blocked_by" yaml:"blocked_by"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}
