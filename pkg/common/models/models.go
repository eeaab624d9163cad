package models

import "time"

// Subject levels for demographic rows.
const (
	LevelGroup      = "group"
	LevelIndividual = "individual"
)

// Source identifiers emitted by the adapters.
const (
	SourceStudies        = "pkdb-studies"
	SourceGroups         = "pkdb-groups"
	SourceIndividuals    = "pkdb-individuals"
	SourceInterventions  = "pkdb-interventions"
	SourceSubstanceStats = "pkdb-substance-stats"
)

// Benchmark endpoint names (one flat table each).
const (
	EndpointClearance       = "clearance"
	EndpointHalfLife        = "half_life"
	EndpointBioavailability = "bioavailability"
	EndpointProteinBinding  = "protein_binding"
)

// RawRecord is one attribute-keyed record as produced by a source adapter.
// Fields carry the source's own key names; the normalizer owns the mapping
// into canonical columns.
type RawRecord struct {
	Source string                 `json:"source"`
	Fields map[string]interface{} `json:"fields"`
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"` // ingest, normalize, pivot, features, run
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

// Pipeline run states.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusPartial   = "partial"
	RunStatusFailed    = "failed"
)

// Pipeline run models
type RunRequest struct {
	StudySIDs   []string `json:"study_sids,omitempty"` // empty = all observed studies
	Levels      []string `json:"levels,omitempty"`     // empty = both levels
	RequestedBy string   `json:"requested_by,omitempty"`
}

// Ingest accounting returned by the normalizer for one batch.
type IngestSummary struct {
	Source   string `json:"source"`
	Accepted int    `json:"accepted"`
	Rejected int    `json:"rejected"`
	Orphaned int    `json:"orphaned"`
}

// Feature Store
type Feature struct {
	Name      string      `json:"name"`
	Value     interface{} `json:"value"`
	Timestamp time.Time   `json:"timestamp"`
}

type FeatureSet struct {
	StudySID  string             `json:"study_sid"`
	Level     string             `json:"level"`
	SubjectPK int64              `json:"subject_pk"`
	Features  map[string]Feature `json:"features"`
	Version   int                `json:"version"`
}
