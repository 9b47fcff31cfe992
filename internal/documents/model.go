package documents

import (
	"fmt"
	"time"
)

// Status is the coarse processing state exposed to clients.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Stage is the fine-grained pipeline position.
type Stage string

const (
	StagePending     Stage = "pending"
	StageProcessing  Stage = "processing"
	StageMasking     Stage = "masking"
	StageSummarizing Stage = "summarizing"
	StageClassifying Stage = "classifying"
	StageCompleted   Stage = "completed"
	StageFailed      Stage = "failed"
)

var stageRank = map[Stage]int{
	StagePending:     0,
	StageProcessing:  1,
	StageMasking:     2,
	StageSummarizing: 3,
	StageClassifying: 4,
	StageCompleted:   5,
}

// Terminal reports whether no further transition is allowed.
func (s Stage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}

// Status maps a stage onto the coarse status.
func (s Stage) Status() Status {
	switch s {
	case StagePending:
		return StatusPending
	case StageCompleted:
		return StatusCompleted
	case StageFailed:
		return StatusFailed
	default:
		return StatusProcessing
	}
}

// CanAdvance reports whether from -> to is a legal transition: strictly
// forward, or to failed from any non-terminal stage.
func CanAdvance(from, to Stage) bool {
	if from.Terminal() {
		return false
	}
	if to == StageFailed {
		return true
	}
	fr, ok1 := stageRank[from]
	tr, ok2 := stageRank[to]
	return ok1 && ok2 && tr > fr
}

// Document is one uploaded file and everything derived from it.
type Document struct {
	ID           string
	UserID       string
	FileName     string
	OriginalName string
	MimeType     string
	SizeBytes    int64

	StorageProvider string
	StorageURL      string
	StorageKey      string

	RawText    *string
	MaskedText *string

	Summary          *string
	ExecutiveSummary *string
	KeyPoints        *string
	Analysis         *string

	DocumentType             string
	ClassificationConfidence float64
	ClassificationReasoning  string

	HasSensitiveData bool
	MaskedFields     []string
	MaskingFailed    bool

	Status          Status
	Stage           Stage
	ProcessingError string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// advance moves the document to stage, keeping Status in step.
func (d *Document) advance(to Stage) error {
	if !CanAdvance(d.Stage, to) {
		return fmt.Errorf("illegal stage transition %s -> %s", d.Stage, to)
	}
	d.Stage = to
	d.Status = to.Status()
	return nil
}

// fail marks the document failed with a non-empty reason. It is a no-op on a
// terminal document.
func (d *Document) fail(reason string) bool {
	if d.Stage.Terminal() {
		return false
	}
	if reason == "" {
		reason = "processing failed"
	}
	d.Stage = StageFailed
	d.Status = StatusFailed
	d.ProcessingError = reason
	return true
}

// complete reports whether every derived field is present.
func (d Document) complete() bool {
	return d.RawText != nil && *d.RawText != "" &&
		d.Summary != nil && d.ExecutiveSummary != nil && d.KeyPoints != nil && d.Analysis != nil
}

func strPtr(s string) *string { return &s }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
