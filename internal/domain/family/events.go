package family

import (
	"github.com/turtacn/FamilyScope/pkg/types/common"
	ptypes "github.com/turtacn/FamilyScope/pkg/types/patent"
)

// Event type names, used as the Kafka envelope type.
const (
	EventStageChanged    = "family.record.stage_changed"
	EventImportProgress  = "family.import.progress"
	EventImportRequested = "family.import.requested"
)

// StageChangedEvent is published after every enrichment transition.
type StageChangedEvent struct {
	common.BaseEvent
	RecordID     string        `json:"record_id"`
	PatentNumber ptypes.Number `json:"patent_number"`
	From         Stage         `json:"from"`
	To           Stage         `json:"to"`
	LastError    *string       `json:"last_error,omitempty"`
	Record       Record        `json:"record"`
}

func NewStageChangedEvent(from Stage, r Record) *StageChangedEvent {
	return &StageChangedEvent{
		BaseEvent:    common.NewBaseEvent(r.ID),
		RecordID:     r.ID,
		PatentNumber: r.PatentNumber,
		From:         from,
		To:           r.Stage,
		LastError:    r.LastError,
		Record:       r.Clone(),
	}
}

// EventType implements the messaging envelope contract.
func (e *StageChangedEvent) EventType() string { return EventStageChanged }

// ImportProgressEvent reports one finished item of a batch import.
type ImportProgressEvent struct {
	common.BaseEvent
	JobID        string `json:"job_id"`
	PatentNumber string `json:"patent_number"`
	Outcome      string `json:"outcome"`
	Done         int    `json:"done"`
	Total        int    `json:"total"`
}

func NewImportProgressEvent(jobID, number, outcome string, done, total int) *ImportProgressEvent {
	return &ImportProgressEvent{
		BaseEvent:    common.NewBaseEvent(jobID),
		JobID:        jobID,
		PatentNumber: number,
		Outcome:      outcome,
		Done:         done,
		Total:        total,
	}
}

func (e *ImportProgressEvent) EventType() string { return EventImportProgress }

// ImportRequestedEvent asks a worker to run a batch import.
type ImportRequestedEvent struct {
	common.BaseEvent
	JobID       string   `json:"job_id"`
	SessionKey  string   `json:"session_key"`
	Identifiers []string `json:"identifiers"`
}

func NewImportRequestedEvent(jobID, sessionKey string, ids []string) *ImportRequestedEvent {
	return &ImportRequestedEvent{
		BaseEvent:   common.NewBaseEvent(jobID),
		JobID:       jobID,
		SessionKey:  sessionKey,
		Identifiers: append([]string(nil), ids...),
	}
}

func (e *ImportRequestedEvent) EventType() string { return EventImportRequested }

//Personal.AI order the ending
