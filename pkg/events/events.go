// Package events defines the messages exchanged over the event bus: inbound
// push notifications and execution lifecycle notifications.
package events

import (
	"time"

	"github.com/chainreact/chainreact/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every event; consumers dispatch on the event type metadata.
const Topic = "chainreact.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	// Ingestion events.
	NotificationReceivedEvent EventType = "notification.received"

	// Execution lifecycle events, also the event types outbound webhooks subscribe to.
	ExecutionStartedEvent   EventType = "execution.started"
	ExecutionCompletedEvent EventType = "execution.completed"
	ExecutionFailedEvent    EventType = "execution.failed"
	ExecutionPausedEvent    EventType = "execution.paused"
)

// LifecycleEventTypes lists the event types outbound webhooks may subscribe to.
func LifecycleEventTypes() []EventType {
	return []EventType{ExecutionStartedEvent, ExecutionCompletedEvent, ExecutionFailedEvent, ExecutionPausedEvent}
}

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	OwnerID    string         `json:"owner_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// NotificationReceived hands a push notification from the receiver to the processor.
type NotificationReceived struct {
	BaseEvent

	Notification models.PushNotification `json:"notification"`
}

func (n NotificationReceived) GetType() EventType {
	return NotificationReceivedEvent
}

type ExecutionStarted struct {
	BaseEvent

	ExecutionID   string               `json:"execution_id"`
	WorkflowName  string               `json:"workflow_name"`
	TriggerNodeID string               `json:"trigger_node_id"`
	TriggerSource models.TriggerSource `json:"trigger_source"`
	TriggerData   map[string]any       `json:"trigger_data,omitempty"`
	Mode          models.ExecutionMode `json:"mode,omitempty"`
}

func (e ExecutionStarted) GetType() EventType {
	return ExecutionStartedEvent
}

type ExecutionCompleted struct {
	BaseEvent

	ExecutionID   string         `json:"execution_id"`
	Status        string         `json:"status"`
	DurationMs    int64          `json:"duration_ms"`
	NodesExecuted int            `json:"nodes_executed"`
	FinalResults  map[string]any `json:"final_results,omitempty"`
}

func (e ExecutionCompleted) GetType() EventType {
	return ExecutionCompletedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ExecutionID   string         `json:"execution_id"`
	Status        string         `json:"status"`
	DurationMs    int64          `json:"duration_ms"`
	Error         ExecutionError `json:"error"`
	NodesExecuted int            `json:"nodes_executed"`
}

// ExecutionError locates a failure inside the graph.
type ExecutionError struct {
	NodeID  string `json:"node_id,omitempty"`
	Message string `json:"message"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

type ExecutionPaused struct {
	BaseEvent

	ExecutionID  string         `json:"execution_id"`
	Status       string         `json:"status"`
	PausedAtNode string         `json:"paused_at_node"`
	PauseReason  string         `json:"pause_reason,omitempty"`
	ApprovalData map[string]any `json:"approval_data,omitempty"`
}

func (e ExecutionPaused) GetType() EventType {
	return ExecutionPausedEvent
}

func NewBaseEvent(eventType EventType, workflowID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
		Metadata:   make(map[string]any),
	}
}

// Base returns the common envelope fields of an event.
func (b BaseEvent) Base() BaseEvent {
	return b
}
