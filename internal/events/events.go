package events

import "context"

// Streams
const (
	StreamContract = "events:contract"
)

// Event types
const (
	EventCollaboratorAdded   = "collaborator_added"
	EventCollaboratorRemoved = "collaborator_removed"
	EventRoleChanged         = "collaborator_role_changed"
	EventOwnershipTransfer   = "ownership_transferred"
	EventContractUpdated     = "contract_updated"
)

type Event struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, stream string, event Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, stream string, handler func(Event)) error
}
