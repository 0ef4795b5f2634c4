package port

// IDGenerator supplies identifiers for new records and events.
// Sortable ids (sessions, tokens, pending challenges) order by creation time;
// random ids are used for events and jti claims.
type IDGenerator interface {
	NewSortableID() string
	NewRandomID() string
}
