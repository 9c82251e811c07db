package store

// Collection names as persisted by the gateway.
const (
	CollectionUsers       = "users"
	CollectionResources   = "resources"
	CollectionAssignments = "assignments"
	CollectionEvents      = "events"
	CollectionChat        = "chatMessages"
	CollectionClub        = "club"
)
