package events

// Topic constants for display events emitted by the POS core.
const (
	TopicCartChanged      = "cart.changed"
	TopicSelectionChanged = "selection.changed"
	TopicItemAdded        = "item.added"
	TopicSaleCompleted    = "sale.completed"
	TopicCatalogReplaced  = "catalog.replaced"
	TopicSessionClosed    = "session.closed"
)

// DefaultTopics returns the canonical list of topics consumers can
// subscribe to.
func DefaultTopics() []string {
	return []string{
		TopicCartChanged,
		TopicSelectionChanged,
		TopicItemAdded,
		TopicSaleCompleted,
		TopicCatalogReplaced,
		TopicSessionClosed,
	}
}
