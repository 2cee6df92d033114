package orders

const (
	TopicOrderCreated = "cafe.order.created"
	TopicStockLow     = "cafe.stock.low"
)

// Partition key = order_id, so all events for one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
