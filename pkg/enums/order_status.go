package enums

// OrderStatus tracks an order from payment through delivery. Reconciled
// orders start as completed; in-transit and delivered are set by fulfilment.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusInTransit OrderStatus = "in-transit"
	OrderStatusDelivered OrderStatus = "delivered"
)

var orderStatuses = set[OrderStatus]{OrderStatusPending, OrderStatusCompleted, OrderStatusInTransit, OrderStatusDelivered}

func (s OrderStatus) String() string { return string(s) }

func (s OrderStatus) IsValid() bool { return orderStatuses.has(s) }
