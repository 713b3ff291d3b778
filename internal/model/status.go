package model

// Status is the operator-controlled fulfillment state of an order.
type Status string

const (
	StatusNew        Status = "new"
	StatusConfirmed  Status = "confirmed"
	StatusCancelled  Status = "cancelled"
	StatusNotPicked  Status = "not_picked"
	StatusDispatched Status = "dispatched"
	StatusDelivered  Status = "delivered"
	StatusRTO        Status = "rto"
)

var statuses = []Status{
	StatusNew,
	StatusConfirmed,
	StatusCancelled,
	StatusNotPicked,
	StatusDispatched,
	StatusDelivered,
	StatusRTO,
}

// Statuses returns every valid status in display order.
func Statuses() []Status {
	out := make([]Status, len(statuses))
	copy(out, statuses)
	return out
}

func (s Status) Valid() bool {
	for _, v := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

// IsTerminal is informational; any status may still be set from any other.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusDelivered || s == StatusRTO
}
