package notify

// Message is the flat payload behind every customer notification.
type Message struct {
	To           string
	CustomerName string
	ServiceName  string
	ScheduledAt  string // already formatted, empty when unscheduled
	Amount       string // already formatted, e.g. ₦15,000
	Reference    string
	BookingID    string
	MeetLink     string
}

// withDefaults fills the display names used when metadata carried none.
func (m Message) withDefaults() Message {
	if m.CustomerName == "" {
		m.CustomerName = "Customer"
	}
	if m.ServiceName == "" {
		m.ServiceName = "Service"
	}
	return m
}

// Email is a rendered message ready for delivery.
type Email struct {
	To      string
	Subject string
	HTML    string
}
