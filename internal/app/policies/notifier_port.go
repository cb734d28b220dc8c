package policies

import "context"

// Notifier delivers a rendered message to one recipient. template names the message
// kind; data is whatever that template expects.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data any) error
}
