package storage

import "poolotto/internal/model"

// Sink defines a destination for outbound contract messages.
type Sink interface {
	PutOutboundBatch(msgs []model.OutboundRecord) error
}
