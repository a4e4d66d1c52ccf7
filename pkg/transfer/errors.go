package transfer

import (
	"errors"
	"fmt"
)

// ErrTransferSkipped is returned when the service cannot take a transfer
// with the available capabilities. Callers treat it as a warning.
var ErrTransferSkipped = errors.New("transfer skipped: service supports neither presigned URLs nor relay for this batch")

// BatchError is returned when failures outnumber successes in a batch
type BatchError struct {
	Op     string
	Failed int
	Total  int
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("too many %s failures: %d/%d", e.Op, e.Failed, e.Total)
}
