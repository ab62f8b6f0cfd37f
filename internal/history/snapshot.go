package history

import "balance-history/internal/numeric"

// Snapshot is the balance immediately before and after one event.
// Delta == After - Before. Snapshots live for one request only.
type Snapshot struct {
	Before numeric.U128
	After  numeric.U128
	Delta  numeric.I128
}
