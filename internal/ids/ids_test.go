package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTransactionIDFormatAndSortability(t *testing.T) {
	t1 := NewTransactionID(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	t2 := NewTransactionID(time.Date(2024, 1, 2, 3, 4, 6, 0, time.UTC))

	require.Len(t, t1, len("20240102-030405")+1+8)
	require.Less(t, t1, t2)
}
