package order

import (
	"sync"
	"testing"

	"storefront/internal/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFormatOrderNo(t *testing.T) {
	cases := map[int64]string{
		1:       "000001",
		42:      "000042",
		999999:  "999999",
		1000000: "1000000",
	}
	for seq, want := range cases {
		assert.Equal(t, want, FormatOrderNo(seq))
	}
}

func TestSequenceStartsAtOneAndIncrements(t *testing.T) {
	db := database.OpenTemp(t)
	seq := NewSequence(OrderCounter)

	assert.Zero(t, counterValue(t, db, OrderCounter))

	first, err := seq.Next(db)
	require.NoError(t, err)
	second, err := seq.Next(db)
	require.NoError(t, err)

	assert.Equal(t, "000001", first)
	assert.Equal(t, "000002", second)

	assert.EqualValues(t, 2, counterValue(t, db, OrderCounter))
}

func TestSequenceRollsBackWithTransaction(t *testing.T) {
	db := database.OpenTemp(t)
	seq := NewSequence(OrderCounter)

	_, err := seq.Next(db)
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		if _, err := seq.Next(tx); err != nil {
			return err
		}
		return ErrInsufficientStock
	})
	require.ErrorIs(t, err, ErrInsufficientStock)

	assert.EqualValues(t, 1, counterValue(t, db, OrderCounter))
}

func TestSequenceConcurrentValuesAreUnique(t *testing.T) {
	db := database.OpenTemp(t)
	seq := NewSequence(OrderCounter)

	const n = 20
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[string]bool{}
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := seq.Next(db)
			assert.NoError(t, err)
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.EqualValues(t, n, counterValue(t, db, OrderCounter))
}

func TestSeparateCountersAreIndependent(t *testing.T) {
	db := database.OpenTemp(t)

	a, err := NewSequence("a").Next(db)
	require.NoError(t, err)
	b, err := NewSequence("b").Next(db)
	require.NoError(t, err)

	assert.Equal(t, "000001", a)
	assert.Equal(t, "000001", b)
}
