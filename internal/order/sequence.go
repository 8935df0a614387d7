package order

import (
	"fmt"

	"gorm.io/gorm"
)

// OrderCounter is the counters row that numbers orders.
const OrderCounter = "orderId"

// upsertIncr 单条语句完成「不存在则以 0 建行 → 自增 → 返回新值」，
// 不做先读后写，因此并发下不会发出重复序号。
const upsertIncr = `INSERT INTO counters (id, seq) VALUES (?, 1)
ON CONFLICT (id) DO UPDATE SET seq = counters.seq + 1
RETURNING seq`

// Sequence 分配单调递增的订单号。必须在下单事务内调用，回滚时自增一起回滚。
type Sequence struct {
	name string
}

func NewSequence(name string) *Sequence {
	return &Sequence{name: name}
}

// Next increments the counter on tx and returns the formatted value.
func (s *Sequence) Next(tx *gorm.DB) (string, error) {
	var seq int64
	if err := tx.Raw(upsertIncr, s.name).Scan(&seq).Error; err != nil {
		return "", storageErr("sequence "+s.name, err)
	}
	if seq <= 0 {
		return "", storageErr("sequence "+s.name, fmt.Errorf("counter returned %d", seq))
	}
	return FormatOrderNo(seq), nil
}

// FormatOrderNo pads to at least six digits; wider values are kept whole.
func FormatOrderNo(seq int64) string {
	return fmt.Sprintf("%06d", seq)
}
