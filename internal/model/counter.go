package model

// Counter 命名序列，订单号的唯一来源。
type Counter struct {
	ID  string `gorm:"size:64;primaryKey" json:"id"`
	Seq int64  `gorm:"not null;default:0" json:"seq"`
}

func (Counter) TableName() string { return "counters" }
