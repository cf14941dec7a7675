package model

// NumberSequence backs the atomic document-number allocator.
// One row per prefix+period (e.g. "INV-202609"); Value is incremented with an
// upsert (INSERT … ON CONFLICT DO UPDATE … RETURNING) so two concurrent
// allocations can never observe the same value.
type NumberSequence struct {
	Key   string `gorm:"primaryKey;type:varchar(20)"`
	Value int64  `gorm:"not null;default:0"`
}

func (NumberSequence) TableName() string { return "number_sequences" }
