package datastore

import "time"

// KeyValue is one persisted blob.
type KeyValue struct {
	Key       string `gorm:"column:store_key;primaryKey;size:191"`
	Value     []byte
	UpdatedAt time.Time
}

// TableName keeps the table name stable across GORM naming strategies.
func (KeyValue) TableName() string {
	return "key_values"
}
