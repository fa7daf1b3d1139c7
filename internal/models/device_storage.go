package models

import "time"

// DeviceStorageEntry 设备存储键值表
type DeviceStorageEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`                                                           // 主键
	DeviceID  string    `gorm:"type:varchar(128);not null;uniqueIndex:idx_device_storage_key" json:"device_id"` // 设备ID
	Key       string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_device_storage_key;index" json:"key"`  // 存储键
	Value     string    `gorm:"type:text;not null" json:"-"`                                                    // 值（可能已加密）
	Sealed    bool      `gorm:"not null;default:false" json:"sealed"`                                           // 是否加密
	CreatedAt time.Time `json:"created_at"`                                                                     // 创建时间
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`                                                        // 更新时间
}

// TableName 指定表名
func (DeviceStorageEntry) TableName() string {
	return "device_storage_entries"
}
