package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/skinshop-next/internal/models"
	"github.com/skinshop-next/internal/securebox"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInvalidDeviceStorageKey 设备或键为空
var ErrInvalidDeviceStorageKey = errors.New("device storage: device id and key are required")

// DeviceStorageRepository 设备存储数据访问接口
type DeviceStorageRepository interface {
	Get(ctx context.Context, deviceID, key string) (string, bool, error)
	Set(ctx context.Context, deviceID, key, value string) error
	Delete(ctx context.Context, deviceID string, keys ...string) error
	ListDevices(ctx context.Context, key string) ([]string, error)
}

// GormDeviceStorageRepository GORM 实现，值经 securebox 加密后落库
type GormDeviceStorageRepository struct {
	db  *gorm.DB
	box *securebox.Box
}

// NewDeviceStorageRepository 创建设备存储仓库
func NewDeviceStorageRepository(db *gorm.DB, box *securebox.Box) *GormDeviceStorageRepository {
	if box == nil {
		box = &securebox.Box{}
	}
	return &GormDeviceStorageRepository{db: db, box: box}
}

// Get 读取并解密值，不存在时 ok 为 false
func (r *GormDeviceStorageRepository) Get(ctx context.Context, deviceID, key string) (string, bool, error) {
	if err := validateStorageKey(deviceID, key); err != nil {
		return "", false, err
	}
	var entry models.DeviceStorageEntry
	err := r.db.WithContext(ctx).
		Where("device_id = ? AND key = ?", deviceID, key).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	if !entry.Sealed {
		return entry.Value, true, nil
	}
	plain, err := r.box.Open(entry.Value, securebox.AAD(deviceID, key))
	if err != nil {
		return "", false, fmt.Errorf("open device storage %s/%s: %w", deviceID, key, err)
	}
	return string(plain), true, nil
}

// Set 写入值（按 device_id + key 覆盖）
func (r *GormDeviceStorageRepository) Set(ctx context.Context, deviceID, key, value string) error {
	if err := validateStorageKey(deviceID, key); err != nil {
		return err
	}
	stored, err := r.box.Seal([]byte(value), securebox.AAD(deviceID, key))
	if err != nil {
		return err
	}
	now := time.Now()
	entry := &models.DeviceStorageEntry{
		DeviceID:  deviceID,
		Key:       key,
		Value:     stored,
		Sealed:    r.box.Enabled(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}, {Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "sealed", "updated_at"}),
	}).Create(entry).Error
}

// Delete 删除设备下的若干键
func (r *GormDeviceStorageRepository) Delete(ctx context.Context, deviceID string, keys ...string) error {
	if strings.TrimSpace(deviceID) == "" {
		return ErrInvalidDeviceStorageKey
	}
	query := r.db.WithContext(ctx).Where("device_id = ?", deviceID)
	if len(keys) > 0 {
		query = query.Where("key IN ?", keys)
	}
	return query.Delete(&models.DeviceStorageEntry{}).Error
}

// ListDevices 列出存有指定键的设备
func (r *GormDeviceStorageRepository) ListDevices(ctx context.Context, key string) ([]string, error) {
	var devices []string
	if err := r.db.WithContext(ctx).
		Model(&models.DeviceStorageEntry{}).
		Where("key = ?", key).
		Order("updated_at desc").
		Pluck("device_id", &devices).Error; err != nil {
		return nil, err
	}
	return devices, nil
}

func validateStorageKey(deviceID, key string) error {
	if strings.TrimSpace(deviceID) == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidDeviceStorageKey
	}
	return nil
}
