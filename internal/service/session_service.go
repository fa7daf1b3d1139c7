package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/skinshop-next/internal/constants"
	"github.com/skinshop-next/internal/logger"
	"github.com/skinshop-next/internal/models"
	"github.com/skinshop-next/internal/repository"
	"github.com/skinshop-next/internal/upstream"
)

// SessionState 会话状态
type SessionState string

const (
	SessionUnknown SessionState = "unknown" // 仍在从设备存储恢复
	SessionAbsent  SessionState = "absent"
	SessionPresent SessionState = "present"
)

// SessionService 设备维度的登录会话存储
type SessionService struct {
	storage  repository.DeviceStorageRepository
	auth     AuthAPI
	decoder  *TokenDecoder
	ready    atomic.Bool
	locks    *keyedMutex
	mu       sync.RWMutex
	sessions map[string]*models.Session
	onLogout []func(deviceID string)
}

// NewSessionService 创建会话服务
func NewSessionService(storage repository.DeviceStorageRepository, auth AuthAPI, decoder *TokenDecoder) *SessionService {
	if decoder == nil {
		decoder = NewTokenDecoder("")
	}
	return &SessionService{
		storage:  storage,
		auth:     auth,
		decoder:  decoder,
		locks:    newKeyedMutex(),
		sessions: make(map[string]*models.Session),
	}
}

// OnLogout 注册登出回调（清理购物车选择、待结算草稿等设备状态）
func (s *SessionService) OnLogout(fn func(deviceID string)) {
	if fn != nil {
		s.onLogout = append(s.onLogout, fn)
	}
}

// Rehydrate 进程启动时从设备存储恢复全部会话；无论成功与否结束后状态不再是 unknown
func (s *SessionService) Rehydrate(ctx context.Context) error {
	defer s.ready.Store(true)

	devices, err := s.storage.ListDevices(ctx, constants.StorageKeyUser)
	if err != nil {
		logger.Errorw("session_rehydrate_list_failed", "error", err)
		return err
	}
	restored := 0
	for _, deviceID := range devices {
		session, ok, err := s.loadStored(ctx, deviceID)
		if err != nil {
			logger.Warnw("session_rehydrate_device_failed", "device_id", deviceID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		s.mu.Lock()
		s.sessions[deviceID] = session
		s.mu.Unlock()
		restored++
	}
	logger.Infow("session_rehydrated", "devices", len(devices), "restored", restored)
	return nil
}

// Ready 恢复流程是否已结束
func (s *SessionService) Ready() bool {
	return s.ready.Load()
}

// State 返回设备会话状态
func (s *SessionService) State(deviceID string) SessionState {
	if !s.Ready() {
		return SessionUnknown
	}
	s.mu.RLock()
	session := s.sessions[deviceID]
	s.mu.RUnlock()
	if session.Authenticated() {
		return SessionPresent
	}
	return SessionAbsent
}

// Current 返回设备当前会话副本；内存未命中时回源设备存储（多实例部署）
func (s *SessionService) Current(ctx context.Context, deviceID string) (*models.Session, error) {
	if !s.Ready() {
		return nil, ErrSessionUnknown
	}
	if strings.TrimSpace(deviceID) == "" {
		return nil, ErrInvalidDeviceID
	}
	if session := s.cached(deviceID); session != nil {
		return session.Clone(), nil
	}

	unlock := s.locks.Lock(deviceID)
	defer unlock()
	return s.currentLocked(ctx, deviceID)
}

func (s *SessionService) cached(deviceID string) *models.Session {
	s.mu.RLock()
	session := s.sessions[deviceID]
	s.mu.RUnlock()
	if session.Authenticated() {
		return session
	}
	return nil
}

// currentLocked 调用方须持有设备锁；回源结果写回内存
func (s *SessionService) currentLocked(ctx context.Context, deviceID string) (*models.Session, error) {
	if session := s.cached(deviceID); session != nil {
		return session.Clone(), nil
	}
	stored, ok, err := s.loadStored(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotAuthenticated
	}
	s.mu.Lock()
	s.sessions[deviceID] = stored
	s.mu.Unlock()
	return stored.Clone(), nil
}

// LoadStored 直接从设备存储读取会话（worker 进程使用）
func (s *SessionService) LoadStored(ctx context.Context, deviceID string) (*models.Session, bool, error) {
	return s.loadStored(ctx, deviceID)
}

// Login 解码 token 并持久化会话，不包含任何路由决策
func (s *SessionService) Login(ctx context.Context, deviceID, token string) (*models.Session, error) {
	if strings.TrimSpace(deviceID) == "" {
		return nil, ErrInvalidDeviceID
	}
	session, err := s.decoder.Decode(token)
	if err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(deviceID)
	defer unlock()
	if err := s.persist(ctx, deviceID, session, true); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions[deviceID] = session
	s.mu.Unlock()
	logger.Infow("session_login", "device_id", deviceID, "user_id", session.ID, "role", session.Role)
	return session.Clone(), nil
}

// SignIn 邮箱密码登录：上游换取 token 后走 Login
func (s *SessionService) SignIn(ctx context.Context, deviceID, email, password string) (*models.Session, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	token, err := s.auth.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.Login(ctx, deviceID, token)
}

// Logout 清除内存与设备存储中的会话（仅本地失效）
func (s *SessionService) Logout(ctx context.Context, deviceID string) error {
	unlock := s.locks.Lock(deviceID)
	s.mu.Lock()
	delete(s.sessions, deviceID)
	s.mu.Unlock()
	err := s.storage.Delete(ctx, deviceID, constants.StorageKeyToken, constants.StorageKeyUser)
	unlock()

	for _, fn := range s.onLogout {
		fn(deviceID)
	}
	if err != nil {
		logger.Warnw("session_logout_storage_failed", "device_id", deviceID, "error", err)
		return err
	}
	logger.Infow("session_logout", "device_id", deviceID)
	return nil
}

// SetUser 将补丁合并进会话并持久化，不做校验
func (s *SessionService) SetUser(ctx context.Context, deviceID string, patch models.SessionPatch) (*models.Session, error) {
	if !s.Ready() {
		return nil, ErrSessionUnknown
	}
	if strings.TrimSpace(deviceID) == "" {
		return nil, ErrInvalidDeviceID
	}
	unlock := s.locks.Lock(deviceID)
	defer unlock()
	current, err := s.currentLocked(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	patch.Apply(current)
	if err := s.persist(ctx, deviceID, current, false); err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sessions[deviceID] = current
	s.mu.Unlock()
	return current.Clone(), nil
}

// UpdateProfile 上游更新资料后合并服务端回传字段；未提交的字段沿用会话中的值
func (s *SessionService) UpdateProfile(ctx context.Context, deviceID string, update upstream.ProfileUpdate) (*models.Session, error) {
	current, err := s.Current(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	update = fillProfileUpdate(update, current)
	patch, err := s.auth.UpdateProfile(ctx, current.ID, current.Token, update)
	if err != nil {
		logger.Warnw("session_update_profile_failed", "device_id", deviceID, "user_id", current.ID, "error", err)
		return nil, err
	}
	return s.SetUser(ctx, deviceID, patch)
}

// ChangePassword 修改密码成功后强制登出
func (s *SessionService) ChangePassword(ctx context.Context, deviceID, oldPassword, newPassword string) error {
	current, err := s.Current(ctx, deviceID)
	if err != nil {
		return err
	}
	if err := s.auth.ChangePassword(ctx, current.ID, current.Token, oldPassword, newPassword); err != nil {
		return err
	}
	return s.Logout(ctx, deviceID)
}

func fillProfileUpdate(update upstream.ProfileUpdate, current *models.Session) upstream.ProfileUpdate {
	if strings.TrimSpace(update.FullName) == "" {
		update.FullName = current.FullName
	}
	if strings.TrimSpace(update.City) == "" {
		update.City = current.City
	}
	if strings.TrimSpace(update.Address) == "" {
		update.Address = current.Address
	}
	if strings.TrimSpace(update.Phone) == "" {
		update.Phone = current.Phone
	}
	return update
}

func (s *SessionService) persist(ctx context.Context, deviceID string, session *models.Session, withToken bool) error {
	encoded, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if withToken {
		if err := s.storage.Set(ctx, deviceID, constants.StorageKeyToken, session.Token); err != nil {
			return err
		}
	}
	return s.storage.Set(ctx, deviceID, constants.StorageKeyUser, string(encoded))
}

func (s *SessionService) loadStored(ctx context.Context, deviceID string) (*models.Session, bool, error) {
	rawUser, ok, err := s.storage.Get(ctx, deviceID, constants.StorageKeyUser)
	if err != nil || !ok {
		return nil, false, err
	}
	token, ok, err := s.storage.Get(ctx, deviceID, constants.StorageKeyToken)
	if err != nil || !ok {
		return nil, false, err
	}
	var session models.Session
	if err := json.Unmarshal([]byte(rawUser), &session); err != nil {
		return nil, false, fmt.Errorf("decode stored session: %w", err)
	}
	session.Token = token
	if !session.Authenticated() {
		return nil, false, nil
	}
	return &session, true, nil
}

// IsAuthError 判断是否为需要重新登录的错误
func IsAuthError(err error) bool {
	if errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrInvalidToken) {
		return true
	}
	if rejected, ok := upstream.AsRejected(err); ok {
		return rejected.Unauthorized()
	}
	return false
}
