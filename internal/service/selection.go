package service

import (
	"sync"

	"github.com/skinshop-next/internal/models"
)

// Selection 购物车勾选集合（购物车行 ID）
type Selection struct {
	ids map[string]struct{}
}

// NewSelection 创建空选择
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]struct{})}
}

// Toggle 切换单行
func (s *Selection) Toggle(itemID string) {
	if _, ok := s.ids[itemID]; ok {
		delete(s.ids, itemID)
		return
	}
	s.ids[itemID] = struct{}{}
}

// ToggleAll 已全选则清空，否则全选（先剔除已不在购物车中的行，再以数量相等判断）
func (s *Selection) ToggleAll(items []models.CartItem) {
	s.Retain(items)
	if len(s.ids) == len(items) {
		s.ids = make(map[string]struct{})
		return
	}
	s.ids = make(map[string]struct{}, len(items))
	for _, item := range items {
		s.ids[item.ID] = struct{}{}
	}
}

// Remove 移除单行
func (s *Selection) Remove(itemID string) {
	delete(s.ids, itemID)
}

// Retain 丢弃已不在购物车中的行
func (s *Selection) Retain(items []models.CartItem) {
	present := make(map[string]struct{}, len(items))
	for _, item := range items {
		present[item.ID] = struct{}{}
	}
	for id := range s.ids {
		if _, ok := present[id]; !ok {
			delete(s.ids, id)
		}
	}
}

// Contains 是否已选
func (s *Selection) Contains(itemID string) bool {
	_, ok := s.ids[itemID]
	return ok
}

// Len 已选数量
func (s *Selection) Len() int {
	return len(s.ids)
}

// IDs 按购物车顺序返回已选行 ID
func (s *Selection) IDs(items []models.CartItem) []string {
	ids := make([]string, 0, len(s.ids))
	for _, item := range s.Selected(items) {
		ids = append(ids, item.ID)
	}
	return ids
}

// Selected 按购物车顺序返回已选行
func (s *Selection) Selected(items []models.CartItem) []models.CartItem {
	selected := make([]models.CartItem, 0, len(s.ids))
	for _, item := range items {
		if _, ok := s.ids[item.ID]; ok {
			selected = append(selected, item)
		}
	}
	return selected
}

// SelectionStore 每个设备一份购物车选择
type SelectionStore struct {
	mu         sync.Mutex
	selections map[string]*Selection
}

// NewSelectionStore 创建选择存储
func NewSelectionStore() *SelectionStore {
	return &SelectionStore{selections: make(map[string]*Selection)}
}

// With 在设备锁内读写选择
func (s *SelectionStore) With(deviceID string, fn func(sel *Selection)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sel, ok := s.selections[deviceID]
	if !ok {
		sel = NewSelection()
		s.selections[deviceID] = sel
	}
	fn(sel)
}

// Reset 清空设备选择（购物车重新加载时）
func (s *SelectionStore) Reset(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selections, deviceID)
}
