package models

import (
	"errors"
	"time"
)

// 目录变更操作类型。
const (
	OfferOperationUpsert       = "upsert"
	OfferOperationDelete       = "delete"
	OfferOperationPriceChanged = "price_changed"
)

// OfferChangedEvent 镜像了目录服务在报价新增、更新、下架或调价时发送的事件。
type OfferChangedEvent struct {
	EventID   string    `json:"event_id"`
	Operation string    `json:"operation"` // upsert / delete / price_changed
	OfferID   string    `json:"offer_id"`
	Namespace string    `json:"namespace"`
	OfferType string    `json:"offer_type,omitempty"`
	Freebie   bool      `json:"freebie,omitempty"` // 变更是否涉及免费领取活动
	ChangedAt time.Time `json:"changed_at"`
}

// Validate 检查事件的必填字段，失败的消息不值得重试。
func (e OfferChangedEvent) Validate() error {
	switch e.Operation {
	case OfferOperationUpsert, OfferOperationDelete, OfferOperationPriceChanged:
	default:
		return errors.New("未知的 operation: " + e.Operation)
	}
	if e.OfferID == "" {
		return errors.New("offer_id 不能为空")
	}
	if e.Namespace == "" {
		return errors.New("namespace 不能为空")
	}
	return nil
}
