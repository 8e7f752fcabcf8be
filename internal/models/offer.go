package models

import "time"

// ReleaseInfo 描述条目在某个平台上的发行信息。
type ReleaseInfo struct {
	ID          string     `json:"id,omitempty"`
	AppID       string     `json:"appId,omitempty"`
	Platform    string     `json:"platform"` // 例如 "Windows"、"Mac"
	DateAdded   *time.Time `json:"dateAdded,omitempty"`
	ReleaseNote string     `json:"releaseNote,omitempty"`
}

// Item 是报价中包含的单个商品条目。
type Item struct {
	ID          string        `json:"id"`
	Namespace   string        `json:"namespace"`
	Title       string        `json:"title,omitempty"`
	ReleaseInfo []ReleaseInfo `json:"releaseInfo"`
}

// KeyImage 报价封面等图片。
type KeyImage struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Seller 发行商信息。
type Seller struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Offer 是目录中一条报价的公共属性。
type Offer struct {
	ID            string     `json:"id"`
	Namespace     string     `json:"namespace"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	OfferType     string     `json:"offerType,omitempty" example:"BASE_GAME"`
	Seller        *Seller    `json:"seller,omitempty"`
	KeyImages     []KeyImage `json:"keyImages,omitempty"`
	Items         []Item     `json:"items"`
	Tags          []Tag      `json:"tags,omitempty"`
	ReleaseDate   *time.Time `json:"releaseDate,omitempty"`
	EffectiveDate *time.Time `json:"effectiveDate,omitempty"`
}

// TotalPrice 价格，金额单位为货币最小单位（分）。
type TotalPrice struct {
	Currency      string `json:"currency" example:"USD"`
	OriginalPrice int64  `json:"originalPrice"`
	DiscountPrice int64  `json:"discountPrice"`
	Discount      int64  `json:"discount"`
}

// OfferWithPrice 是搜索结果中的一条记录。
type OfferWithPrice struct {
	Offer
	Price *TotalPrice `json:"price,omitempty"`
}

// GiveawayOffer 是免费领取活动中的原始报价。同一产品在不同平台的条目共享 Namespace。
type GiveawayOffer struct {
	Offer
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

// MergedFreebie 由同一 Namespace 的多条 GiveawayOffer 合并而成。
// 嵌入的属性取自该组第一条报价。
type MergedFreebie struct {
	GiveawayOffer
	Platforms []string        `json:"platforms"`
	Offers    []GiveawayOffer `json:"offers"`
}

// Tag 分面词表中的一个标签。
type Tag struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	GroupName string `json:"groupName,omitempty"`
}
