// Package freebies 获取免费领取活动，并把同一产品在不同平台的报价合并为一条记录。
package freebies

import "github.com/Xushengqwer/game_offers/internal/models"

// Merge 按 namespace 稳定分组：组的顺序取首次出现顺序，组内保持输入顺序。
// 每组以第一条报价为属性模板，Platforms 依次展开所有成员的
// items[*].releaseInfo[*].platform（保留重复值），Offers 为整组原始报价。
// 对任意输入都不会失败，空输入返回空切片。
func Merge(offers []models.GiveawayOffer) []models.MergedFreebie {
	merged := make([]models.MergedFreebie, 0, len(offers))
	index := make(map[string]int, len(offers))

	for _, offer := range offers {
		i, seen := index[offer.Namespace]
		if !seen {
			i = len(merged)
			index[offer.Namespace] = i
			merged = append(merged, models.MergedFreebie{
				GiveawayOffer: offer,
				Platforms:     []string{},
				Offers:        make([]models.GiveawayOffer, 0, 1),
			})
		}
		m := &merged[i]
		m.Offers = append(m.Offers, offer)
		for _, item := range offer.Items {
			for _, release := range item.ReleaseInfo {
				m.Platforms = append(m.Platforms, release.Platform)
			}
		}
	}
	return merged
}
