package navigation

import (
	"sync"

	"go.uber.org/zap"

	"github.com/Xushengqwer/game_offers/internal/query"
	"github.com/Xushengqwer/game_offers/internal/state"
)

// Binder 把一个 Store 与一个 Location 绑定。
//
// 地址变化时：Decode -> query.Normalize -> Store.Set。
// Store 变化时：若地址已是该状态的规范编码则不写回；若地址表示同一查询但编码不规范
// （例如带有被修正的非法参数）则替换当前记录；否则视为用户交互，新增一条记录。
// 状态同步产生的地址更新从不重置滚动位置。
type Binder struct {
	store       *state.Store
	location    Location
	logger      *zap.Logger
	unsubscribe func()
	closeOnce   sync.Once
}

// Bind 建立绑定并订阅 store。不再使用时调用 Close。
func Bind(store *state.Store, location Location, logger *zap.Logger) *Binder {
	if store == nil || location == nil {
		panic("navigation.Bind: store 与 location 不能为 nil")
	}
	if logger == nil {
		panic("navigation.Bind: logger 不能为 nil")
	}
	b := &Binder{store: store, location: location, logger: logger}
	b.unsubscribe = store.Subscribe(b.onStateChanged)
	return b
}

// LocationChanged 处理地址变化事件。返回值中的错误只是校验提示，
// 出错的字段已回退为默认值并写入 store。
func (b *Binder) LocationChanged() (query.SearchQuery, error) {
	loc := b.location.Current()
	q, warn := query.Normalize(Decode(loc))
	if warn != nil {
		b.logger.Info("地址中的查询参数无效，已回退为默认值",
			zap.String("location", loc.RawQuery),
			zap.Error(warn),
		)
	}
	b.store.Set(q)
	return q, warn
}

// Close 取消对 store 的订阅。
func (b *Binder) Close() {
	b.closeOnce.Do(b.unsubscribe)
}

func (b *Binder) onStateChanged(q query.SearchQuery, version uint64) {
	patch := Encode(q)
	current := b.location.Current()
	if canonical(current, patch) {
		return
	}

	decoded, _ := query.Normalize(Decode(current))
	patch.Replace = decoded.Equal(q)

	if err := b.location.Update(patch); err != nil {
		b.logger.Warn("写回地址失败",
			zap.Uint64("version", version),
			zap.Bool("replace", patch.Replace),
			zap.Error(err),
		)
		return
	}
	b.logger.Debug("状态已同步到地址",
		zap.Uint64("version", version),
		zap.Bool("replace", patch.Replace),
		zap.String("query", patch.Query.Encode()),
	)
}
