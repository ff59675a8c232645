package encid

import (
	"sync"

	hashids "github.com/speps/go-hashids/v2"
)

// ==================== 加密 ID 编解码器 ====================

// Codec 把自增主键编码为不透明 token，按实体类型命名空间隔离。
// 同一个数字 ID 在不同命名空间下编码结果不同，跨命名空间解码必须失败，
// 防止加密 ID 在模型之间、租户之间互相套用。
type Codec struct {
	salt      string
	minLength int

	mu     sync.RWMutex
	coders map[string]*hashids.HashID
}

// 实体命名空间常量，编码时传入，避免手写字符串不一致
const (
	NSStore    = "store"
	NSProduct  = "product"
	NSCategory = "category"
	NSCustomer = "customer"
	NSOrder    = "order"
	NSEmployee = "employee"
	NSCoupon   = "coupon"
	NSPage     = "page"
	NSBanner   = "banner"
)

// NewCodec 创建编解码器
// salt: 平台级密钥；minLength: token 最小长度，用于掩盖 ID 增长规律
func NewCodec(salt string, minLength int) *Codec {
	if minLength <= 0 {
		minLength = 12
	}
	return &Codec{
		salt:      salt,
		minLength: minLength,
		coders:    make(map[string]*hashids.HashID),
	}
}

// coderFor 按命名空间取（或懒加载）hashids 实例
// 命名空间参与 salt 派生，这是跨命名空间互相解不开的关键
func (c *Codec) coderFor(namespace string) (*hashids.HashID, error) {
	c.mu.RLock()
	h, ok := c.coders[namespace]
	c.mu.RUnlock()
	if ok {
		return h, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if h, ok = c.coders[namespace]; ok {
		return h, nil
	}

	hd := hashids.NewData()
	hd.Salt = c.salt + ":" + namespace
	hd.MinLength = c.minLength
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return nil, err
	}
	c.coders[namespace] = h
	return h, nil
}

// Encode 编码整数 ID
func (c *Codec) Encode(id int64, namespace string) (string, error) {
	h, err := c.coderFor(namespace)
	if err != nil {
		return "", err
	}
	return h.EncodeInt64([]int64{id})
}

// Decode 解码 token，失败（含跨命名空间解码）返回 (0, false)
// hashids 用错 salt 解码可能得到错误但合法的数字，
// 所以解出来后必须反向编码比对，保证 fail-closed
func (c *Codec) Decode(token, namespace string) (int64, bool) {
	if token == "" {
		return 0, false
	}
	h, err := c.coderFor(namespace)
	if err != nil {
		return 0, false
	}

	ids, err := h.DecodeInt64WithError(token)
	if err != nil || len(ids) != 1 || ids[0] <= 0 {
		return 0, false
	}

	// 反向校验
	check, err := h.EncodeInt64([]int64{ids[0]})
	if err != nil || check != token {
		return 0, false
	}
	return ids[0], true
}
