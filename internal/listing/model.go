package listing

import "time"

// Status 货品状态（持久化为字符串）。
type Status string

const (
	StatusActive    Status = "active"    // 在售，可被报价
	StatusExhausted Status = "exhausted" // 可用库存耗尽
)

// Listing 农产品货品 GORM 模型。
// Quantity 为当前可报价库存；Reserved 为已被接受报价/在途订单占用的库存。
// 两者只通过 Repo 的守卫更新变动，不允许直接 Save。
type Listing struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	FarmerID string `gorm:"index;size:36;not null" json:"farmerId"`

	CropName string `gorm:"size:64;not null" json:"cropName"`
	Category string `gorm:"size:32" json:"category"` // Vegetables / Fruits / Grains / Pulses / Spices
	Location string `gorm:"size:128" json:"location"`
	ImageURL string `gorm:"size:255" json:"imageUrl"`

	// 库存与价格（数量单位：千克；价格单位：卢比/千克）
	Quantity   int64 `gorm:"not null;default:0" json:"quantity"`
	Reserved   int64 `gorm:"not null;default:0" json:"reserved"`
	PricePerKg int64 `gorm:"not null;default:0" json:"pricePerKg"`

	Status Status `gorm:"type:varchar(16);index;not null" json:"status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
