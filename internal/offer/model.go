package offer

import (
	"time"
)

// Status 报价单状态。
type Status string

const (
	StatusPending   Status = "pending"
	StatusCountered Status = "countered"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
)

// Actor 谈判参与方。
type Actor string

const (
	ActorBuyer  Actor = "buyer"
	ActorFarmer Actor = "farmer"
)

// CounterRecord 一次还价记录。
type CounterRecord struct {
	Price int64     `json:"price"`
	By    Actor     `json:"by"`
	At    time.Time `json:"at"`
}

// Offer 报价单。Counters 按时间序保存完整还价历史，
// 成交价始终取最后一条记录。
type Offer struct {
	ID           string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ListingID    string          `gorm:"type:varchar(36);index" json:"listingId"`
	BuyerID      string          `gorm:"type:varchar(36);index" json:"buyerId"`
	FarmerID     string          `gorm:"type:varchar(36);index" json:"farmerId"`
	CropName     string          `gorm:"type:varchar(128)" json:"cropName"`
	Quantity     int64           `json:"quantity"`
	OfferPrice   int64           `json:"offeredPrice"`
	Counters     []CounterRecord `gorm:"serializer:json;type:text" json:"counterOffers"`
	Status       Status          `gorm:"type:varchar(16);index" json:"status"`
	LastActionBy Actor           `gorm:"type:varchar(8)" json:"lastActionBy"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

func (Offer) TableName() string {
	return "offers"
}

// CurrentPrice 当前在谈价格：有还价取最近一次，否则取首次报价。
func (o *Offer) CurrentPrice() int64 {
	if n := len(o.Counters); n > 0 {
		return o.Counters[n-1].Price
	}
	return o.OfferPrice
}

// Open 报价是否仍在谈判中。
func (o *Offer) Open() bool {
	return o.Status == StatusPending || o.Status == StatusCountered
}
