package models

// RoomStatus 房间状态
type RoomStatus string

// 房间状态常量
const (
	RoomStatusEmpty       RoomStatus = "empty"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

// Valid 是否为合法状态
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomStatusEmpty, RoomStatusOccupied, RoomStatusMaintenance:
		return true
	default:
		return false
	}
}

// Room 房间
type Room struct {
	BaseModel
	Lifecycle
	RoomNumber string     `json:"room_number" gorm:"size:20;not null;index"`
	Price      float64    `json:"price" gorm:"type:decimal(12,2);not null"`
	Status     RoomStatus `json:"status" gorm:"size:20;not null;index"`
	Version    uint       `json:"version" gorm:"not null"`
}

// TableName 表名
func (r *Room) TableName() string {
	return "rooms"
}
