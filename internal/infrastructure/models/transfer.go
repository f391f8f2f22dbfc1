package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Transfer struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	SourceChainID int64     `gorm:"not null;index"`
	Account       string    `gorm:"type:varchar(64);not null;index"`
	Recipient     string    `gorm:"type:varchar(64);not null"`
	Amount        string    `gorm:"type:varchar(100);not null"` // human units
	GasMode       string    `gorm:"type:varchar(16);not null"`
	GasAmount     string    `gorm:"type:varchar(100);not null"`
	DestChain     string    `gorm:"type:varchar(64);not null"`
	DestContract  string    `gorm:"type:varchar(128);not null"`
	Phase         string    `gorm:"type:varchar(32);not null;index"`
	SourceTxHash  *string   `gorm:"type:varchar(80);index"`
	DestTxHash    *string   `gorm:"type:varchar(80)"`
	ErrorCode     *string   `gorm:"type:varchar(64)"`
	ErrorMessage  *string   `gorm:"type:text"`
	CompletedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (Transfer) TableName() string {
	return "transfers"
}

type TransferEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	TransferID uuid.UUID `gorm:"type:uuid;not null;index"`
	Kind       string    `gorm:"type:varchar(32);not null"`
	TxHash     string    `gorm:"type:varchar(80)"`
	Link       string    `gorm:"type:text"`
	Message    string    `gorm:"type:text"`
	CreatedAt  time.Time

	Transfer Transfer `gorm:"foreignKey:TransferID"`
}

func (TransferEvent) TableName() string {
	return "transfer_events"
}

// All lists every model for AutoMigrate
func All() []interface{} {
	return []interface{}{&Transfer{}, &TransferEvent{}}
}
