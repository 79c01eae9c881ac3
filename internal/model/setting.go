package model

import "time"

// Setting value types
const (
	SettingString  = "string"
	SettingNumber  = "number"
	SettingBoolean = "boolean"
	SettingJSON    = "json"
)

// SystemSetting is a typed, string-encoded configuration value
type SystemSetting struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"column:setting_key;type:varchar(100);uniqueIndex;not null" json:"key"`
	Value       string    `gorm:"column:setting_value;type:text" json:"value"`
	Type        string    `gorm:"column:setting_type;type:varchar(10);not null;default:'string'" json:"type"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CompanyInfo holds the business profile of a user
type CompanyInfo struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          string    `gorm:"type:varchar(36);uniqueIndex;not null" json:"user_id"`
	CompanyName     string    `gorm:"type:varchar(255);not null" json:"company_name"`
	TaxID           string    `gorm:"type:varchar(20)" json:"tax_id"`
	Address         string    `gorm:"type:text" json:"address"`
	Phone           string    `gorm:"type:varchar(30)" json:"phone"`
	Email           string    `gorm:"type:varchar(255)" json:"email"`
	ContactPerson   string    `gorm:"type:varchar(100)" json:"contact_person"`
	BusinessType    string    `gorm:"type:varchar(100)" json:"business_type"`
	EstablishedDate string    `gorm:"type:varchar(10)" json:"established_date"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (CompanyInfo) TableName() string { return "company_info" }

// Backup records a database snapshot
type Backup struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	FileName  string    `gorm:"type:varchar(255);not null" json:"file_name"`
	SizeBytes int64     `gorm:"not null" json:"size_bytes"`
	Location  string    `gorm:"type:varchar(10);not null" json:"location"` // local or s3
	RemoteKey string    `gorm:"type:varchar(500)" json:"remote_key,omitempty"`
	CreatedBy string    `gorm:"type:varchar(36)" json:"created_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
