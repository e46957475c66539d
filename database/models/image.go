package models

import "time"

type Image struct {
	ID     uint `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID uint `gorm:"not null;index:idx_user_uploaded_at,priority:1" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	// Filename 存储文件名，全局唯一
	Filename     string `gorm:"uniqueIndex;size:255;not null" json:"filename"`
	OriginalName string `gorm:"not null" json:"original_name"`
	// FilePath 存储后端中的定位符
	FilePath string `gorm:"not null" json:"file_path"`

	FileSize int64  `json:"file_size"`
	MimeType string `gorm:"size:64" json:"mime_type"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`

	UploadedAt time.Time `gorm:"autoCreateTime;index:idx_user_uploaded_at,priority:2" json:"uploaded_at"`
}
