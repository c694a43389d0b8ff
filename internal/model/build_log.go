package model

const BuildLogTableName = "build_logs"

// BuildLog 构建日志行, 归档后删除
type BuildLog struct {
	BaseModel
	BuildID int64  `gorm:"column:build_id;not null;index" json:"build_id"`
	Source  string `gorm:"size:100;not null" json:"source"`
	Output  string `gorm:"type:longtext" json:"output"`
}

func (BuildLog) TableName() string {
	return BuildLogTableName
}
