package model

// CoverPage 生成的封面文档，文件本身保存在本地目录或 S3
type CoverPage struct {
	Model
	ProposalID     uint   `gorm:"index;not null" json:"proposal"`
	Body           string `gorm:"type:text;not null" json:"cover_page_body"`
	SubmissionDate string `gorm:"type:varchar(10);not null" json:"submission_date"`
	StorageKey     string `gorm:"type:varchar(255)" json:"-"`
	URL            string `gorm:"type:varchar(512)" json:"url"`
	CreatedBy      uint   `json:"created_by"`
}
