// Package record defines the domain registration row imported from
// spreadsheets and parses XLSX workbooks into records.
package record

import "time"

// Column headers of the import sheet, in canonical order. Columns are
// matched by these names, not by position.
const (
	HeaderDomainName       = "域名"
	HeaderAge              = "建站年龄"
	HeaderOrderNo          = "记录数"
	HeaderStartAt          = "开始时间"
	HeaderEndAt            = "结束时间"
	HeaderTitle            = "标题"
	HeaderLanguage         = "语言"
	HeaderScore            = "评分"
	HeaderDNS              = "DNS"
	HeaderRegistrarName    = "注册商"
	HeaderRegistrarAddress = "注册商地址"
	HeaderRegistrarBy      = "注册人"
	HeaderEmail            = "Email"
	HeaderRegistrarAt      = "注册时间"
	HeaderExpireAt         = "到期时间"
	HeaderUpdatedAt        = "更新时间"
	HeaderRecordStatus     = "备案状态"
	HeaderRecordAt         = "备案时间"
	HeaderRecordMainBody   = "备案主体"
	HeaderRecordType       = "备案类型"
	HeaderRecordNo         = "备案号"
	HeaderRecordName       = "备案名"
)

// Headers lists every column the parser requires.
var Headers = []string{
	HeaderDomainName,
	HeaderAge,
	HeaderOrderNo,
	HeaderStartAt,
	HeaderEndAt,
	HeaderTitle,
	HeaderLanguage,
	HeaderScore,
	HeaderDNS,
	HeaderRegistrarName,
	HeaderRegistrarAddress,
	HeaderRegistrarBy,
	HeaderEmail,
	HeaderRegistrarAt,
	HeaderExpireAt,
	HeaderUpdatedAt,
	HeaderRecordStatus,
	HeaderRecordAt,
	HeaderRecordMainBody,
	HeaderRecordType,
	HeaderRecordNo,
	HeaderRecordName,
}

// Record is one parsed spreadsheet row. Every field except DomainName is
// optional; nil means the cell was empty or could not be converted.
type Record struct {
	DomainName       string     `json:"domain_name"`
	Age              *uint8     `json:"age,omitempty"`
	OrderNo          *uint8     `json:"order_no,omitempty"`
	StartAt          *time.Time `json:"start_at,omitempty"`
	EndAt            *time.Time `json:"end_at,omitempty"`
	Title            *string    `json:"title,omitempty"`
	Language         *string    `json:"language,omitempty"`
	Score            *uint8     `json:"score,omitempty"`
	DNS              *string    `json:"dns,omitempty"`
	RegistrarName    *string    `json:"registrar_name,omitempty"`
	RegistrarAddress *string    `json:"registrar_address,omitempty"`
	RegistrarBy      *string    `json:"registrar_by,omitempty"`
	Email            *string    `json:"email,omitempty"`
	RegistrarAt      *time.Time `json:"registrar_at,omitempty"`
	ExpireAt         *time.Time `json:"expire_at,omitempty"`
	UpdatedAt        *time.Time `json:"updated_at,omitempty"`
	RecordStatus     *string    `json:"record_status,omitempty"`
	RecordAt         *time.Time `json:"record_at,omitempty"`
	RecordMainBody   *string    `json:"record_main_body,omitempty"`
	RecordType       *string    `json:"record_type,omitempty"`
	RecordNo         *string    `json:"record_no,omitempty"`
	RecordName       *string    `json:"record_name,omitempty"`
}
