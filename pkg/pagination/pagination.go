package pagination

import (
	"math"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// 分页配置
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Query 一次列表请求的分页窗口
type Query struct {
	Page     int `json:"page" form:"page"`
	PageSize int `json:"page_size" form:"page_size"`
}

// FromRequest 解析请求中的page/page_size并钳制到合法区间
func FromRequest(c *gin.Context) Query {
	var q Query
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		q.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "10")); err == nil {
		q.PageSize = size
	}
	return q.Normalize()
}

// Normalize 把越界取值拉回合法区间
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	switch {
	case q.PageSize < 1:
		q.PageSize = DefaultPageSize
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}
	return q
}

// Scope 以GORM scope的形式套用offset/limit
func (q Query) Scope(db *gorm.DB) *gorm.DB {
	return db.Offset((q.Page - 1) * q.PageSize).Limit(q.PageSize)
}

// PageInfo 返回给调用方的分页信息
type PageInfo struct {
	Page       int   `json:"page"`        // 当前页
	PageSize   int   `json:"page_size"`   // 每页大小
	Total      int64 `json:"total"`       // 总记录数
	TotalPages int   `json:"total_pages"` // 总页数
	HasNext    bool  `json:"has_next"`    // 是否有下一页
	HasPrev    bool  `json:"has_prev"`    // 是否有上一页
}

// Info 按总记录数计算分页信息
func (q Query) Info(total int64) *PageInfo {
	totalPages := int(math.Ceil(float64(total) / float64(q.PageSize)))

	return &PageInfo{
		Page:       q.Page,
		PageSize:   q.PageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    q.Page < totalPages,
		HasPrev:    q.Page > 1,
	}
}
