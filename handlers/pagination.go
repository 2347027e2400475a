package handlers

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type PaginationParams struct {
	Limit  int
	Before *time.Time
}

type paginationQuery struct {
	Limit  int    `form:"limit,default=20" binding:"min=1,max=100"`
	Before string `form:"before"`
}

type CursorResponse struct {
	Data       interface{} `json:"data"`
	NextCursor string      `json:"next_cursor,omitempty"`
	HasMore    bool        `json:"has_more"`
}

// BindPagination validates limit (1..100, default 20) and the optional
// RFC3339 before cursor.
func BindPagination(c *gin.Context) (PaginationParams, error) {
	var q paginationQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return PaginationParams{}, err
	}

	p := PaginationParams{Limit: q.Limit}
	if q.Before != "" {
		t, err := time.Parse(time.RFC3339Nano, q.Before)
		if err != nil {
			return PaginationParams{}, fmt.Errorf("invalid before cursor %q: %w", q.Before, err)
		}
		p.Before = &t
	}
	return p, nil
}
