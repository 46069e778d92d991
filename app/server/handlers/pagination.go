package handlers

import (
	"github.com/labstack/echo/v4"
	"strconv"
)

const defaultPageLimit = 100

type pagination struct {
	showAll bool
	page    int // 从 0 开始
	limit   int
}

func queryUint(c echo.Context, name string) (*uint, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, err
	}
	u := uint(v)
	return &u, nil
}

// parsePagination 读取 page 和 limit ，page=0&limit=0 表示展示全部
func parsePagination(page *uint, limit *uint) pagination {
	if page != nil && *page == 0 && limit != nil && *limit == 0 {
		return pagination{showAll: true, page: -1, limit: -1}
	}

	// 映射前：第几页；映射后：页减一
	p := pagination{page: 0, limit: defaultPageLimit}
	if page != nil && *page >= 1 {
		p.page = int(*page - 1)
	}
	if limit != nil && *limit > 0 {
		p.limit = int(*limit)
	}

	return p
}

func (p pagination) maxPage(count int64) int64 {
	if p.showAll {
		return 1
	}

	pageMax := count / int64(p.limit)
	if count%int64(p.limit) != 0 {
		pageMax++
	}
	return pageMax
}
