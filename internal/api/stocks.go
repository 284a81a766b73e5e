package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rickgao/ashare-data/internal/model"
)

// listPageSize is the page size used when walking the stock universe.
const listPageSize = 200

// listFilter selects main-board, SME, ChiNext and STAR listings on both
// exchanges, mirroring what akshare's stock list interface requests.
const listFilter = "m:0 t:6,m:0 t:80,m:1 t:2,m:1 t:23"

// GetStockList fetches the full listed-stock universe, paginating until the
// host reports no more entries.
func (c *Client) GetStockList(ctx context.Context) ([]model.Stock, error) {
	var stocks []model.Stock

	for page := 1; ; page++ {
		items, total, err := c.getStockPage(ctx, page)
		if err != nil {
			return nil, err
		}
		if len(items) == 0 {
			break
		}

		for _, item := range items {
			exchange := model.ExchangeShenzhen
			if item.Market == 1 {
				exchange = model.ExchangeShanghai
			}
			stocks = append(stocks, model.Stock{
				Symbol:   model.FormatSymbol(item.Code, exchange),
				Code:     item.Code,
				Exchange: exchange,
				Name:     item.Name,
			})
		}

		if len(stocks) >= total {
			break
		}
	}

	c.logger.Debug("fetched stock universe", "count", len(stocks))
	return stocks, nil
}

// getStockPage fetches one page of the universe listing.
func (c *Client) getStockPage(ctx context.Context, page int) ([]listItem, int, error) {
	query := url.Values{}
	query.Set("pn", strconv.Itoa(page))
	query.Set("pz", strconv.Itoa(listPageSize))
	query.Set("fs", listFilter)
	query.Set("fields", "f12,f13,f14")

	var resp listResponse
	if err := c.get(ctx, "/api/qt/clist/get", query, &resp); err != nil {
		return nil, 0, fmt.Errorf("get stock list page %d: %w", page, err)
	}

	if resp.Data == nil {
		return nil, 0, nil
	}
	return resp.Data.Diff, resp.Data.Total, nil
}
