package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/port/rowstore"
)

// pageSize is the limit asked for per request. The project's max-rows
// setting may cap pages below it, so only an empty page ends the read.
const pageSize = 1000

// SelectAll reads every row of table through PostgREST, one page at a time.
// Numbers are kept as json.Number so integer ids survive without float
// rounding.
func (c *Client) SelectAll(ctx context.Context, table string) ([]rowstore.Record, error) {
	records := []rowstore.Record{}
	for {
		page, err := c.selectPage(ctx, table, len(records))
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			return records, nil
		}
		records = append(records, page...)
	}
}

func (c *Client) selectPage(ctx context.Context, table string, offset int) ([]rowstore.Record, error) {
	q := url.Values{}
	q.Set("select", "*")
	q.Set("limit", strconv.Itoa(pageSize))
	q.Set("offset", strconv.Itoa(offset))
	path := "/rest/v1/" + url.PathEscape(table) + "?" + q.Encode()

	data, err := c.doRequest(ctx, http.MethodGet, path, "", nil)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w: %w", table, domain.ErrFetch, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var page []rowstore.Record
	if err := dec.Decode(&page); err != nil {
		return nil, fmt.Errorf("select %s: %w: decode: %w", table, domain.ErrFetch, err)
	}
	return page, nil
}
