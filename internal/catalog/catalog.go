// Package catalog reads live stock data from a Google Sheets warehouse
// document. The sheet layout: a header row whose first cell is "Id", the
// listing URL in column B, color in column E, per-size quantities in
// columns F through K, and price through delivery terms in columns L
// through P. A product occupies a contiguous block of rows.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound reports that the listing has no row in the warehouse sheet.
var ErrNotFound = errors.New("catalog: listing not found")

// DefaultBaseURL is the Google Sheets values API host.
const DefaultBaseURL = "https://sheets.googleapis.com"

// sizeColumns maps sheet column index to size label.
var sizeColumns = []struct {
	index int
	label string
}{
	{5, "S"},
	{6, "M"},
	{7, "L"},
	{8, "XL"},
	{9, "XXL (2XL)"},
	{10, "XXXL (3XL)"},
}

// Stock is the structured stock document for one listing.
type Stock struct {
	ID              string       `json:"id"`
	Name            string       `json:"name"`
	Price           string       `json:"price"`
	Description     string       `json:"description"`
	SizeInfo        string       `json:"size_info"`
	PaymentMethod   string       `json:"payment_method"`
	DeliveryMethod  string       `json:"delivery_method"`
	Colors          []ColorStock `json:"stock"`
	TotalStock      int          `json:"total_stock"`
	AvailableColors []string     `json:"available_colors"`
}

// ColorStock holds per-size quantities for one color.
type ColorStock struct {
	Color string         `json:"color"`
	Sizes map[string]int `json:"sizes"`
	Total int            `json:"total_quantity"`
}

// ContextJSON renders the stock document as JSON for the assistant prompt.
func (s *Stock) ContextJSON() string {
	data, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(data)
}

// Source identifies one tenant's warehouse sheet.
type Source struct {
	APIKey        string
	SpreadsheetID string
	SheetName     string
	Range         string // e.g. "A1:Z500"
}

// Client fetches and parses warehouse sheets.
type Client struct {
	baseURL string
	http    *http.Client
}

// Opts holds parameters for creating a catalog Client.
type Opts struct {
	BaseURL    string // defaults to DefaultBaseURL; override in tests
	HTTPClient *http.Client
}

// New creates a catalog Client.
func New(opts Opts) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// FetchStock retrieves the sheet and extracts the stock document for the
// listing with the given ad URL. Returns ErrNotFound when the listing has no
// rows.
func (c *Client) FetchStock(ctx context.Context, src Source, adURL string) (*Stock, error) {
	rows, err := c.fetchValues(ctx, src)
	if err != nil {
		return nil, err
	}
	return ParseStock(rows, adURL)
}

// fetchValues calls the Sheets values API and returns the raw rows.
func (c *Client) fetchValues(ctx context.Context, src Source) ([][]string, error) {
	endpoint := fmt.Sprintf("%s/v4/spreadsheets/%s/values/%s?majorDimension=ROWS&key=%s",
		c.baseURL,
		url.PathEscape(src.SpreadsheetID),
		url.PathEscape(src.SheetName+"!"+src.Range),
		url.QueryEscape(src.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("catalog: build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog: fetch sheet %s: %w", src.SpreadsheetID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog: fetch sheet %s: status %d", src.SpreadsheetID, resp.StatusCode)
	}

	var out struct {
		Values [][]string `json:"values"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("catalog: decode sheet %s: %w", src.SpreadsheetID, err)
	}
	if len(out.Values) == 0 {
		return nil, fmt.Errorf("catalog: sheet %s is empty", src.SpreadsheetID)
	}
	return out.Values, nil
}

// ParseStock locates the product block for adURL in the raw rows and builds
// the stock document.
func ParseStock(rows [][]string, adURL string) (*Stock, error) {
	const adColumn = 1 // column B

	// Continuation rows leave column B blank, so an empty ad URL would match
	// the first product's second row.
	if adURL == "" {
		return nil, ErrNotFound
	}

	// Locate the header row.
	headerIndex := -1
	for i, row := range rows {
		if len(row) > 0 && row[0] == "Id" {
			headerIndex = i
			break
		}
	}
	if headerIndex == -1 {
		return nil, fmt.Errorf("catalog: header row not found")
	}

	// Locate the first row of the product block.
	start := -1
	for i := headerIndex + 1; i < len(rows); i++ {
		if cell(rows[i], adColumn) == adURL {
			start = i
			break
		}
	}
	if start == -1 {
		return nil, ErrNotFound
	}

	// Collect the block: stops at an empty row, a new header, or a row that
	// names a different listing.
	var block [][]string
	for i := start; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || cell(row, 0) == "Id" {
			break
		}
		if i > start {
			if u := cell(row, adColumn); u != "" && u != adURL {
				break
			}
		}
		if cell(row, 4) != "" { // rows without a color carry no stock
			block = append(block, row)
		}
	}
	if len(block) == 0 {
		return nil, ErrNotFound
	}

	first := block[0]
	stock := &Stock{
		ID:             cell(first, 1),
		Name:           cell(first, 2),
		Price:          cell(first, 11),
		Description:    cell(first, 12),
		SizeInfo:       cell(first, 13),
		PaymentMethod:  cell(first, 14),
		DeliveryMethod: cell(first, 15),
	}

	for _, row := range block {
		cs := ColorStock{
			Color: cell(row, 4),
			Sizes: make(map[string]int, len(sizeColumns)),
		}
		for _, sc := range sizeColumns {
			qty, err := strconv.Atoi(cell(row, sc.index))
			if err != nil {
				qty = 0
			}
			cs.Sizes[sc.label] = qty
			cs.Total += qty
		}
		stock.Colors = append(stock.Colors, cs)
		stock.TotalStock += cs.Total
		if cs.Total > 0 {
			stock.AvailableColors = append(stock.AvailableColors, cs.Color)
		}
	}
	return stock, nil
}

// cell returns the trimmed cell value at index, or "" when the row is short.
func cell(row []string, index int) string {
	if index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}
