package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

// Result 记录单次请求的 HTTP 结果，便于聚合统计。
type Result struct {
	Status int
	Body   string
	Err    error
}

func main() {
	app := &cli.App{
		Name:  "loadtest",
		Usage: "fire concurrent single-unit orders at one product and check for oversell",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base", Value: "http://localhost:8080", Usage: "server base url"},
			&cli.StringFlag{Name: "product", Usage: "product id; empty creates a fresh product"},
			&cli.Int64Flag{Name: "stock", Value: 10, Usage: "stock of the product created when --product is empty"},
			&cli.IntFlag{Name: "orders", Value: 200, Usage: "number of orders to place"},
			&cli.IntFlag{Name: "c", Value: 50, Usage: "max concurrency"},
			&cli.StringFlag{Name: "city", Value: "Dhaka", Usage: "shipping city"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	client := &http.Client{Timeout: 10 * time.Second}
	base := c.String("base")

	productID := c.String("product")
	if productID == "" {
		id, err := createProduct(client, base, c.Int64("stock"))
		if err != nil {
			return errors.Wrap(err, "create product")
		}
		productID = id
		fmt.Printf("created product %s with stock %d\n", productID, c.Int64("stock"))
	}

	before, err := getStock(client, base, productID)
	if err != nil {
		return errors.Wrap(err, "stock before")
	}

	n := c.Int("orders")
	fmt.Printf("start oversell test: product=%s stock=%d orders=%d concurrency=%d\n", productID, before, n, c.Int("c"))
	start := time.Now()
	results := runOrders(client, base, productID, c.String("city"), n, c.Int("c"))
	fmt.Printf("done in %s\n", time.Since(start).Round(time.Millisecond))
	printSummary("oversell", results)

	after, err := getStock(client, base, productID)
	if err != nil {
		return errors.Wrap(err, "stock after")
	}
	placed := int64(countStatus(results, http.StatusCreated))
	fmt.Printf("stock before=%d after=%d placed=%d\n", before, after, placed)
	if after < 0 || before-after != placed {
		return errors.Errorf("oversell detected: before=%d after=%d placed=%d", before, after, placed)
	}
	fmt.Println("no oversell")
	return nil
}

func runOrders(client *http.Client, baseURL, productID, city string, total, concurrency int) []Result {
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	results := make([]Result, total)

	for i := 0; i < total; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			// 每单一个手机号，避免被下单限流拦截。
			req := map[string]any{
				"name":             "Load Test",
				"mobile":           fmt.Sprintf("017%08d", idx),
				"shipping_address": "House 1, Road 2",
				"city":             city,
				"products": []map[string]any{
					{"product": productID, "quantity": 1, "color": "black"},
				},
			}
			results[idx] = postJSON(client, baseURL+"/api/orders", req, nil)
		}(i)
	}

	wg.Wait()
	return results
}

func postJSON(client *http.Client, url string, body any, headers map[string]string) Result {
	b, err := json.Marshal(body)
	if err != nil {
		return Result{Err: err}
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return Result{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Err: err}
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return Result{Status: resp.StatusCode, Body: string(out)}
}

func createProduct(client *http.Client, baseURL string, stock int64) (string, error) {
	suffix := uuid.NewString()[:8]
	categoryID, err := adminCreate(client, baseURL+"/api/categories", map[string]any{
		"name": "loadtest-" + suffix,
	})
	if err != nil {
		return "", errors.Wrap(err, "create category")
	}
	return adminCreate(client, baseURL+"/api/products", map[string]any{
		"name":        "loadtest-" + suffix,
		"price":       "100",
		"stock":       stock,
		"category_id": categoryID,
	})
}

// adminCreate 以管理员身份 POST，返回新建资源的 id。
func adminCreate(client *http.Client, url string, body map[string]any) (string, error) {
	res := postJSON(client, url, body, map[string]string{"X-User-ID": "loadtest", "X-User-Role": "admin"})
	if res.Err != nil {
		return "", res.Err
	}
	if res.Status != http.StatusCreated {
		return "", errors.Errorf("status=%d body=%s", res.Status, res.Body)
	}
	var out struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal([]byte(res.Body), &out); err != nil {
		return "", err
	}
	return out.Data.ID, nil
}

// getStock 读取商品当前库存，用于压测后校验是否出现超卖。
func getStock(client *http.Client, baseURL, productID string) (int64, error) {
	resp, err := client.Get(fmt.Sprintf("%s/api/products/%s", baseURL, productID))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return 0, errors.Errorf("status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Data struct {
			Stock int64 `json:"stock"`
		} `json:"data"`
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return 0, err
	}
	return out.Data.Stock, nil
}

func countStatus(results []Result, status int) int {
	n := 0
	for _, r := range results {
		if r.Err == nil && r.Status == status {
			n++
		}
	}
	return n
}

// printSummary 聚合输出不同状态码分布。
func printSummary(name string, results []Result) {
	count := map[int]int{}
	errCount := 0
	for _, r := range results {
		if r.Err != nil {
			errCount++
			continue
		}
		count[r.Status]++
	}
	codes := make([]int, 0, len(count))
	for code := range count {
		codes = append(codes, code)
	}
	sort.Ints(codes)

	fmt.Printf("[%s] http status summary:\n", name)
	for _, code := range codes {
		fmt.Printf("  %d -> %d\n", code, count[code])
	}
	if errCount > 0 {
		fmt.Printf("  errors -> %d\n", errCount)
	}
}
