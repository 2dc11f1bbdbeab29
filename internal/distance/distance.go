/*
Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package distance fetches driving times between terminals from an
// OSRM-style table service, preferring one batched call over the whole
// terminal set and falling back to pairwise calls when the batch fails —
// the same batch-then-fall-back-to-individual shape as
// pkg/batcher/terminateinstances.go's execTerminateInstancesBatch.
package distance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xbe-inc/haulsched/internal/model"
	"github.com/xbe-inc/haulsched/internal/obslog"
	"github.com/xbe-inc/haulsched/internal/tablecache"
)

// Client wraps an OSRM-compatible /table/v1 endpoint at BaseURL, e.g.
// "https://osrm.example.com/table/v1/driving".
type Client struct {
	BaseURL       string
	HTTP          *http.Client
	RetryAttempts uint
	RetryDelay    time.Duration

	// Cache, when set, is consulted before every network call and filled
	// in after a successful one, per spec.md §4.9.
	Cache    *tablecache.Store
	CacheTTL time.Duration
}

// NewClient builds a Client with the same conservative retry budget ingest
// uses.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:       baseURL,
		HTTP:          http.DefaultClient,
		RetryAttempts: 3,
		RetryDelay:    200 * time.Millisecond,
	}
}

type tableResponse struct {
	Durations [][]*float64 `json:"durations"`
}

// Matrix returns the driving-time table for every ordered pair of
// terminals. It first tries a single batched OSRM table call; if that call
// fails (the service rejects large coordinate lists past a size limit, for
// instance) it falls back to one pairwise call per ordered pair. Every pair
// is attempted even when some fail; the failures are returned as one
// aggregated error alongside the table of the pairs that succeeded.
func (c *Client) Matrix(ctx context.Context, terminals []model.Terminal) (*model.DrivingTimeTable, error) {
	if len(terminals) == 0 {
		return model.NewDrivingTimeTable(), nil
	}

	table, err := c.batchMatrix(ctx, terminals)
	if err == nil {
		return table, nil
	}
	obslog.From(ctx).Warn("batched distance matrix call failed, falling back to pairwise", zap.Error(err))
	return c.pairwiseMatrix(ctx, terminals)
}

func (c *Client) batchMatrix(ctx context.Context, terminals []model.Terminal) (*model.DrivingTimeTable, error) {
	coords := make([]string, len(terminals))
	for i, t := range terminals {
		coords[i] = fmt.Sprintf("%s,%s", strconv.FormatFloat(t.Longitude, 'f', -1, 64), strconv.FormatFloat(t.Latitude, 'f', -1, 64))
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/" + strings.Join(coords, ";") + "?annotations=duration"

	var resp tableResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return nil, err
	}
	if len(resp.Durations) != len(terminals) {
		return nil, fmt.Errorf("distance: table response had %d rows, expected %d", len(resp.Durations), len(terminals))
	}

	table := model.NewDrivingTimeTable()
	for i, row := range resp.Durations {
		if len(row) != len(terminals) {
			return nil, fmt.Errorf("distance: table response row %d had %d entries, expected %d", i, len(row), len(terminals))
		}
		for j, d := range row {
			if d == nil {
				return nil, fmt.Errorf("distance: table response has no route from %s to %s", terminals[i].ID, terminals[j].ID)
			}
			table.Set(terminals[i].ID, terminals[j].ID, model.Duration(*d))
		}
	}
	return table, nil
}

func (c *Client) pairwiseMatrix(ctx context.Context, terminals []model.Terminal) (*model.DrivingTimeTable, error) {
	table := model.NewDrivingTimeTable()
	var mu sync.Mutex
	var errs error
	var wg sync.WaitGroup

	for _, from := range terminals {
		for _, to := range terminals {
			if from.ID == to.ID {
				continue
			}
			from, to := from, to
			wg.Add(1)
			go func() {
				defer wg.Done()
				d, err := c.route(ctx, from, to)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = multierr.Append(errs, fmt.Errorf("distance: %s -> %s: %w", from.ID, to.ID, err))
					return
				}
				table.Set(from.ID, to.ID, d)
			}()
		}
	}
	wg.Wait()
	return table, errs
}

func (c *Client) route(ctx context.Context, from, to model.Terminal) (model.Duration, error) {
	endpoint := fmt.Sprintf("%s/%s,%s;%s,%s?annotations=duration",
		strings.TrimRight(c.BaseURL, "/"),
		strconv.FormatFloat(from.Longitude, 'f', -1, 64), strconv.FormatFloat(from.Latitude, 'f', -1, 64),
		strconv.FormatFloat(to.Longitude, 'f', -1, 64), strconv.FormatFloat(to.Latitude, 'f', -1, 64),
	)
	var resp tableResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return 0, err
	}
	if len(resp.Durations) != 2 || len(resp.Durations[0]) != 2 || resp.Durations[0][1] == nil {
		return 0, fmt.Errorf("distance: malformed pairwise table response")
	}
	return model.Duration(*resp.Durations[0][1]), nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	if _, err := url.Parse(endpoint); err != nil {
		return retry.Unrecoverable(fmt.Errorf("distance: invalid endpoint %s: %w", endpoint, err))
	}

	if c.Cache != nil {
		if key, err := tablecache.Key(endpoint); err == nil {
			if cached, ok, err := c.Cache.Get(ctx, key, c.CacheTTL); err == nil && ok {
				return json.Unmarshal(cached, out)
			}
		}
	}

	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
			if err != nil {
				return retry.Unrecoverable(err)
			}
			resp, err := c.HTTP.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 500 {
				return fmt.Errorf("distance: %s returned %d", endpoint, resp.StatusCode)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("distance: %s returned %d", endpoint, resp.StatusCode))
			}
			body, err = io.ReadAll(resp.Body)
			return err
		},
		retry.Attempts(c.RetryAttempts),
		retry.Delay(c.RetryDelay),
		retry.Context(ctx),
	)
	if err != nil {
		return err
	}

	if c.Cache != nil {
		if key, kerr := tablecache.Key(endpoint); kerr == nil {
			_ = c.Cache.Put(ctx, key, body)
		}
	}
	return json.Unmarshal(body, out)
}
