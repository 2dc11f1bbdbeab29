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

// Package ingest pulls terminals, trucks and transport requests from the
// logistics API over HTTP and turns the raw rows into internal/model
// entities, applying the window-repair rules of spec.md §6. Grounded on
// pkg/aws/awsclient.go (a thin client wrapping a third-party API) and
// pkg/batcher/terminateinstances.go's tolerance of partial failure: a
// malformed row is dropped and counted rather than failing the whole fetch.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/xbe-inc/haulsched/internal/model"
	"github.com/xbe-inc/haulsched/internal/obslog"
	"github.com/xbe-inc/haulsched/internal/tablecache"
)

// Epoch and FarFuture are the sentinel instants spec.md §6 substitutes for
// a missing pickup/dropoff window bound.
const (
	Epoch     model.Instant = 0
	FarFuture model.Instant = model.Instant(1 << 48)
)

// Client fetches the three ingest tables from a logistics API that serves
// them at BaseURL+"/terminals", BaseURL+"/trucks" and BaseURL+"/requests".
type Client struct {
	BaseURL       string
	HTTP          *http.Client
	RetryAttempts uint
	RetryDelay    time.Duration

	// Cache, when set, is consulted before every network call and filled
	// in after a successful one, per spec.md §4.9.
	Cache    *tablecache.Store
	CacheTTL time.Duration

	// SkippedInverted counts transport requests dropped for having an
	// inverted pickup or dropoff window, per spec.md §6.
	SkippedInverted prometheus.Counter
}

// NewClient builds a Client with the teacher's usual conservative retry
// budget and a counter that is safe to read even if the caller never
// registers it with a Prometheus registry.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:       baseURL,
		HTTP:          http.DefaultClient,
		RetryAttempts: 3,
		RetryDelay:    200 * time.Millisecond,
		SkippedInverted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "haulsched", Subsystem: "ingest", Name: "skipped_inverted_total",
			Help: "Transport requests dropped for having an inverted pickup or dropoff window.",
		}),
	}
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	url := c.BaseURL + path

	if c.Cache != nil {
		key, err := tablecache.Key(url)
		if err == nil {
			if cached, ok, err := c.Cache.Get(ctx, key, c.CacheTTL); err == nil && ok {
				return json.Unmarshal(cached, out)
			}
		}
	}

	var body []byte
	err := retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("ingest: building request for %s: %w", url, err))
			}
			resp, err := c.HTTP.Do(req)
			if err != nil {
				return fmt.Errorf("ingest: fetching %s: %w", url, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 500 {
				return fmt.Errorf("ingest: %s returned %d", url, resp.StatusCode)
			}
			if resp.StatusCode >= 400 {
				return retry.Unrecoverable(fmt.Errorf("ingest: %s returned %d", url, resp.StatusCode))
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
		if key, kerr := tablecache.Key(url); kerr == nil {
			_ = c.Cache.Put(ctx, key, body)
		}
	}
	return json.Unmarshal(body, out)
}

type terminalRow struct {
	ID           string  `json:"id"`
	OpenSeconds  int64   `json:"open_seconds"`
	CloseSeconds int64   `json:"close_seconds"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
}

// FetchTerminals retrieves every terminal. A terminal with a blank id is
// dropped — model.Invalid is reserved and never a legitimate ingested id.
func (c *Client) FetchTerminals(ctx context.Context) ([]model.Terminal, error) {
	var rows []terminalRow
	if err := c.getJSON(ctx, "/terminals", &rows); err != nil {
		return nil, err
	}
	out := make([]model.Terminal, 0, len(rows))
	seen := sets.New[model.ID]()
	for _, r := range rows {
		id := model.ID(r.ID)
		if id == model.Invalid || seen.Has(id) {
			continue
		}
		seen.Insert(id)
		out = append(out, model.Terminal{
			ID:        id,
			Open:      model.Instant(r.OpenSeconds),
			Close:     model.Instant(r.CloseSeconds),
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
		})
	}
	return out, nil
}

type truckRow struct {
	ID                string `json:"id"`
	StartingTerminal  string `json:"starting_terminal"`
	CapacityKilograms int64  `json:"capacity_kilograms"`
	ADR               bool   `json:"adr"`
}

// FetchTrucks retrieves every truck.
func (c *Client) FetchTrucks(ctx context.Context) ([]model.Truck, error) {
	var rows []truckRow
	if err := c.getJSON(ctx, "/trucks", &rows); err != nil {
		return nil, err
	}
	out := make([]model.Truck, 0, len(rows))
	seen := sets.New[model.ID]()
	for _, r := range rows {
		id := model.ID(r.ID)
		if id == model.Invalid || seen.Has(id) {
			continue
		}
		seen.Insert(id)
		out = append(out, model.Truck{
			ID:                id,
			StartingTerminal:  model.ID(r.StartingTerminal),
			CapacityKilograms: r.CapacityKilograms,
			ADR:               r.ADR,
		})
	}
	return out, nil
}

type requestRow struct {
	ID                  string `json:"id"`
	Cargo               string `json:"cargo"`
	FromTerminal        string `json:"from_terminal"`
	ToTerminal          string `json:"to_terminal"`
	PickupOpenSeconds   *int64 `json:"pickup_open_seconds"`
	PickupCloseSeconds  *int64 `json:"pickup_close_seconds"`
	DropoffOpenSeconds  *int64 `json:"dropoff_open_seconds"`
	DropoffCloseSeconds *int64 `json:"dropoff_close_seconds"`
	DrivingTimeSeconds  int64  `json:"driving_time_seconds"`
	WeightKilograms     int64  `json:"weight_kilograms"`
	ADR                 bool   `json:"adr"`
}

// FetchRequests retrieves every transport request, substituting sentinel
// bounds for missing windows and dropping any request whose pickup or
// dropoff window is inverted (open >= close) rather than failing the
// fetch, incrementing SkippedInverted for each one dropped.
func (c *Client) FetchRequests(ctx context.Context) ([]model.TransportRequest, error) {
	var rows []requestRow
	if err := c.getJSON(ctx, "/requests", &rows); err != nil {
		return nil, err
	}
	out := make([]model.TransportRequest, 0, len(rows))
	log := obslog.From(ctx)
	for _, r := range rows {
		if model.ID(r.ID) == model.Invalid || model.ID(r.Cargo) == model.Invalid {
			continue
		}
		pickupOpen := boundOr(r.PickupOpenSeconds, Epoch)
		pickupClose := boundOr(r.PickupCloseSeconds, FarFuture)
		dropoffOpen := boundOr(r.DropoffOpenSeconds, Epoch)
		dropoffClose := boundOr(r.DropoffCloseSeconds, FarFuture)

		if pickupOpen >= pickupClose || dropoffOpen >= dropoffClose {
			if c.SkippedInverted != nil {
				c.SkippedInverted.Inc()
			}
			log.Info("dropping transport request with inverted window", zap.String("cargo", r.Cargo))
			continue
		}

		out = append(out, model.TransportRequest{
			ID:              model.ID(r.ID),
			Cargo:           model.ID(r.Cargo),
			FromTerminal:    model.ID(r.FromTerminal),
			ToTerminal:      model.ID(r.ToTerminal),
			PickupOpen:      pickupOpen,
			PickupClose:     pickupClose,
			DropoffOpen:     dropoffOpen,
			DropoffClose:    dropoffClose,
			DrivingTime:     model.Duration(r.DrivingTimeSeconds),
			WeightKilograms: r.WeightKilograms,
			ADR:             r.ADR,
		})
	}
	return out, nil
}

func boundOr(v *int64, sentinel model.Instant) model.Instant {
	if v == nil {
		return sentinel
	}
	return model.Instant(*v)
}
