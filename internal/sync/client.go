package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/gramseva/swasthya-sahayak/internal/model"
	"github.com/gramseva/swasthya-sahayak/pkg/circuitbreaker"
	apperrors "github.com/gramseva/swasthya-sahayak/pkg/errors"
	"github.com/gramseva/swasthya-sahayak/pkg/logger"
)

// RemoteRecord is one entity as the server holds it. Timestamp is the
// server-assigned logical timestamp.
type RemoteRecord struct {
	EntityType model.EntityType `json:"entity_type"`
	EntityID   uuid.UUID        `json:"entity_id"`
	Timestamp  int64            `json:"timestamp"`
	Payload    json.RawMessage  `json:"payload"`
}

// ChangesRequest asks for reference data changed since a checkpoint.
type ChangesRequest struct {
	Since int64              `json:"since"`
	Types []model.EntityType `json:"types"`
}

type ChangesResponse struct {
	Records    []RemoteRecord `json:"records"`
	ServerTime int64          `json:"server_time"`
}

// MutationUpload is one coalesced outbox snapshot on its way out.
type MutationUpload struct {
	EntityType    model.EntityType `json:"entity_type"`
	EntityID      uuid.UUID        `json:"entity_id"`
	Operation     model.Operation  `json:"operation"`
	Payload       json.RawMessage  `json:"payload,omitempty"`
	BaseTimestamp int64            `json:"base_timestamp"`
}

// UploadResult is the server's per-entity verdict. A rejection carries
// the conflicting server copy so the local store can adopt it.
type UploadResult struct {
	EntityID   uuid.UUID       `json:"entity_id"`
	Accepted   bool            `json:"accepted"`
	Timestamp  int64           `json:"timestamp"`
	ServerCopy json.RawMessage `json:"server_copy,omitempty"`
}

type UploadResponse struct {
	Results []UploadResult `json:"results"`
}

// RemoteClient is the consumed network endpoint. Implementations must
// classify transport failures as Transient so the manager retries them.
type RemoteClient interface {
	FetchChanges(ctx context.Context, req *ChangesRequest) (*ChangesResponse, error)
	SubmitBatch(ctx context.Context, uploads []MutationUpload) (*UploadResponse, error)
}

// Client talks to the remote authority over HTTPS. A rate limiter paces
// batch submissions so a large backlog drains without flooding the
// village tower's uplink, and a circuit breaker fails passes fast once
// the tower stops answering.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
	breaker *circuitbreaker.Breaker
	logger  *logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, batchesPerSecond float64, log *logger.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if batchesPerSecond <= 0 {
		batchesPerSecond = 1
	}

	return &Client{
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(batchesPerSecond), 1),
		breaker: circuitbreaker.New(3, time.Minute),
		logger:  log.WithComponent("sync_client"),
	}
}

func (c *Client) FetchChanges(ctx context.Context, req *ChangesRequest) (*ChangesResponse, error) {
	var response ChangesResponse
	err := c.breaker.Execute(func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&response).
			Post("/v1/sync/changes")
		if err != nil {
			return apperrors.Transient("failed to fetch reference changes", err)
		}
		if resp.IsError() {
			return apperrors.Transient(
				fmt.Sprintf("reference fetch returned status %d", resp.StatusCode()), nil)
		}
		return nil
	})
	if err == circuitbreaker.ErrOpen {
		return nil, apperrors.Transient("sync endpoint unavailable", err)
	}
	if err != nil {
		return nil, err
	}
	return &response, nil
}

func (c *Client) SubmitBatch(ctx context.Context, uploads []MutationUpload) (*UploadResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Transient("rate limiter interrupted", err)
	}

	var response UploadResponse
	err := c.breaker.Execute(func() error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBody(map[string]interface{}{"mutations": uploads}).
			SetResult(&response).
			Post("/v1/sync/mutations")
		if err != nil {
			return apperrors.Transient("failed to submit mutation batch", err)
		}
		if resp.IsError() {
			return apperrors.Transient(
				fmt.Sprintf("mutation submit returned status %d", resp.StatusCode()), nil)
		}
		return nil
	})
	if err == circuitbreaker.ErrOpen {
		return nil, apperrors.Transient("sync endpoint unavailable", err)
	}
	if err != nil {
		return nil, err
	}
	return &response, nil
}
