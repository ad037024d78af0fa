package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/kbadiane/chemstock/internal/config"
	"github.com/kbadiane/chemstock/internal/domain/models"
)

// Client exposes the remote inventory operations used by the sync coordinator.
type Client interface {
	FetchAll(ctx context.Context) ([]models.ChemicalRecord, error)
	SubmitPending(ctx context.Context, items []models.PendingItem) (*SubmitReport, error)
	CheckConnectivity(ctx context.Context) bool
}

// SubmitReport carries per-item submission outcomes so a retry only resends
// what the remote side has not yet accepted.
type SubmitReport struct {
	Accepted []string
	Failed   []ItemFailure
}

// ItemFailure records one rejected or undeliverable pending item.
type ItemFailure struct {
	ID  string
	Err error
}

// AllAccepted reports whether every submitted item was acknowledged.
func (r *SubmitReport) AllAccepted() bool {
	return len(r.Failed) == 0
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient  *resty.Client
	probeClient *resty.Client
	apiURL      string
	pingURL     string
	logger      *zap.Logger
}

// fetchEnvelope mirrors the remote read contract: a record wrapper containing
// the chemicals list. Pointers distinguish an absent envelope from an empty one.
type fetchEnvelope struct {
	Record *struct {
		Chemicals *[]models.ChemicalRecord `json:"chemicals"`
	} `json:"record"`
}

// submitPayload is the per-item upload body. ClientRef is the stable
// client-generated id the remote side uses to deduplicate retried deliveries.
type submitPayload struct {
	Chemical  models.ChemicalRecord `json:"chemical"`
	ClientRef string                `json:"client_ref"`
	QueuedAt  time.Time             `json:"queued_at"`
}

// NewClient builds a remote inventory client using the provided configuration values.
func NewClient(cfg config.RemoteConfig, logger *zap.Logger) *APIClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.FetchTimeout)

	probeClient := resty.New().
		SetTimeout(cfg.ProbeTimeout)

	return &APIClient{
		httpClient:  httpClient,
		probeClient: probeClient,
		apiURL:      cfg.APIURL,
		pingURL:     cfg.PingURL,
		logger:      logger,
	}
}

// FetchAll issues the single network read for the full inventory snapshot.
// Transport failures and non-200 statuses surface as ErrNetwork; a response
// that does not match the envelope schema surfaces as ErrParse.
func (c *APIClient) FetchAll(ctx context.Context) ([]models.ChemicalRecord, error) {
	resp, err := c.httpClient.R().SetContext(ctx).Get(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("fetch inventory: %w: %w", models.ErrNetwork, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("fetch inventory: %w: unexpected status %d", models.ErrNetwork, resp.StatusCode())
	}

	var envelope fetchEnvelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, fmt.Errorf("decode inventory response: %w: %w", models.ErrParse, err)
	}
	if envelope.Record == nil || envelope.Record.Chemicals == nil {
		return nil, fmt.Errorf("decode inventory response: %w: missing record envelope", models.ErrParse)
	}

	records := *envelope.Record.Chemicals
	for i, record := range records {
		if err := record.Validate(); err != nil {
			return nil, fmt.Errorf("inventory record %d: %w", i, err)
		}
	}

	c.logger.Debug("inventory fetched", zap.Int("records", len(records)))
	return records, nil
}

// SubmitPending delivers each pending item individually and reports per-item
// outcomes. A failed item never blocks the delivery of later items. The error
// return is reserved for context cancellation.
func (c *APIClient) SubmitPending(ctx context.Context, items []models.PendingItem) (*SubmitReport, error) {
	report := &SubmitReport{}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("submit pending: %w", err)
		}

		payload := submitPayload{
			Chemical:  item.Record,
			ClientRef: item.ID,
			QueuedAt:  item.QueuedAt,
		}

		resp, err := c.httpClient.R().SetContext(ctx).SetBody(payload).Post(c.apiURL)
		if err != nil {
			report.Failed = append(report.Failed, ItemFailure{
				ID:  item.ID,
				Err: fmt.Errorf("%w: %w", models.ErrNetwork, err),
			})
			continue
		}

		if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
			report.Failed = append(report.Failed, ItemFailure{
				ID:  item.ID,
				Err: fmt.Errorf("%w: unexpected status %d", models.ErrNetwork, resp.StatusCode()),
			})
			continue
		}

		report.Accepted = append(report.Accepted, item.ID)
	}

	c.logger.Info("pending submission finished",
		zap.Int("accepted", len(report.Accepted)),
		zap.Int("failed", len(report.Failed)))

	return report, nil
}

// CheckConnectivity is an advisory reachability probe. It never gates
// correctness; callers treat the result as a hint only.
func (c *APIClient) CheckConnectivity(ctx context.Context) bool {
	resp, err := c.probeClient.R().SetContext(ctx).Head(c.pingURL)
	if err != nil {
		c.logger.Debug("connectivity probe failed", zap.Error(err))
		return false
	}
	return resp.StatusCode() < http.StatusInternalServerError
}
