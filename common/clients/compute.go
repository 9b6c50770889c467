package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/nfvmesh/sfcd/common/config"
)

// InstanceState is a compute platform instance state
type InstanceState string

const (
	// StateActive means the platform reports the instance running
	StateActive InstanceState = "active"
	// StateError means the platform reports the instance failed
	StateError InstanceState = "error"
	// StateBuilding covers every non-terminal state
	StateBuilding InstanceState = "building"
)

// NetworkInterface attaches an instance to one network
type NetworkInterface struct {
	NetworkID string `json:"network_id"`
}

// CreateInstanceRequest describes the VM to provision for a chain step
type CreateInstanceRequest struct {
	Name              string             `json:"name"`
	ImageRef          string             `json:"image_ref"`
	Flavor            string             `json:"flavor"`
	SecurityGroups    []string           `json:"security_groups"`
	NetworkInterfaces []NetworkInterface `json:"network_interfaces"`
	Metadata          map[string]string  `json:"metadata,omitempty"`
}

// ComputeClient is the compute platform API used by the launch orchestrator.
// Implementations must be safe for concurrent use.
type ComputeClient interface {
	CreateInstance(ctx context.Context, req CreateInstanceRequest) (string, error)
	GetInstanceState(ctx context.Context, instanceID string) (InstanceState, error)
}

// Ensure HTTPComputeClient implements ComputeClient
var _ ComputeClient = (*HTTPComputeClient)(nil)

// HTTPComputeClient talks to the compute platform over its REST API
type HTTPComputeClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPComputeClient creates a compute client from config
func NewHTTPComputeClient(cfg *config.Config) *HTTPComputeClient {
	return &HTTPComputeClient{
		baseURL: cfg.Compute.BaseURL,
		http: &http.Client{
			Timeout: cfg.Compute.Timeout,
		},
	}
}

// CreateInstance requests a new VM and returns the platform's instance id
func (c *HTTPComputeClient) CreateInstance(ctx context.Context, req CreateInstanceRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal create request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/servers", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("create instance: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusCreated {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("create instance: status %d: %s", resp.StatusCode, payload)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode create response: %w", err)
	}

	return result.ID, nil
}

// GetInstanceState polls the platform for the instance's current state
func (c *HTTPComputeClient) GetInstanceState(ctx context.Context, instanceID string) (InstanceState, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/servers/"+instanceID, nil)
	if err != nil {
		return "", fmt.Errorf("build state request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("get instance state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("get instance state: status %d: %s", resp.StatusCode, payload)
	}

	var result struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode state response: %w", err)
	}

	switch result.Status {
	case "ACTIVE", "active":
		return StateActive, nil
	case "ERROR", "error":
		return StateError, nil
	default:
		return StateBuilding, nil
	}
}
