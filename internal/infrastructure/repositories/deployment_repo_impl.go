package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"usdc-bridge.backend/internal/domain/entities"
	domainerrors "usdc-bridge.backend/internal/domain/errors"
)

var networkNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// DeploymentFileRepository keeps one JSON record per network under a directory
type DeploymentFileRepository struct {
	dir string
	mu  sync.Mutex
}

// NewDeploymentFileRepository creates a deployment repository rooted at dir
func NewDeploymentFileRepository(dir string) *DeploymentFileRepository {
	return &DeploymentFileRepository{dir: dir}
}

func (r *DeploymentFileRepository) path(network string) (string, error) {
	if !networkNamePattern.MatchString(network) {
		return "", fmt.Errorf("network name %q: %w", network, domainerrors.ErrInvalidInput)
	}
	return filepath.Join(r.dir, network+".json"), nil
}

// Save writes the record, replacing any previous one for the network
func (r *DeploymentFileRepository) Save(_ context.Context, deployment *entities.Deployment) error {
	path, err := r.path(deployment.Network)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(deployment, "", "  ")
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create deployments dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write deployment record: %w", err)
	}
	return os.Rename(tmp, path)
}

// Get reads the record for network. ErrNotFound when nothing was deployed yet.
func (r *DeploymentFileRepository) Get(_ context.Context, network string) (*entities.Deployment, error) {
	path, err := r.path(network)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	raw, err := os.ReadFile(path)
	r.mu.Unlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, domainerrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read deployment record: %w", err)
	}

	var d entities.Deployment
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode deployment record %s: %w", path, err)
	}
	return &d, nil
}
