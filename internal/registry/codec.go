package registry

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/couchcryptid/case-trend-service/internal/domain"
)

const blobVersion = 1

type envelope struct {
	Version int                 `json:"version"`
	Model   domain.TrainedModel `json:"model"`
}

// Encode serializes a model into the registry blob format.
func Encode(model domain.TrainedModel) ([]byte, error) {
	if strings.TrimSpace(model.EntityID) == "" {
		return nil, fmt.Errorf("encode model: empty entity id: %w", domain.ErrInvalidArgument)
	}
	data, err := json.Marshal(envelope{Version: blobVersion, Model: model})
	if err != nil {
		return nil, fmt.Errorf("encode model %q: %w", model.EntityID, err)
	}
	return data, nil
}

// Decode parses a registry blob.
func Decode(blob []byte) (domain.TrainedModel, error) {
	var env envelope
	if err := json.Unmarshal(blob, &env); err != nil {
		return domain.TrainedModel{}, fmt.Errorf("decode model: %w", err)
	}
	if env.Version != blobVersion {
		return domain.TrainedModel{}, fmt.Errorf("decode model: unsupported blob version %d", env.Version)
	}
	return env.Model, nil
}
