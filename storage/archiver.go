package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/Dosada05/tournament-engine/models"
)

// SnapshotArchiver выгружает итоговое состояние турнира JSON-документом.
type SnapshotArchiver struct {
	uploader FileUploader
}

func NewSnapshotArchiver(uploader FileUploader) *SnapshotArchiver {
	return &SnapshotArchiver{uploader: uploader}
}

func ArchiveKey(snapshot *models.TournamentSnapshot) string {
	return fmt.Sprintf("tournaments/%s/final.json", snapshot.Tournament.ID)
}

func (a *SnapshotArchiver) Archive(ctx context.Context, snapshot *models.TournamentSnapshot) (string, error) {
	if snapshot == nil || snapshot.Tournament == nil {
		return "", fmt.Errorf("empty tournament snapshot")
	}
	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode tournament snapshot: %w", err)
	}

	key := ArchiveKey(snapshot)
	result, err := a.uploader.Upload(ctx, key, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	if result.Location != "" {
		return result.Location, nil
	}
	return result.Key, nil
}
