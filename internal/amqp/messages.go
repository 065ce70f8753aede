package amqp

import (
	"encoding/json"
	"time"

	"a3p/internal/dataset"
)

// SnapshotChangedMessage announces that a source has a new parsed snapshot.
// Receivers only need the identity; they reload through their own cache.
type SnapshotChangedMessage struct {
	Source      string    `json:"source"`
	Fingerprint string    `json:"fingerprint"`
	SnapshotID  string    `json:"snapshot_id"`
	Records     int       `json:"records"`
	ChangedAt   time.Time `json:"changed_at"`
}

// NewSnapshotChangedMessage describes snap.
func NewSnapshotChangedMessage(snap *dataset.Snapshot) *SnapshotChangedMessage {
	return &SnapshotChangedMessage{
		Source:      snap.Source,
		Fingerprint: snap.Fingerprint,
		SnapshotID:  snap.ID,
		Records:     len(snap.Records),
		ChangedAt:   time.Now(),
	}
}

func (m *SnapshotChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func SnapshotChangedMessageFromJSON(data []byte) (*SnapshotChangedMessage, error) {
	var msg SnapshotChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
