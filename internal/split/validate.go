package split

import (
	"encoding/json"
	"fmt"
	"math"

	"royalty-split-manager/internal/domain"
	"royalty-split-manager/internal/errors"
)

// The publisher's and writer's halves of publishing ownership each carry
// exactly 50% of the work (the standard 50/50 convention). Sums are checked
// against the half as a fraction, with a small float tolerance.
const (
	halfShare    = 0.5
	sumTolerance = 0.0001
)

func validatePublisherTotal(total float64) error {
	if math.Abs(total-halfShare) > sumTolerance {
		return errors.Validation(
			fmt.Sprintf("Publisher shares must total 50%%, got %.2f%%", total*100),
			nil,
		)
	}
	return nil
}

func validateWriterTotal(total float64) error {
	if math.Abs(total-halfShare) > sumTolerance {
		return errors.Validation(
			fmt.Sprintf("Writer shares must total 50%%, got %.2f%%", total*100),
			nil,
		)
	}
	return nil
}

func validateFraction(name string, v float64) error {
	if v < 0 || v > 1 {
		return errors.Validation(
			fmt.Sprintf("%s must be between 0%% and 100%%, got %.2f%%", name, v*100),
			nil,
		)
	}
	return nil
}

// Snapshot payloads for the write-only split journal.

func publishingSnapshot(shares []domain.PublishingEntityShare) []byte {
	type row struct {
		PublishingEntityID  uint64  `json:"publishing_entity_id"`
		OwnershipPercentage float64 `json:"ownership_percentage"`
	}
	rows := make([]row, 0, len(shares))
	for _, s := range shares {
		rows = append(rows, row{s.PublishingEntityID, s.OwnershipPercentage})
	}
	raw, _ := json.Marshal(map[string]any{"publishing_entities": rows})
	return raw
}

func collaboratorSnapshot(shares []domain.CollaboratorShare) []byte {
	type row struct {
		CollaboratorID      uint64   `json:"collaborator_id"`
		RoleInSong          string   `json:"role_in_song"`
		PublishingOwnership *float64 `json:"publishing_ownership"`
		MasterOwnership     *float64 `json:"master_ownership"`
	}
	rows := make([]row, 0, len(shares))
	for _, s := range shares {
		rows = append(rows, row{s.CollaboratorID, s.RoleInSong, s.PublishingOwnership, s.MasterOwnership})
	}
	raw, _ := json.Marshal(map[string]any{"collaborator_shares": rows})
	return raw
}

func labelShareSnapshot(share float64) []byte {
	raw, _ := json.Marshal(map[string]any{"label_master_share": share})
	return raw
}
