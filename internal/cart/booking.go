package cart

import (
	"fmt"

	"studiobook/internal/pricing"
)

// Booking is one session line of a cart. Only Hours and Rate feed pricing; every
// cost is derived on demand from the cart order.
type Booking struct {
	ID          string              `json:"id"`
	Kind        pricing.ServiceKind `json:"service_kind"`
	Cameras     int                 `json:"camera_count"`
	Description string              `json:"description"`
	Equipment   string              `json:"equipment"`
	Hours       int                 `json:"hours"`
	Rate        float64             `json:"rate"`
	MergeKey    string              `json:"merge_key"`
}

// MergeKey identifies fungible setups: "video-<cameras>" or "audio".
func MergeKey(kind pricing.ServiceKind, cameras int) string {
	if kind == pricing.Video {
		return fmt.Sprintf("video-%d", cameras)
	}
	return "audio"
}

// EquipmentLabel is the equipment line shown next to a session.
func EquipmentLabel(kind pricing.ServiceKind, cameras int) string {
	if kind != pricing.Video {
		return "Audio Booth"
	}
	if cameras == 0 {
		return "No Equipment"
	}
	return fmt.Sprintf("%d Camera(s)", cameras)
}
