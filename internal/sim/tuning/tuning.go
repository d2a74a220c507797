package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"farmdustry.io/internal/protocol"
)

type Tuning struct {
	ProtocolVersion int `yaml:"protocol_version"`

	TickRateHz             int     `yaml:"tick_rate_hz"`
	WorldSize              int     `yaml:"world_size"`
	CropRate               float32 `yaml:"crop_rate"`
	StructureUpdateSeconds float32 `yaml:"structure_update_seconds"`
	PlayerSpeed            float32 `yaml:"player_speed"`
	PickupRadius           float32 `yaml:"pickup_radius"`

	MaxInventoryVolume int            `yaml:"max_inventory_volume"`
	StarterItems       map[string]int `yaml:"starter_items"`

	InboxSize     int `yaml:"inbox_size"`
	PeerQueueSize int `yaml:"peer_queue_size"`
	MaxPeers      int `yaml:"max_peers"`

	// SnapshotEveryTicks <= 0 disables periodic state snapshots.
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Rules     Rules     `yaml:"rules"`
	RateLimit RateLimit `yaml:"rate_limit"`
}

// Rules toggles behaviours that differ between the legacy server and the
// current one.
type Rules struct {
	RefundFailedPlant bool `yaml:"refund_failed_plant"`
	RemovePickedDrops bool `yaml:"remove_picked_drops"`
	ValidateMovement  bool `yaml:"validate_movement"`
	ChargeStructures  bool `yaml:"charge_structures"`
}

type RateLimit struct {
	CommandsPerSecond float64 `yaml:"commands_per_second"`
	Burst             int     `yaml:"burst"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:        protocol.Version,
		TickRateHz:             10,
		WorldSize:              16,
		CropRate:               1.0 / 30.0,
		StructureUpdateSeconds: 1,
		PlayerSpeed:            5,
		PickupRadius:           1,
		MaxInventoryVolume:     20,
		StarterItems:           map[string]int{"CARROT_SEED": 3},
		InboxSize:              1024,
		PeerQueueSize:          64,
		MaxPeers:               255,
		SnapshotEveryTicks:     600,
		Rules: Rules{
			RefundFailedPlant: true,
			RemovePickedDrops: true,
		},
		RateLimit: RateLimit{
			CommandsPerSecond: 60,
			Burst:             120,
		},
	}
}

// Load reads a tuning.yaml on top of Defaults().
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.ProtocolVersion != protocol.Version:
		return fmt.Errorf("protocol_version %d is not supported (want %d)", t.ProtocolVersion, protocol.Version)
	case t.TickRateHz <= 0 || t.TickRateHz > 1000:
		return fmt.Errorf("tick_rate_hz out of range: %d", t.TickRateHz)
	case t.WorldSize <= 0 || t.WorldSize > 256:
		return fmt.Errorf("world_size must be in 1..256: %d", t.WorldSize)
	case t.CropRate < 0:
		return fmt.Errorf("crop_rate must be >= 0")
	case t.StructureUpdateSeconds <= 0:
		return fmt.Errorf("structure_update_seconds must be > 0")
	case t.MaxInventoryVolume < 0:
		return fmt.Errorf("max_inventory_volume must be >= 0")
	case t.InboxSize <= 0 || t.PeerQueueSize <= 0:
		return fmt.Errorf("queue sizes must be > 0")
	case t.MaxPeers <= 0 || t.MaxPeers > 255:
		return fmt.Errorf("max_peers must be in 1..255: %d", t.MaxPeers)
	case t.RateLimit.CommandsPerSecond < 0 || t.RateLimit.Burst < 0:
		return fmt.Errorf("rate_limit must be >= 0")
	}
	for id, n := range t.StarterItems {
		if n < 0 {
			return fmt.Errorf("starter_items[%s] must be >= 0", id)
		}
	}
	return nil
}
