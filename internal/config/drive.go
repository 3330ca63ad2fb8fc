package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultConfigPath is the path to the canonical driver defaults file.
const DefaultConfigPath = "config/drive.defaults.json"

// DriveConfig holds the control loop settings. Every field is optional;
// the Get* methods return the default for any field left unset, so partial
// files are safe.
type DriveConfig struct {
	// Network
	ListenAddress    *string `json:"listen_address,omitempty"`
	SimulatorAddress *string `json:"simulator_address,omitempty"`
	RecvTimeout      *string `json:"recv_timeout,omitempty"` // duration string like "1s"

	// Controller
	PredictionTime   *float64 `json:"prediction_time,omitempty"` // seconds
	AxleDistance     *float64 `json:"axle_distance,omitempty"`
	DeadBand         *float64 `json:"dead_band,omitempty"`
	MaxOffsetTurnDeg *float64 `json:"max_offset_turn_deg,omitempty"`
	NearOffset       *float64 `json:"near_offset,omitempty"`
	FarOffset        *float64 `json:"far_offset,omitempty"`
	ThrottleNear     *float64 `json:"throttle_near,omitempty"`
	ThrottleMid      *float64 `json:"throttle_mid,omitempty"`
	ThrottleFar      *float64 `json:"throttle_far,omitempty"`

	// Track construction
	StepLength *float64 `json:"step_length,omitempty"`

	// Recording
	LogDir      *string `json:"log_dir,omitempty"`
	TelemetryDB *string `json:"telemetry_db,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }

// EmptyDriveConfig returns a DriveConfig with all fields unset.
func EmptyDriveConfig() *DriveConfig {
	return &DriveConfig{}
}

// DefaultDriveConfig returns a DriveConfig with every field set to its
// default value.
func DefaultDriveConfig() *DriveConfig {
	c := EmptyDriveConfig()
	return &DriveConfig{
		ListenAddress:    ptrString(c.GetListenAddress()),
		SimulatorAddress: ptrString(c.GetSimulatorAddress()),
		RecvTimeout:      ptrString(c.GetRecvTimeout().String()),
		PredictionTime:   ptrFloat64(c.GetPredictionTime()),
		AxleDistance:     ptrFloat64(c.GetAxleDistance()),
		DeadBand:         ptrFloat64(c.GetDeadBand()),
		MaxOffsetTurnDeg: ptrFloat64(c.GetMaxOffsetTurnDeg()),
		NearOffset:       ptrFloat64(c.GetNearOffset()),
		FarOffset:        ptrFloat64(c.GetFarOffset()),
		ThrottleNear:     ptrFloat64(c.GetThrottleNear()),
		ThrottleMid:      ptrFloat64(c.GetThrottleMid()),
		ThrottleFar:      ptrFloat64(c.GetThrottleFar()),
		LogDir:           ptrString(c.GetLogDir()),
		TelemetryDB:      ptrString(c.GetTelemetryDB()),
	}
}

// LoadDriveConfig loads a DriveConfig from a JSON file.
// The file must have a .json extension and be under 1MB.
func LoadDriveConfig(path string) (*DriveConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyDriveConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *DriveConfig) Validate() error {
	if c.RecvTimeout != nil && *c.RecvTimeout != "" {
		d, err := time.ParseDuration(*c.RecvTimeout)
		if err != nil {
			return fmt.Errorf("invalid recv_timeout '%s': %w", *c.RecvTimeout, err)
		}
		if d <= 0 {
			return fmt.Errorf("recv_timeout must be positive, got %s", d)
		}
	}

	positive := []struct {
		name string
		v    *float64
	}{
		{"axle_distance", c.AxleDistance},
		{"near_offset", c.NearOffset},
		{"far_offset", c.FarOffset},
		{"step_length", c.StepLength},
	}
	for _, f := range positive {
		if f.v != nil && !(*f.v > 0) {
			return fmt.Errorf("%s must be positive, got %f", f.name, *f.v)
		}
	}

	nonNegative := []struct {
		name string
		v    *float64
	}{
		{"prediction_time", c.PredictionTime},
		{"dead_band", c.DeadBand},
		{"max_offset_turn_deg", c.MaxOffsetTurnDeg},
	}
	for _, f := range nonNegative {
		if f.v != nil && !(*f.v >= 0) {
			return fmt.Errorf("%s must be non-negative, got %f", f.name, *f.v)
		}
	}

	throttles := []struct {
		name string
		v    *float64
	}{
		{"throttle_near", c.ThrottleNear},
		{"throttle_mid", c.ThrottleMid},
		{"throttle_far", c.ThrottleFar},
	}
	for _, f := range throttles {
		if f.v != nil && (*f.v < 0 || *f.v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", f.name, *f.v)
		}
	}

	if c.GetNearOffset() > c.GetFarOffset() {
		return fmt.Errorf("near_offset %f must not exceed far_offset %f", c.GetNearOffset(), c.GetFarOffset())
	}

	return nil
}

// GetListenAddress returns the local UDP address for sensor packets.
func (c *DriveConfig) GetListenAddress() string {
	if c.ListenAddress == nil || *c.ListenAddress == "" {
		return ":4001"
	}
	return *c.ListenAddress
}

// GetSimulatorAddress returns the simulator's command address.
func (c *DriveConfig) GetSimulatorAddress() string {
	if c.SimulatorAddress == nil || *c.SimulatorAddress == "" {
		return "127.0.0.1:3001"
	}
	return *c.SimulatorAddress
}

// GetRecvTimeout parses and returns the RecvTimeout as a time.Duration.
func (c *DriveConfig) GetRecvTimeout() time.Duration {
	if c.RecvTimeout == nil || *c.RecvTimeout == "" {
		return time.Second
	}
	d, err := time.ParseDuration(*c.RecvTimeout)
	if err != nil || d <= 0 {
		return time.Second
	}
	return d
}

// GetPredictionTime returns how far ahead, in seconds, the pose is predicted.
func (c *DriveConfig) GetPredictionTime() float64 {
	if c.PredictionTime == nil {
		return 0.5
	}
	return *c.PredictionTime
}

// GetAxleDistance returns the wheelbase in meters.
func (c *DriveConfig) GetAxleDistance() float64 {
	if c.AxleDistance == nil {
		return 2.573 // 1.104 front + 1.469 rear
	}
	return *c.AxleDistance
}

// GetDeadBand returns the lateral offset below which no correction is applied.
func (c *DriveConfig) GetDeadBand() float64 {
	if c.DeadBand == nil {
		return 0.1
	}
	return *c.DeadBand
}

// GetMaxOffsetTurnDeg returns the cap on the offset correction in degrees.
func (c *DriveConfig) GetMaxOffsetTurnDeg() float64 {
	if c.MaxOffsetTurnDeg == nil {
		return 10
	}
	return *c.MaxOffsetTurnDeg
}

// GetNearOffset returns the near_offset value or the default.
func (c *DriveConfig) GetNearOffset() float64 {
	if c.NearOffset == nil {
		return 2
	}
	return *c.NearOffset
}

// GetFarOffset returns the far_offset value or the default.
func (c *DriveConfig) GetFarOffset() float64 {
	if c.FarOffset == nil {
		return 5
	}
	return *c.FarOffset
}

// GetThrottleNear returns the throttle_near value or the default.
func (c *DriveConfig) GetThrottleNear() float64 {
	if c.ThrottleNear == nil {
		return 0.4
	}
	return *c.ThrottleNear
}

// GetThrottleMid returns the throttle_mid value or the default.
func (c *DriveConfig) GetThrottleMid() float64 {
	if c.ThrottleMid == nil {
		return 0.2
	}
	return *c.ThrottleMid
}

// GetThrottleFar returns the throttle_far value or the default.
func (c *DriveConfig) GetThrottleFar() float64 {
	if c.ThrottleFar == nil {
		return 0.1
	}
	return *c.ThrottleFar
}

// GetStepLength returns the step length override and whether one is set.
func (c *DriveConfig) GetStepLength() (float64, bool) {
	if c.StepLength == nil {
		return 0, false
	}
	return *c.StepLength, true
}

// GetLogDir returns the I/O log directory. Empty disables I/O logging.
func (c *DriveConfig) GetLogDir() string {
	if c.LogDir == nil {
		return "logs"
	}
	return *c.LogDir
}

// GetTelemetryDB returns the sqlite telemetry path. Empty disables telemetry.
func (c *DriveConfig) GetTelemetryDB() string {
	if c.TelemetryDB == nil {
		return ""
	}
	return *c.TelemetryDB
}
