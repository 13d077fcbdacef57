package config

// CoreConfig is the root config for core.json
type CoreConfig struct {
	Physics    PhysicsSettings  `json:"physics"`
	Validation ValidationConfig `json:"validation"`
	Queue      QueueConfig      `json:"queue"`
	Grounding  GroundingConfig  `json:"grounding"`
}

type PhysicsSettings struct {
	Timestep       float64 `json:"timestep"`       // seconds per tick
	Gravity        float64 `json:"gravity"`        // units/s², positive is down
	MaxFallSpeed   float64 `json:"maxFallSpeed"`   // units/s
	GroundFriction float64 `json:"groundFriction"` // velocity damping per second on ground
	DefaultMass    float64 `json:"defaultMass"`
	MaxForceClamp  float64 `json:"maxForceClamp"` // accumulated-force bound per axis
	MaxSpeedClamp  float64 `json:"maxSpeedClamp"` // hard velocity bound per axis
}

// ValidationConfig carries the product-tuned validator thresholds.
// These values are load-bearing: gameplay tests are written against the
// literal numbers, so retuning happens here, never in code.
type ValidationConfig struct {
	MaxRequestAgeMS   int `json:"maxRequestAgeMs"`   // expiry, 100
	RateWindowMS      int `json:"rateWindowMs"`      // sliding window, 1000
	RateLimit         int `json:"rateLimit"`         // max requests per window, 60
	SoftWarnGapMS     int `json:"softWarnGapMs"`     // accumulation-guard gap, 16
	SpamRatePerSecond int `json:"spamRatePerSecond"` // same-type rate ceiling, 30
	RapidGapMS        int `json:"rapidGapMs"`        // rapid-sequence gap, 50
	RapidRunLength    int `json:"rapidRunLength"`    // runs longer than this are rapid, 3
	HistoryLength     int `json:"historyLength"`     // tracked recent types, 10

	MinDirectionLen float64 `json:"minDirectionLen"` // 0.001
	MaxDirectionLen float64 `json:"maxDirectionLen"` // 10.0

	WalkMinSpeed    float64 `json:"walkMinSpeed"`    // 0.1
	WalkMaxSpeed    float64 `json:"walkMaxSpeed"`    // 500
	DashMinSpeed    float64 `json:"dashMinSpeed"`    // 250
	DashMaxSpeed    float64 `json:"dashMaxSpeed"`    // 1000
	JumpMaxForce    float64 `json:"jumpMaxForce"`    // 1000
	ImpulseMaxForce float64 `json:"impulseMaxForce"` // 5000
	GlobalCeiling   float64 `json:"globalCeiling"`   // 10000
}

type QueueConfig struct {
	Capacity int `json:"capacity"` // per-entity pending slots, 10
	MaxAgeMS int `json:"maxAgeMs"` // queued request expiry, 100
}

type GroundingConfig struct {
	CoyoteTimeMS int `json:"coyoteTimeMs"` // 150, inclusive boundary
}

// Default returns the product-tuned configuration.
func Default() *CoreConfig {
	return &CoreConfig{
		Physics: PhysicsSettings{
			Timestep:       1.0 / 60.0,
			Gravity:        800,
			MaxFallSpeed:   400,
			GroundFriction: 8,
			DefaultMass:    1,
			MaxForceClamp:  10000,
			MaxSpeedClamp:  10000,
		},
		Validation: ValidationConfig{
			MaxRequestAgeMS:   100,
			RateWindowMS:      1000,
			RateLimit:         60,
			SoftWarnGapMS:     16,
			SpamRatePerSecond: 30,
			RapidGapMS:        50,
			RapidRunLength:    3,
			HistoryLength:     10,
			MinDirectionLen:   0.001,
			MaxDirectionLen:   10.0,
			WalkMinSpeed:      0.1,
			WalkMaxSpeed:      500,
			DashMinSpeed:      250,
			DashMaxSpeed:      1000,
			JumpMaxForce:      1000,
			ImpulseMaxForce:   5000,
			GlobalCeiling:     10000,
		},
		Queue: QueueConfig{
			Capacity: 10,
			MaxAgeMS: 100,
		},
		Grounding: GroundingConfig{
			CoyoteTimeMS: 150,
		},
	}
}
