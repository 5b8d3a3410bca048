package config

const (
	defaultDataDir             = "~/.local/share/rollcall"
	defaultLogDir              = "~/.local/share/rollcall/logs"
	defaultSocketName          = "rollcall.sock"
	defaultAPIBind             = "127.0.0.1:7489"
	defaultRequiredCount       = 15
	defaultLockDurationSeconds = 120
	defaultDedupWindowSeconds  = 30
	defaultDedupLookback       = 10
	defaultMatchThreshold      = 0.6
	defaultFrameSkip           = 3
	defaultTargetPeriodMS      = 100
	defaultMaxCaptureFailures  = 1
	defaultHeartbeatFrames     = 100
	defaultOverlayHoldMS       = 2000
	defaultGalleryManifest     = "~/.config/rollcall/gallery.yaml"
	defaultGalleryStrategy     = "single"
	defaultGalleryMetric       = "euclidean"
	defaultAugmentations       = 8
	defaultCameraWidth         = 640
	defaultCameraHeight        = 480
	defaultCameraFPS           = 15
	defaultProcessWidth        = 320
	defaultProcessHeight       = 240
	defaultCascadePath         = "/usr/share/opencv4/haarcascades/haarcascade_frontalface_default.xml"
	defaultModelPath           = "~/.local/share/rollcall/models/nn4.small2.v1.t7"
	defaultWindowTitle         = "rollcall"
	defaultLedgerBackend       = "json"
	defaultLedgerFile          = "attendance.json"
	defaultLedgerDB            = "attendance.db"
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Engine: Engine{
			RequiredCount:       defaultRequiredCount,
			LockDurationSeconds: defaultLockDurationSeconds,
			DedupWindowSeconds:  defaultDedupWindowSeconds,
			DedupLookback:       defaultDedupLookback,
			MatchThreshold:      defaultMatchThreshold,
		},
		Scheduler: Scheduler{
			FrameSkip:          defaultFrameSkip,
			TargetPeriodMS:     defaultTargetPeriodMS,
			MaxCaptureFailures: defaultMaxCaptureFailures,
			HeartbeatFrames:    defaultHeartbeatFrames,
			OverlayHoldMS:      defaultOverlayHoldMS,
		},
		Gallery: Gallery{
			Manifest:      defaultGalleryManifest,
			Strategy:      defaultGalleryStrategy,
			Metric:        defaultGalleryMetric,
			Augmentations: defaultAugmentations,
		},
		Camera: Camera{
			Devices:       []int{0, 1, 2},
			Width:         defaultCameraWidth,
			Height:        defaultCameraHeight,
			FPS:           defaultCameraFPS,
			ProcessWidth:  defaultProcessWidth,
			ProcessHeight: defaultProcessHeight,
			Mirror:        true,
			CascadePath:   defaultCascadePath,
			ModelPath:     defaultModelPath,
			WindowTitle:   defaultWindowTitle,
			Display:       true,
		},
		Ledger: Ledger{
			Backend: defaultLedgerBackend,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
