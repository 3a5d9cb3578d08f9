package config

const (
	defaultCameraName         = "Front Door"
	defaultCameraChannel      = 0
	defaultRTSPPort           = 554
	defaultRecordingDuration  = 6
	defaultDetectionModel     = "yolo-v9-t-640-license-plate-end2end"
	defaultOCRModel           = "cct-s-v1-global-model"
	defaultMinConfidence      = 0.9
	defaultALPRRequestTimeout = 30
	defaultDebounceSeconds    = 3.0
	defaultDedupWindowSeconds = 30
	defaultWebhookTimeout     = 5
	defaultTelegramTimeout    = 10
	defaultUploadTimeout      = 30
	defaultDataDir            = "~/.local/share/anpr/data"
	defaultDatabasePath       = "~/.local/share/anpr/data/anpr.db"
	defaultLogDir             = "~/.local/share/anpr/logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultAPIBind            = "127.0.0.1:5001"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Camera: Camera{
			Name:              defaultCameraName,
			Username:          "admin",
			Password:          PlaceholderPassword,
			Channel:           defaultCameraChannel,
			RTSPPort:          defaultRTSPPort,
			RecordingDuration: defaultRecordingDuration,
		},
		ALPR: ALPR{
			EngineURL:      "http://127.0.0.1:8000",
			DetectionModel: defaultDetectionModel,
			OCRModel:       defaultOCRModel,
			MinConfidence:  defaultMinConfidence,
			RequestTimeout: defaultALPRRequestTimeout,
		},
		Pipeline: Pipeline{
			DebounceSeconds:    defaultDebounceSeconds,
			DedupWindowSeconds: defaultDedupWindowSeconds,
		},
		Notifications: Notifications{
			Webhook: Webhook{
				RequestTimeout: defaultWebhookTimeout,
			},
			Telegram: Telegram{
				RequestTimeout: defaultTelegramTimeout,
				UploadTimeout:  defaultUploadTimeout,
			},
		},
		Storage: Storage{
			DataDir:      defaultDataDir,
			DatabasePath: defaultDatabasePath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
			LogDir: defaultLogDir,
		},
		API: API{
			Bind: defaultAPIBind,
		},
	}
}
