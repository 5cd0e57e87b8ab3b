package config

const (
	DecoderAuto   = "auto"
	DecoderFFmpeg = "ffmpeg"
	DecoderWAV    = "wav"

	ProviderGoogle     = "google"
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
	ProviderGemini     = "gemini"
	ProviderWhisperCPP = "whispercpp"
)

const (
	defaultSampleRate          = 16000
	defaultGoogleSpeechURL     = "https://www.google.com/speech-api/v2/recognize"
	defaultGoogleTranslateURL  = "https://translation.googleapis.com/language/translate/v2"
	defaultOpenAIBaseURL       = "https://api.openai.com/v1"
	defaultOpenAITranscription = "whisper-1"
	defaultOpenAITranslation   = "gpt-4o-mini"
	defaultOpenRouterBaseURL   = "https://openrouter.ai"
	defaultOpenRouterModel     = "z-ai/glm-4.5-air:free"
	defaultGeminiModel         = "gemini-2.0-flash"
	defaultWhisperBin          = ".cache/bin/whisper.cpp"
	defaultWhisperModel        = ".cache/models/ggml-base.bin"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Language: Language{Source: "en"},
		Output:   Output{Format: "srt"},
		Audio: Audio{
			Decoder:     DecoderAuto,
			SampleRate:  defaultSampleRate,
			FFmpegPath:  "ffmpeg",
			FFprobePath: "ffprobe",
		},
		VAD: VAD{
			FrameWidthMS:              30,
			MinRegionSeconds:          0.5,
			MaxRegionSeconds:          6,
			MaxContinuousSilenceSecs:  0.3,
			EnergyThresholdPercentile: 20,
		},
		Dispatch: Dispatch{
			Concurrency:        10,
			RetryLimit:         3,
			CallTimeoutSeconds: 60,
			RetryBaseDelayMS:   500,
			RetryMaxDelayMS:    10000,
		},
		Transcription: Provider{Provider: ProviderGoogle},
		Translation:   Provider{Provider: ProviderGoogle},
		Google: Google{
			SpeechBaseURL:    defaultGoogleSpeechURL,
			TranslateBaseURL: defaultGoogleTranslateURL,
		},
		OpenAI: OpenAI{
			BaseURL:            defaultOpenAIBaseURL,
			TranscriptionModel: defaultOpenAITranscription,
			TranslationModel:   defaultOpenAITranslation,
		},
		OpenRouter: OpenRouter{
			BaseURL: defaultOpenRouterBaseURL,
			Model:   defaultOpenRouterModel,
		},
		Gemini:     Gemini{Model: defaultGeminiModel},
		WhisperCPP: WhisperCPP{Bin: defaultWhisperBin, Model: defaultWhisperModel},
		Cache:      Cache{Enabled: true},
		Logging:    Logging{Level: "info", Format: "console"},
	}
}
