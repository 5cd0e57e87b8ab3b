// Package config loads autosub settings from TOML, fills defaults and
// secrets from the environment, and validates them before any work starts.
//
// Sections:
//   - [language]: recognition and translation languages
//   - [output]: subtitle format and destination
//   - [audio]: decoder selection and sample rate
//   - [vad]: region detection thresholds
//   - [dispatch]: concurrency, retries and timeouts
//   - [transcription] / [translation]: provider selection
//   - [google], [openai], [openrouter], [gemini], [whispercpp]: provider settings
//   - [cache]: on-disk result cache
//   - [logging]: log level, format and file
package config
