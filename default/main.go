// Package defaults provides embedded default assets (system prompts and config).
package defaults

import _ "embed"

//go:embed codeboss_prompt.md
var CodebossPrompt string

//go:embed chat_prompt.md
var ChatPrompt string

//go:embed default_config.toml
var DefaultConfigTOML string
