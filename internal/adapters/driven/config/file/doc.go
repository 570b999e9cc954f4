// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - ProfileStore: read-only YAML research profile layered over a ConfigStore
//   - PromptStore: user-editable prompt templates
package file
