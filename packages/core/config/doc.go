// Package config loads storyspec configuration files.
//
// A configuration file is one of .storyspec.json, storyspec.json,
// .storyspec.yaml or storyspec.yml in the working directory. Files are checked
// against an embedded JSON schema before decoding, then defaults are applied
// and field values validated. Command line flags are merged on top with
// Config.Merge.
package config
