package vaultsync

import "embed"

// EmbeddedAssets contains static assets shipped with the service.
//
//go:embed embedded/*
var EmbeddedAssets embed.FS
