package constants

import (
	"io/fs"
	"time"
)

const (
	// DefaultDirPerm is the default permission used when creating directories.
	DefaultDirPerm fs.FileMode = 0o755
	// DefaultFilePerm is the default permission used when creating files.
	DefaultFilePerm fs.FileMode = 0o644
)

const (
	// DefaultNavigationTimeout bounds every browser operation of a probe.
	DefaultNavigationTimeout = 30 * time.Second
	// DefaultNetworkIdleTimeout bounds the wait for a quiet network after load.
	DefaultNetworkIdleTimeout = 10 * time.Second
	// DefaultInteractionConcurrency is the batch size of the interaction sweep.
	DefaultInteractionConcurrency = 5
	// DefaultLinkWorkers caps concurrent link existence checks.
	DefaultLinkWorkers = 8
	// DefaultLinkRateLimit is the link checker's requests per second.
	DefaultLinkRateLimit = 10
	// DefaultMaxLinks caps how many anchors a single audit verifies.
	DefaultMaxLinks = 200
	// ManifestFetchLimitBytes caps how much of a web app manifest we read.
	ManifestFetchLimitBytes = 256 * 1024
)

// DefaultUserAgent is the simulated desktop browser used for every request.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
