package redis

const (
	// KeyPrefixSession is the prefix for onboarding session keys
	KeyPrefixSession = "onboard:session:"
	// KeyPrefixManifest is the prefix for cached manifests, keyed by base URL
	KeyPrefixManifest = "onboard:manifest:"
)

// SessionKey returns the Redis key for a session by ID
func SessionKey(id string) string {
	return KeyPrefixSession + id
}

// ManifestKey returns the Redis key for a cached manifest
func ManifestKey(baseURL string) string {
	return KeyPrefixManifest + baseURL
}
