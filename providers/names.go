package providers

const (
	// Identifier for geolocation-db.com.
	NameGeolocationDB = "geolocationdb"

	// Identifier for ipinfo.io.
	NameIPInfo = "ipinfo"

	// Identifier for MaxMind GeoLite2 City offline database.
	NameMaxmind = "maxmind"
)
