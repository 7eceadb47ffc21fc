package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/mpopescu/famvault/internal/flagx"
	"github.com/mpopescu/famvault/internal/timex"
)

// JsonConfig is the intermediate DTO for reading JSON configuration files.
// Interval fields use timex.Duration, which accepts both strings such as
// "1h" and integer nanoseconds. Absent fields leave the corresponding
// Config values untouched.
type JsonConfig struct {
	EndpointAddrHTTP     string         `json:"endpoint_addr_http"`
	DatabaseDSN          string         `json:"database_dsn"`
	JWTSecret            string         `json:"jwt_secret"`
	EncryptionKey        string         `json:"encryption_key"`
	EncryptionIV         string         `json:"encryption_iv"`
	AccessTokenValidity  timex.Duration `json:"access_token_validity"`
	RefreshTokenValidity timex.Duration `json:"refresh_token_validity"`
	RevocationRetention  timex.Duration `json:"revocation_retention"`
	AdminUsername        string         `json:"admin_username"`
	AdminPassword        string         `json:"admin_password"`
	S3RootUser           string         `json:"s3_root_user"`
	S3RootPassword       string         `json:"s3_root_password"`
	S3Bucket             string         `json:"s3_bucket"`
	S3Region             string         `json:"s3_region"`
	S3BaseEndpoint       string         `json:"s3_base_endpoint"`
	CORSAllowedOrigins   string         `json:"cors_allowed_origins"`
}

// parseJson overlays configuration values from the JSON file named by the
// -c/-config flags, if any. A missing flag means no file is loaded; an
// unreadable or invalid file panics, since running with half-applied
// configuration is worse than not starting.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.JWTSecret, c.JWTSecret)
	setString(&config.EncryptionKey, c.EncryptionKey)
	setString(&config.EncryptionIV, c.EncryptionIV)
	setDuration(&config.AccessTokenValidity, c.AccessTokenValidity)
	setDuration(&config.RefreshTokenValidity, c.RefreshTokenValidity)
	setDuration(&config.RevocationRetention, c.RevocationRetention)
	setString(&config.AdminUsername, c.AdminUsername)
	setString(&config.AdminPassword, c.AdminPassword)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.CORSAllowedOrigins, c.CORSAllowedOrigins)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
