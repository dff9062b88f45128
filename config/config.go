package config

import (
	"fmt"

	"github.com/golang/glog"
	"github.com/robfig/config"
)

// DefaultConfigFilePath is the path to the config file
const DefaultConfigFilePath string = "/etc/happyplace/api.conf"

// APISection is the [api] section of the config file
const APISection string = "api"

// Config file keys
const (
	Environment = "environment"

	DatabaseHost     = "database_host"
	DatabasePort     = "database_port"
	DatabaseName     = "database_database"
	DatabaseUsername = "database_username"
	DatabasePassword = "database_password"

	SiteURL = "site_url"

	ListenPort = "listen_port"

	MemcachedHost = "memcached_host"
	MemcachedPort = "memcached_port"

	DashboardCacheTTL = "dashboard_cache_ttl"

	NonceSecret = "nonce_secret"

	StorageEndpoint  = "storage_endpoint"
	StorageAccessKey = "storage_access_key"
	StorageSecretKey = "storage_secret_key"
	StorageBucket    = "storage_bucket"
	StorageUseSSL    = "storage_use_ssl"

	SendGridAPIKey = "sendgrid_api_key"
	EmailFrom      = "email_from"
	InternalDomain = "internal_email_domain"

	OAuthClientID     = "oauth_client_id"
	OAuthClientSecret = "oauth_client_secret"
	OAuthAuthURL      = "oauth_auth_url"
	OAuthTokenURL     = "oauth_token_url"
	OAuthUserInfoURL  = "oauth_userinfo_url"
	OAuthRedirectURL  = "oauth_redirect_url"

	SelfTestSchedule = "selftest_schedule"

	SpamCheck = "spam_check"
)

var configRequiredStrings = []string{
	DatabaseHost,
	DatabaseName,
	DatabasePassword,
	DatabaseUsername,
	Environment,
	MemcachedHost,
	NonceSecret,
	OAuthAuthURL,
	OAuthClientID,
	OAuthClientSecret,
	OAuthRedirectURL,
	OAuthTokenURL,
	OAuthUserInfoURL,
	SendGridAPIKey,
	SiteURL,
	StorageAccessKey,
	StorageBucket,
	StorageEndpoint,
	StorageSecretKey,
}

var configRequiredInt64s = []string{
	DatabasePort,
	ListenPort,
	MemcachedPort,
}

// Optional keys and their defaults
var (
	defaultStrings = map[string]string{
		EmailFrom:        "Happy Place <notify@happyplace.local>",
		InternalDomain:   "@happyplace.local",
		SelfTestSchedule: "0 15 3 * * *",
	}
	defaultInt64s = map[string]int64{
		DashboardCacheTTL: 60 * 60,
	}
	defaultBools = map[string]bool{
		StorageUseSSL: true,
		SpamCheck:     true,
	}
)

// ConfigStrings contains the string values for the given config keys
var ConfigStrings = map[string]string{}

// ConfigInt64s contains the int64 values for the given config keys
var ConfigInt64s = map[string]int64{}

// ConfigBool contains the bool values for the given config keys
var ConfigBool = map[string]bool{}

func init() {
	applyDefaults()
}

func applyDefaults() {
	for k, v := range defaultStrings {
		ConfigStrings[k] = v
	}
	for k, v := range defaultInt64s {
		ConfigInt64s[k] = v
	}
	for k, v := range defaultBools {
		ConfigBool[k] = v
	}
}

// Load reads the config file at path and dies if any of the required keys
// are missing. It is the responsibility of main to call this before the
// database, cache or server are initialised.
func Load(path string) {
	err := load(path)
	if err != nil {
		glog.Fatal(err)
	}
}

func load(path string) error {
	c, err := config.ReadDefault(path)
	if err != nil {
		return err
	}

	for _, key := range configRequiredStrings {
		s, err := c.String(APISection, key)
		if err != nil {
			return fmt.Errorf("config %s: %v", key, err)
		}
		ConfigStrings[key] = s
	}

	for _, key := range configRequiredInt64s {
		ii, err := c.Int(APISection, key)
		if err != nil {
			return fmt.Errorf("config %s: %v", key, err)
		}
		ConfigInt64s[key] = int64(ii)
	}

	for key := range defaultStrings {
		if !c.HasOption(APISection, key) {
			continue
		}
		s, err := c.String(APISection, key)
		if err != nil {
			return fmt.Errorf("config %s: %v", key, err)
		}
		ConfigStrings[key] = s
	}

	for key := range defaultInt64s {
		if !c.HasOption(APISection, key) {
			continue
		}
		ii, err := c.Int(APISection, key)
		if err != nil {
			return fmt.Errorf("config %s: %v", key, err)
		}
		ConfigInt64s[key] = int64(ii)
	}

	for key := range defaultBools {
		if !c.HasOption(APISection, key) {
			continue
		}
		b, err := c.Bool(APISection, key)
		if err != nil {
			return fmt.Errorf("config %s: %v", key, err)
		}
		ConfigBool[key] = b
	}

	return nil
}

// IsProduction reports whether the environment is prod
func IsProduction() bool {
	return ConfigStrings[Environment] == "prod"
}
