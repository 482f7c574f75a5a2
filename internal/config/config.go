package config

import (
	"log"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
	} `yaml:"server"`
	Supabase struct {
		ProjectURL     string `yaml:"project_url"`
		ServiceRoleKey string `yaml:"service_role_key"`
		JWTSecret      string `yaml:"jwt_secret"`
	} `yaml:"supabase"`
	Google struct {
		PackageName              string `yaml:"package_name"`
		ServiceAccountJSONBase64 string `yaml:"service_account_json_base64"`
	} `yaml:"google"`
	Apple struct {
		IssuerID     string `yaml:"issuer_id"`
		KeyID        string `yaml:"key_id"`
		BundleID     string `yaml:"bundle_id"`
		PrivateKey   string `yaml:"private_key"`
		SharedSecret string `yaml:"shared_secret"`
	} `yaml:"apple"`
	Push struct {
		Secret       string `yaml:"secret"`
		DefaultTitle string `yaml:"default_title"`
	} `yaml:"push"`
	Redis struct {
		Addr string `yaml:"addr"`
	} `yaml:"redis"`
	Storage struct {
		Endpoint  string `yaml:"endpoint"`
		Region    string `yaml:"region"`
		Bucket    string `yaml:"bucket"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
	} `yaml:"storage"`
}

// LoadConfig reads the yaml file named by CONFIG_PATH (missing file is fine,
// deployments can be env-only), then lets environment variables override
// every secret-bearing field.
func LoadConfig() Config {
	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "config/config.yaml"
	}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Failed to unmarshal config data: %v", err)
		}
	}

	override(&cfg.Supabase.ProjectURL, "PROJECT_URL", "SUPABASE_URL")
	override(&cfg.Supabase.ServiceRoleKey, "SUPABASE_SERVICE_ROLE_KEY")
	override(&cfg.Supabase.JWTSecret, "SUPABASE_JWT_SECRET")
	override(&cfg.Google.PackageName, "ANDROID_PACKAGE_NAME")
	override(&cfg.Google.ServiceAccountJSONBase64, "GOOGLE_SERVICE_ACCOUNT_JSON_BASE64")
	override(&cfg.Apple.IssuerID, "ASC_ISSUER_ID")
	override(&cfg.Apple.KeyID, "ASC_KEY_ID")
	override(&cfg.Apple.BundleID, "IOS_BUNDLE_ID")
	override(&cfg.Apple.PrivateKey, "ASC_PRIVATE_KEY_P8")
	override(&cfg.Apple.SharedSecret, "APPLE_SHARED_SECRET")
	override(&cfg.Push.Secret, "WONMORE_PUSH_SECRET")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Storage.Endpoint, "STORAGE_ENDPOINT")
	override(&cfg.Storage.Region, "STORAGE_REGION")
	override(&cfg.Storage.Bucket, "STORAGE_BUCKET")
	override(&cfg.Storage.AccessKey, "STORAGE_ACCESS_KEY")
	override(&cfg.Storage.SecretKey, "STORAGE_SECRET_KEY")

	// Dashboard copy-paste tends to bring surrounding quotes along.
	cfg.Apple.IssuerID = strings.Trim(cfg.Apple.IssuerID, `"`)
	cfg.Apple.KeyID = strings.Trim(cfg.Apple.KeyID, `"`)

	return cfg
}

func override(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
			return
		}
	}
}
