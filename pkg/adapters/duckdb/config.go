package duckdb

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/leapstack-labs/zillowetl/pkg/adapter"
)

// Params holds DuckDB-specific configuration.
// Parsed from adapter.Config.Params using mapstructure.
type Params struct {
	// Extensions to install and load (e.g., "httpfs" to read s3:// sources)
	Extensions []string `mapstructure:"extensions"`

	// Secrets for cloud storage authentication
	Secrets []SecretConfig `mapstructure:"secrets"`

	// Settings to apply at session level (e.g., memory_limit, threads)
	Settings map[string]string `mapstructure:"settings"`
}

// SecretConfig defines a DuckDB secret for cloud storage.
type SecretConfig struct {
	// Type: "s3", "gcs", "r2"
	Type string `mapstructure:"type"`

	// Provider: "config", "credential_chain"
	Provider string `mapstructure:"provider"`

	Region string `mapstructure:"region,omitempty"`

	// Scope limits the secret to specific paths (string or []string)
	Scope any `mapstructure:"scope,omitempty"`

	KeyID  string `mapstructure:"key_id,omitempty"`
	Secret string `mapstructure:"secret,omitempty"`

	// Endpoint for S3-compatible services (MinIO, etc.)
	Endpoint string `mapstructure:"endpoint,omitempty"`

	// URLStyle: "vhost" or "path"
	URLStyle string `mapstructure:"url_style,omitempty"`

	UseSSL *bool `mapstructure:"use_ssl,omitempty"`
}

func parseParams(raw map[string]any) (*Params, error) {
	p := &Params{}
	if len(raw) == 0 {
		return p, nil
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           p,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create params decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("invalid duckdb params: %w", err)
	}
	return p, nil
}

var settingNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// statements renders the params as the SQL run right after connecting:
// INSTALL/LOAD per extension, one CREATE SECRET per secret, then SET per
// setting (sorted by name).
func (p *Params) statements() []string {
	var stmts []string
	for _, ext := range p.Extensions {
		if !settingNameRe.MatchString(ext) {
			continue
		}
		stmts = append(stmts, "INSTALL "+ext, "LOAD "+ext)
	}
	for i, s := range p.Secrets {
		stmts = append(stmts, s.createSQL(fmt.Sprintf("zillowetl_secret_%d", i)))
	}

	names := make([]string, 0, len(p.Settings))
	for name := range p.Settings {
		if settingNameRe.MatchString(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		stmts = append(stmts, fmt.Sprintf("SET %s = %s", name, adapter.QuoteLiteral(p.Settings[name])))
	}
	return stmts
}

func (s SecretConfig) createSQL(name string) string {
	opts := []string{"TYPE " + strings.ToLower(s.Type)}
	if s.Provider != "" {
		opts = append(opts, "PROVIDER "+strings.ToLower(s.Provider))
	}
	add := func(key, val string) {
		if val != "" {
			opts = append(opts, key+" "+adapter.QuoteLiteral(val))
		}
	}
	add("KEY_ID", s.KeyID)
	add("SECRET", s.Secret)
	add("REGION", s.Region)
	add("ENDPOINT", s.Endpoint)
	add("URL_STYLE", s.URLStyle)
	if s.UseSSL != nil {
		opts = append(opts, fmt.Sprintf("USE_SSL %t", *s.UseSSL))
	}

	switch scope := s.Scope.(type) {
	case string:
		add("SCOPE", scope)
	case []any:
		var parts []string
		for _, v := range scope {
			parts = append(parts, adapter.QuoteLiteral(fmt.Sprint(v)))
		}
		if len(parts) > 0 {
			opts = append(opts, "SCOPE ["+strings.Join(parts, ", ")+"]")
		}
	case []string:
		var parts []string
		for _, v := range scope {
			parts = append(parts, adapter.QuoteLiteral(v))
		}
		if len(parts) > 0 {
			opts = append(opts, "SCOPE ["+strings.Join(parts, ", ")+"]")
		}
	}

	return fmt.Sprintf("CREATE OR REPLACE SECRET %s (%s)", name, strings.Join(opts, ", "))
}

var secretValueRe = regexp.MustCompile(`SECRET '(?:[^']|'')*'`)

func redactSecret(stmt string) string {
	return secretValueRe.ReplaceAllString(stmt, "SECRET '***'")
}
